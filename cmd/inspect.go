package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/song"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [songID]",
	Short: "Inspects the song library",
	Long:  `Lists the song library, or prints a summary of one song.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := loadSettings()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(logger)
		if err != nil {
			return err
		}
		defer closeStore()

		if len(args) == 0 {
			songs, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range songs {
				sum := model.Summarize(s)
				fmt.Printf("%v  %v (%d notes, %v)\n", sum.ID, sum.Name, sum.Notes, formatMs(s.DurationMs))
			}
			return nil
		}

		s, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		inspect(s)
		if fs, ok := store.(*song.FileStore); ok {
			if size, err := fs.Size(s.ID); err == nil {
				fmt.Printf("size: %v\n", humanize.Bytes(uint64(size)))
			}
		}
		return nil
	},
}

func inspect(s model.Song) {
	sum := model.Summarize(s)
	fmt.Printf("id: %v\n", sum.ID)
	fmt.Printf("name: %v\n", sum.Name)
	fmt.Printf("base score: %v\n", sum.BaseScore)
	fmt.Printf("notes: %v\n", sum.Notes)
	fmt.Printf("length: %v\n", formatMs(s.DurationMs))
	if s.RecordedAt != 0 {
		fmt.Printf("recorded: %v\n", humanize.Time(time.UnixMilli(s.RecordedAt)))
	}
	if s.Quantized != nil {
		fmt.Printf("quantized: %v\n", *s.Quantized)
	}
	if s.MusicalScore != nil {
		fmt.Printf("musical score: %v\n", *s.MusicalScore)
	}
	if a := s.HarmonicAnalysis; a != nil {
		fmt.Printf("harmonic fit: %.2f\n", a.HarmonicFit)
		for _, sg := range a.Suggestions {
			fmt.Printf("  %v at %v over %v: try %v\n", sg.Original, formatMs(sg.Time), sg.Chord, sg.Suggested)
		}
	}
}
