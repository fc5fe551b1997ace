package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/jsphweid/harmonybeat/file"
	"github.com/jsphweid/harmonybeat/midi"
	"github.com/jsphweid/harmonybeat/session"
	"github.com/jsphweid/harmonybeat/song"
	"github.com/spf13/cobra"
)

var (
	songName      string
	songBaseScore int
	saveSong      bool
)

func init() {
	recordCmd.Flags().StringVar(&songName, "name", "", "song name, defaults to the file name")
	recordCmd.Flags().IntVar(&songBaseScore, "base-score", 0, "points per hit, defaults to the configured base score")
	recordCmd.Flags().BoolVar(&saveSong, "save", false, "add the song to the library")
	rootCmd.AddCommand(recordCmd)
}

var recordCmd = &cobra.Command{
	Use:   "record <performance.mid>",
	Short: "Records a song from a MIDI performance",
	Long: `Replays the note-ons of a MIDI file through the recording pipeline and
prints the resulting song. Drum channel notes land on the drum lanes, every
other note is played on the melodic lane.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, logger, err := loadSettings()
		if err != nil {
			return err
		}
		mf, err := midi.ReadMidiFile(args[0])
		if err != nil {
			return err
		}
		if bpmFlag == 0 {
			if err := settings.SetBPM(midi.Tempo(mf, settings.BPM)); err != nil {
				return err
			}
		}
		name := songName
		if name == "" {
			name = file.SongName(args[0])
		}
		baseScore := songBaseScore
		if baseScore == 0 {
			baseScore = settings.BaseScore
		}

		opts := session.Options{Settings: settings, Logger: logger}
		s, err := session.RecordPerformance(opts, name, baseScore, midi.ImportPerformance(mf, settings.MelodicLane))
		if err != nil {
			return err
		}
		if saveSong {
			store, closeStore, err := openStore(logger)
			if err != nil {
				return err
			}
			defer closeStore()
			if s, err = song.Add(cmd.Context(), store, s); err != nil {
				return err
			}
			logger.Info("saved", "id", s.ID, "name", s.Name)
		}

		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
