package cmd

import (
	"fmt"
	"strconv"

	"github.com/jsphweid/harmonybeat/quantize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(markersCmd)
}

var markersCmd = &cobra.Command{
	Use:   "markers <startMs> <endMs>",
	Short: "Prints the grid between two times",
	Long:  `Prints every beat marker of the configured grid between startMs and endMs.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		end, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return err
		}
		settings, _, err := loadSettings()
		if err != nil {
			return err
		}
		q, err := quantize.FromSettings(settings)
		if err != nil {
			return err
		}

		markers := q.Markers(start, end)
		for m, ok := markers.Next(); ok; m, ok = markers.Next() {
			p := m.Position
			fmt.Printf("%10.2f  %d.%d.%d  %v\n", m.Time, p.Measure+1, p.Beat+1, p.Subdivision+1, m.Type)
		}
		return nil
	},
}
