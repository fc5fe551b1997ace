package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hako/durafmt"
	"github.com/jsphweid/harmonybeat/batch"
	"github.com/jsphweid/harmonybeat/constants"
	"github.com/jsphweid/harmonybeat/file"
	"github.com/jsphweid/harmonybeat/util"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [dir] [max]",
	Short: "Scores a directory of MIDI performances",
	Long: `Records every .mid file under dir (at most max of them) and reports how
well each melody fits the chord progression. dir defaults to MEDIA_PATH.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := constants.GetMediaDir()
		if len(args) > 0 {
			dir = args[0]
		}
		var maxNum int
		if len(args) == 2 {
			arg1, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			maxNum = arg1
		}
		settings, logger, err := loadSettings()
		if err != nil {
			return err
		}

		paths, err := util.GatherAllMidiPaths(dir, maxNum)
		if err != nil {
			return err
		}
		fileNumMap := file.CreateFileNumMap(paths)
		reports := batch.ProcessAllMidiFiles(settings, logger, fileNumMap)
		for _, r := range reports {
			if r.Failed() {
				fmt.Printf("%4d %v: skipped (%v)\n", r.FileNum, r.Path, r.Error)
				continue
			}
			fmt.Printf("%4d %v: %d notes, %v, fit %.2f, %d clashes, score %d\n",
				r.FileNum, r.Path, r.Notes, formatMs(r.DurationMs), r.HarmonicFit, r.Clashes, r.MusicalScore)
		}

		sum := batch.Summarize(reports)
		fmt.Printf("files: %v (%v skipped)\n", sum.Files, sum.Failed)
		fmt.Printf("notes: %v\n", sum.Notes)
		fmt.Printf("clashes: %v\n", sum.Clashes)
		fmt.Printf("harmonic fit: %.3f ± %.3f\n", sum.MeanFit, sum.StdDevFit)
		fmt.Printf("mean musical score: %.1f\n", sum.MeanScore)
		fmt.Printf("total length: %v\n", formatMs(sum.TotalLength))
		return nil
	},
}

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

func formatMs(ms float64) string {
	d := time.Duration(ms * float64(time.Millisecond))
	return durafmt.Parse(d).LimitFirstN(2).Format(shortUnits)
}
