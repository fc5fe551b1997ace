package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/logging"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	bpmFlag    float64
)

var rootCmd = &cobra.Command{
	Use:   "harmonybeat",
	Short: "Rhythm game timing and harmony engine",
	Long: `harmonybeat plays and records rhythm charts against a looping chord
progression, scores how well recorded melodies fit the harmony and keeps a
library of recorded songs.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "harmonybeat.json", "settings file, skipped when missing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().Float64Var(&bpmFlag, "bpm", 0, "override the configured tempo")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// loadSettings reads the settings file and environment, then applies the
// persistent flags on top.
func loadSettings() (config.Settings, *log.Logger, error) {
	s, err := config.Load(configPath)
	if err != nil {
		return s, nil, err
	}
	if bpmFlag != 0 {
		if err := s.SetBPM(bpmFlag); err != nil {
			return s, nil, err
		}
	}
	if verbose {
		s.LogLevel = "debug"
	}
	return s, logging.New(os.Stderr, s.LogLevel), nil
}
