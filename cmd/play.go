package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jsphweid/harmonybeat/event"
	"github.com/jsphweid/harmonybeat/midi"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/session"
	"github.com/jsphweid/harmonybeat/transport"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	inputsPath string
	renderPath string
	autoPlay   bool
)

func init() {
	playCmd.Flags().StringVar(&inputsPath, "inputs", "", "JSON array of {time, lane} presses")
	playCmd.Flags().StringVar(&renderPath, "render", "", "write the voiced cues to this .mid file")
	playCmd.Flags().BoolVar(&autoPlay, "auto", false, "press every event exactly on the target line")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <chart.json>",
	Short: "Plays a chart headless",
	Long:  `Plays a chart frame by frame with scripted presses and prints the score.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, logger, err := loadSettings()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		chart, err := model.ParseChart(data)
		if err != nil {
			return errors.Wrap(err, args[0])
		}

		var inputs []session.Input
		switch {
		case autoPlay:
			inputs = session.AutoInputs(settings, chart)
		case inputsPath != "":
			if inputs, err = readInputs(inputsPath); err != nil {
				return err
			}
		}

		var sound event.SoundRenderer
		var renderer *midi.TrackRenderer
		if renderPath != "" {
			clock, err := transport.FromSettings(settings)
			if err != nil {
				return err
			}
			renderer = midi.NewTrackRenderer(clock)
			sound = renderer
		}

		rec := &event.Recorder{}
		trace := event.Func(func(e event.Event) {
			logger.Debug("event", "kind", e.Kind(), "event", e)
		})
		opts := session.Options{Settings: settings, Observer: event.Multi{rec, trace}, Sound: sound, Logger: logger}
		stats, err := session.PlayChart(opts, chart, inputs)
		if err != nil {
			return err
		}
		if renderer != nil {
			sm, err := renderer.SMF()
			if err != nil {
				return err
			}
			if err := sm.WriteFile(renderPath); err != nil {
				return errors.Wrapf(err, "writing %s", renderPath)
			}
		}
		fmt.Printf("score: %v\n", stats.Score)
		fmt.Printf("hits: %v\n", stats.Hits)
		fmt.Printf("misses: %v\n", stats.Misses)
		fmt.Printf("chord changes: %v\n", len(rec.OfKind(event.KindChordChanged)))
		fmt.Printf("beats: %v\n", len(rec.OfKind(event.KindBeat)))
		return nil
	},
}

func readInputs(path string) ([]session.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var inputs []session.Input
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return inputs, nil
}
