package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/jsphweid/harmonybeat/constants"
	"github.com/jsphweid/harmonybeat/song"
	"github.com/pkg/errors"
)

var storeBackend string

func init() {
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "file", "song library backend: file, dynamo or memory")
}

// openStore returns the configured song library and a func releasing it.
func openStore(logger *log.Logger) (song.Store, func() error, error) {
	noop := func() error { return nil }
	switch storeBackend {
	case "file":
		fs, err := song.NewFileStore(constants.GetSongsDir(), logger.With("component", "songs"))
		if err != nil {
			return nil, nil, err
		}
		return fs, fs.Close, nil
	case "dynamo":
		ds, err := song.NewDynamoStore(constants.GetDynamoEndpoint(), constants.SongsTable)
		if err != nil {
			return nil, nil, err
		}
		return ds, noop, nil
	case "memory":
		return song.NewMemoryStore(), noop, nil
	}
	return nil, nil, errors.Errorf("unknown store %q", storeBackend)
}
