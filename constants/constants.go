package constants

import "os"

func GetSongsDir() string {
	path := os.Getenv("SONGS_PATH")
	if path != "" {
		return path
	}
	return "./songs"
}

func GetMediaDir() string {
	path := os.Getenv("MEDIA_PATH")
	if path != "" {
		return path
	}
	return "./media"
}

func GetDynamoEndpoint() string {
	endpoint := os.Getenv("DYNAMO_ENDPOINT")
	if endpoint != "" {
		return endpoint
	}
	return "http://localhost:8000"
}

const SongsTable = "harmonybeat-songs"

// Playfield geometry, in the same units as ScrollSpeed (px per second).
const (
	ScrollSpeed    = 200
	HitTolerance   = 75
	SpawnPosition  = 600
	TargetPosition = 100
	FarBoundary    = 0
)

const (
	DefaultBPM       = 128
	DefaultBaseScore = 350
	PerfectBonus     = 50
	MeasuresPerChord = 2

	// the END marker is placed this long after the last recorded note
	EndMarkerPadMs = 2000

	// clean recordings (no clashes) get this on top of harmonicFit*100
	NoClashBonus = 20

	MetronomeIntervalMs = 10
	OnBeatToleranceMs   = 50
)

const (
	LaneLeft  = "ArrowLeft"
	LaneDown  = "ArrowDown"
	LaneUp    = "ArrowUp"
	LaneRight = "ArrowRight"
	LaneEnd   = "END"
)

var Lanes = []string{LaneLeft, LaneDown, LaneUp, LaneRight}

// instrument played for each lane; LaneRight is the melodic lane
var HitSounds = map[string]string{
	LaneLeft:  "kick",
	LaneDown:  "snare",
	LaneUp:    "hihat",
	LaneRight: "lead",
}

const MissInstrument = "miss"
const MissPitch = "C#2"
