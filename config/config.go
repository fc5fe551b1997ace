package config

import (
	"encoding/json"
	"math"
	"os"
	"strconv"

	"github.com/jsphweid/harmonybeat/constants"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/pkg/errors"
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

// Settings is the per-session configuration surface.
type Settings struct {
	BPM              float64             `json:"bpm"`
	TimeSignature    model.TimeSignature `json:"timeSignature"`
	Resolution       model.Resolution    `json:"resolution"`
	QuantizeEnabled  bool                `json:"quantize"`
	MeasuresPerChord int                 `json:"measuresPerChord"`

	AutoHarmonize         bool    `json:"autoHarmonize"`
	VoiceLeading          bool    `json:"voiceLeading"`
	HarmonizationStrength float64 `json:"harmonizationStrength"`

	ScrollSpeed  float64 `json:"scrollSpeed"`
	HitTolerance float64 `json:"hitTolerance"`
	BaseScore    int     `json:"baseScore"`
	MelodicLane  string  `json:"melodicLane"`

	LogLevel string `json:"logLevel,omitempty"`
}

func Default() Settings {
	return Settings{
		BPM:                   constants.DefaultBPM,
		TimeSignature:         model.TimeSignature{Numerator: 4, Denominator: 4},
		Resolution:            model.Sixteenth,
		QuantizeEnabled:       true,
		MeasuresPerChord:      constants.MeasuresPerChord,
		AutoHarmonize:         false,
		VoiceLeading:          true,
		HarmonizationStrength: 0.7,
		ScrollSpeed:           constants.ScrollSpeed,
		HitTolerance:          constants.HitTolerance,
		BaseScore:             constants.DefaultBaseScore,
		MelodicLane:           constants.LaneRight,
		LogLevel:              "info",
	}
}

func ValidateBPM(bpm float64) error {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "bpm must be a positive finite number, got %v", bpm)
	}
	return nil
}

func ValidateTimeSignature(ts model.TimeSignature) error {
	if ts.Numerator < 1 {
		return errors.Wrapf(ErrInvalidConfiguration, "time signature numerator must be >= 1, got %d", ts.Numerator)
	}
	switch ts.Denominator {
	case 1, 2, 4, 8, 16, 32:
		return nil
	}
	return errors.Wrapf(ErrInvalidConfiguration, "time signature denominator must be a power of two, got %d", ts.Denominator)
}

func ValidateResolution(r model.Resolution) error {
	if !r.Valid() {
		return errors.Wrapf(ErrInvalidConfiguration, "unknown quantization resolution %q", r)
	}
	return nil
}

func (s Settings) Validate() error {
	if err := ValidateBPM(s.BPM); err != nil {
		return err
	}
	if err := ValidateTimeSignature(s.TimeSignature); err != nil {
		return err
	}
	if err := ValidateResolution(s.Resolution); err != nil {
		return err
	}
	if s.MeasuresPerChord < 1 {
		return errors.Wrapf(ErrInvalidConfiguration, "measuresPerChord must be >= 1, got %d", s.MeasuresPerChord)
	}
	if s.HarmonizationStrength < 0 || s.HarmonizationStrength > 1 {
		return errors.Wrapf(ErrInvalidConfiguration, "harmonizationStrength must be in [0,1], got %v", s.HarmonizationStrength)
	}
	if s.ScrollSpeed <= 0 || s.HitTolerance <= 0 {
		return errors.Wrap(ErrInvalidConfiguration, "scrollSpeed and hitTolerance must be positive")
	}
	if s.BaseScore <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "baseScore must be positive, got %d", s.BaseScore)
	}
	if s.MelodicLane == "" {
		return errors.Wrap(ErrInvalidConfiguration, "melodicLane is empty")
	}
	return nil
}

// SetBPM only mutates s when bpm is valid.
func (s *Settings) SetBPM(bpm float64) error {
	if err := ValidateBPM(bpm); err != nil {
		return err
	}
	s.BPM = bpm
	return nil
}

// Load starts from Default, overlays the JSON file at path (when it exists)
// and then the HARMONYBEAT_* environment variables.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &s); err != nil {
				return s, errors.Wrapf(ErrInvalidConfiguration, "parsing %s: %v", path, err)
			}
		case os.IsNotExist(err):
		default:
			return s, errors.Wrapf(err, "reading %s", path)
		}
	}
	if err := applyEnv(&s); err != nil {
		return s, err
	}
	return s, s.Validate()
}

func applyEnv(s *Settings) error {
	if v := os.Getenv("HARMONYBEAT_BPM"); v != "" {
		bpm, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfiguration, "HARMONYBEAT_BPM: %v", err)
		}
		if err := s.SetBPM(bpm); err != nil {
			return err
		}
	}
	if v := os.Getenv("HARMONYBEAT_RESOLUTION"); v != "" {
		s.Resolution = model.Resolution(v)
	}
	if v := os.Getenv("HARMONYBEAT_MEASURES_PER_CHORD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfiguration, "HARMONYBEAT_MEASURES_PER_CHORD: %v", err)
		}
		s.MeasuresPerChord = n
	}
	bools := map[string]*bool{
		"HARMONYBEAT_QUANTIZE":       &s.QuantizeEnabled,
		"HARMONYBEAT_AUTO_HARMONIZE": &s.AutoHarmonize,
		"HARMONYBEAT_VOICE_LEADING":  &s.VoiceLeading,
	}
	for name, dst := range bools {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(ErrInvalidConfiguration, "%s: %v", name, err)
			}
			*dst = b
		}
	}
	if v := os.Getenv("HARMONYBEAT_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	return nil
}

func (s Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
