package model

type Classification string

const (
	ChordTone   Classification = "chord_tone"
	ScaleTone   Classification = "scale_tone"
	Extension   Classification = "extension"
	PassingTone Classification = "passing_tone"
	Clash       Classification = "clash"
	NoContext   Classification = "no_context"
)

type HarmonicAnalysis struct {
	Fits           bool           `json:"fits"`
	Strength       float64        `json:"strength"`
	Classification Classification `json:"classification"`
	Suggestion     string         `json:"suggestion,omitempty"`
}

// NeutralAnalysis is reported whenever there is nothing to judge a note against.
func NeutralAnalysis() HarmonicAnalysis {
	return HarmonicAnalysis{Fits: true, Strength: 1.0, Classification: NoContext}
}

type Suggestion struct {
	Index     int            `json:"index"`
	Original  string         `json:"original"`
	Suggested string         `json:"suggested"`
	Reason    Classification `json:"reason"`
	Time      float64        `json:"time"`
	Chord     string         `json:"chord"`
}

type SequenceAnalysis struct {
	HarmonicFit float64      `json:"harmonicFit"`
	Suggestions []Suggestion `json:"suggestions"`
}

func (a SequenceAnalysis) ClashCount() int {
	return len(a.Suggestions)
}

type RecordingSuggestions struct {
	Strong        []string `json:"strong"`
	Good          []string `json:"good"`
	Sophisticated []string `json:"sophisticated"`
}

type MusicalContext struct {
	CurrentChord     string               `json:"currentChord"`
	KeyCenter        string               `json:"keyCenter"`
	ChordTones       []string             `json:"chordTones"`
	ScaleTones       []string             `json:"scaleTones"`
	Suggestions      RecordingSuggestions `json:"suggestions"`
	ProgressPosition string               `json:"progressPosition"`
	RootNote         string               `json:"rootNote"`
}
