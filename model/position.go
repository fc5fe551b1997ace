package model

type MusicalPosition struct {
	Measure     int `json:"measure"`
	Beat        int `json:"beat"`
	Subdivision int `json:"subdivision"`
	TotalBeats  int `json:"totalBeats"`
}

type Resolution string

const (
	Sixteenth Resolution = "16th"
	Eighth    Resolution = "8th"
	Quarter   Resolution = "quarter"
)

// Divisions is how many grid steps fit in one beat.
func (r Resolution) Divisions() int {
	switch r {
	case Sixteenth:
		return 4
	case Eighth:
		return 2
	case Quarter:
		return 1
	}
	return 0
}

func (r Resolution) Valid() bool {
	return r.Divisions() > 0
}

type TimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

type BeatType string

const (
	Downbeat    BeatType = "downbeat"
	OnBeat      BeatType = "beat"
	Subdivision BeatType = "subdivision"
)

func BeatTypeOf(p MusicalPosition) BeatType {
	if p.Beat == 0 && p.Subdivision == 0 {
		return Downbeat
	}
	if p.Subdivision == 0 {
		return OnBeat
	}
	return Subdivision
}

type BeatMarker struct {
	Time       float64         `json:"time"`
	Position   MusicalPosition `json:"position"`
	IsDownbeat bool            `json:"isDownbeat"`
	IsBeat     bool            `json:"isBeat"`
	Type       BeatType        `json:"type"`
}

type MeasureBoundary struct {
	Time    float64 `json:"time"`
	Measure int     `json:"measure"`
}

type QuantizationInfo struct {
	Enabled       bool          `json:"enabled"`
	Resolution    Resolution    `json:"type"`
	Interval      float64       `json:"interval"`
	BPM           float64       `json:"bpm"`
	TimeSignature TimeSignature `json:"timeSignature"`
}

type QuantizePreview struct {
	Lane          string          `json:"lane"`
	OriginalTime  float64         `json:"originalTime"`
	QuantizedTime float64         `json:"quantizedTime"`
	Position      MusicalPosition `json:"position"`
	Adjustment    float64         `json:"adjustment"`
}
