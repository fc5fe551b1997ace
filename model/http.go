package model

type ErrorResponse struct {
	Error string `json:"detail"`
}

type AnalyzeRequestBody struct {
	Notes []ChartEvent `json:"notes"`
}

type QuantizeRequestBody struct {
	Events []RecordedNote `json:"events"`
}

type QuantizeResponse struct {
	Info   QuantizationInfo `json:"info"`
	Events []RecordedNote   `json:"events"`
}

type SongSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BaseScore    int    `json:"baseScore"`
	Notes        int    `json:"notes"`
	MusicalScore *int   `json:"musicalScore,omitempty"`
}

func Summarize(s Song) SongSummary {
	notes := 0
	for _, e := range s.Chart {
		if !e.IsEnd() {
			notes++
		}
	}
	return SongSummary{ID: s.ID, Name: s.Name, BaseScore: s.BaseScore, Notes: notes, MusicalScore: s.MusicalScore}
}

type AnalyzeResponse struct {
	Analysis     SequenceAnalysis `json:"analysis"`
	MusicalScore int              `json:"musicalScore"`
}

type PreviewResponse struct {
	Info    QuantizationInfo  `json:"info"`
	Preview []QuantizePreview `json:"preview"`
}

// RecordingPlan is a requested recording length rounded up to whole measures.
type RecordingPlan struct {
	RequestedSeconds float64           `json:"requestedSeconds"`
	Measures         int               `json:"measures"`
	Seconds          float64           `json:"seconds"`
	Boundaries       []MeasureBoundary `json:"boundaries"`
}
