// Package batch records and scores a whole directory of MIDI performances.
package batch

import (
	"runtime"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/file"
	"github.com/jsphweid/harmonybeat/midi"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/session"
	"github.com/jsphweid/harmonybeat/util"
	"github.com/remeh/sizedwaitgroup"
	"gonum.org/v1/gonum/stat"
)

type FileReport struct {
	FileNum      uint32  `json:"fileNum"`
	Path         string  `json:"path"`
	BPM          float64 `json:"bpm"`
	Notes        int     `json:"notes"`
	DurationMs   float64 `json:"duration"`
	HarmonicFit  float64 `json:"harmonicFit"`
	Clashes      int     `json:"clashes"`
	MusicalScore int     `json:"musicalScore"`
	Error        string  `json:"error,omitempty"`
}

func (r FileReport) Failed() bool {
	return r.Error != ""
}

type Summary struct {
	Files       int     `json:"files"`
	Failed      int     `json:"failed"`
	Notes       uint64  `json:"notes"`
	Clashes     uint64  `json:"clashes"`
	MeanFit     float64 `json:"meanFit"`
	StdDevFit   float64 `json:"stdDevFit"`
	MeanScore   float64 `json:"meanScore"`
	TotalLength float64 `json:"totalLength"`
}

func processMidiFile(settings config.Settings, logger *log.Logger, fileNum uint32, path string) FileReport {
	report := FileReport{FileNum: fileNum, Path: path}
	parsed, err := midi.ReadMidiFile(path)
	if err != nil {
		logger.Warn("skipping", "path", path, "err", err)
		report.Error = err.Error()
		return report
	}

	// each file is recorded at its own tempo
	if err := settings.SetBPM(midi.Tempo(parsed, settings.BPM)); err != nil {
		report.Error = err.Error()
		return report
	}
	report.BPM = settings.BPM

	name := file.SongName(path)
	performance := midi.ImportPerformance(parsed, settings.MelodicLane)
	opts := session.Options{Settings: settings, Logger: logger.With("file", fileNum)}
	song, err := session.RecordPerformance(opts, name, settings.BaseScore, performance)
	if err != nil {
		logger.Warn("skipping", "path", path, "err", err)
		report.Error = err.Error()
		return report
	}

	for _, e := range song.Chart {
		if !e.IsEnd() {
			report.Notes++
		}
	}
	report.DurationMs = song.DurationMs
	if a := song.HarmonicAnalysis; a != nil {
		report.HarmonicFit = a.HarmonicFit
		report.Clashes = a.ClashCount()
	}
	if song.MusicalScore != nil {
		report.MusicalScore = *song.MusicalScore
	}
	return report
}

// ProcessAllMidiFiles records every file in m, at most one per CPU at a
// time. Reports come back ordered by file number.
func ProcessAllMidiFiles(settings config.Settings, logger *log.Logger, m model.FileNumToMidiPath) []FileReport {
	var mu sync.Mutex
	reports := make([]FileReport, 0, len(m))

	swg := sizedwaitgroup.New(runtime.NumCPU())
	keys := util.SortedKeys(m)
	for i, num := range keys {
		logger.Debug("processing", "file", i+1, "of", len(keys), "path", m[num])
		swg.Add()
		go func(num uint32, path string) {
			defer swg.Done()
			r := processMidiFile(settings, logger, num, path)
			mu.Lock()
			reports = append(reports, r)
			mu.Unlock()
		}(num, m[num])
	}
	swg.Wait()

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].FileNum < reports[j].FileNum
	})
	return reports
}

// Summarize aggregates the reports that did not fail.
func Summarize(reports []FileReport) Summary {
	var sum Summary
	var fits, scores []float64
	var notes, clashes []int
	for _, r := range reports {
		sum.Files++
		if r.Failed() {
			sum.Failed++
			continue
		}
		fits = append(fits, r.HarmonicFit)
		scores = append(scores, float64(r.MusicalScore))
		notes = append(notes, r.Notes)
		clashes = append(clashes, r.Clashes)
		sum.TotalLength += r.DurationMs
	}
	sum.Notes = util.Sum(notes)
	sum.Clashes = util.Sum(clashes)
	switch {
	case len(fits) == 1:
		// the sample deviation of a single value is undefined
		sum.MeanFit = fits[0]
		sum.MeanScore = scores[0]
	case len(fits) > 1:
		sum.MeanFit, sum.StdDevFit = stat.MeanStdDev(fits, nil)
		sum.MeanScore = stat.Mean(scores, nil)
	}
	return sum
}
