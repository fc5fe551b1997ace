package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/jsphweid/harmonybeat/config"
	"github.com/jsphweid/harmonybeat/harmony"
	"github.com/jsphweid/harmonybeat/logging"
	"github.com/jsphweid/harmonybeat/midi"
	"github.com/jsphweid/harmonybeat/model"
	"github.com/jsphweid/harmonybeat/quantize"
	"github.com/jsphweid/harmonybeat/recording"
	"github.com/jsphweid/harmonybeat/song"
	"github.com/jsphweid/harmonybeat/transport"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

const (
	// ten minutes of grid is plenty for any lookahead
	maxMarkerSpanMs = 10 * 60 * 1000

	defaultExcerptNotes = 32
)

var addr string

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the HTTP API",
	Long:  `Serves harmonic analysis, quantization, beat markers and the song library over HTTP.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, logger, err := loadSettings()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(logger)
		if err != nil {
			return err
		}
		defer closeStore()

		logger.Info("listening", "addr", addr, "store", storeBackend)
		return http.ListenAndServe(addr, NewRouter(settings, store, logger))
	},
}

type server struct {
	settings config.Settings
	store    song.Store
	logger   *log.Logger
}

// NewRouter builds the API around store. Every request gets its own clock
// and engines built from settings.
func NewRouter(settings config.Settings, store song.Store, logger *log.Logger) http.Handler {
	srv := &server{settings: settings, store: store, logger: logger.With("component", "http")}

	router := mux.NewRouter().StrictSlash(true)
	router.Use(srv.withLogger)
	router.HandleFunc("/analyze", srv.handleAnalyze).Methods("POST")
	router.HandleFunc("/quantize", srv.handleQuantize).Methods("POST")
	router.HandleFunc("/markers", srv.handleMarkers).Methods("GET")
	router.HandleFunc("/context", srv.handleContext).Methods("GET")
	router.HandleFunc("/recording/plan", srv.handleRecordingPlan).Methods("GET")
	router.HandleFunc("/songs", srv.handleListSongs).Methods("GET")
	router.HandleFunc("/songs", srv.handleAddSong).Methods("POST")
	router.HandleFunc("/songs/{id}", srv.handleGetSong).Methods("GET")
	router.HandleFunc("/songs/{id}", srv.handleDeleteSong).Methods("DELETE")
	router.HandleFunc("/songs/{id}/midi", srv.handleSongMidi).Methods("GET")

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	})
	return c.Handler(router)
}

// withLogger puts a request scoped logger in the request context.
func (srv *server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := srv.logger.With("method", r.Method, "path", r.URL.Path)
		l.Debug("request")
		next.ServeHTTP(w, r.WithContext(logging.WithContext(r.Context(), l)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, song.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidSong),
		errors.Is(err, model.ErrInvalidChartEvent),
		errors.Is(err, config.ErrInvalidConfiguration):
		status = http.StatusBadRequest
	default:
		logging.FromContext(r.Context()).Error("request failed", "err", err)
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: msg})
}

func (srv *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var input model.AnalyzeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		badRequest(w, "could not parse request body: "+err.Error())
		return
	}
	for i, n := range input.Notes {
		if err := n.Validate(); err != nil {
			writeError(w, r, errors.Wrapf(err, "note %d", i))
			return
		}
	}

	engine, err := srv.engine()
	if err != nil {
		writeError(w, r, err)
		return
	}
	analysis := engine.AnalyzeRecordedSequence(input.Notes)
	writeJSON(w, http.StatusOK, model.AnalyzeResponse{
		Analysis:     analysis,
		MusicalScore: recording.MusicalScore(analysis),
	})
}

// quantizer honours an optional resolution query parameter.
func (srv *server) quantizer(r *http.Request) (*quantize.Quantizer, error) {
	s := srv.settings
	if res := r.URL.Query().Get("resolution"); res != "" {
		s.Resolution = model.Resolution(res)
	}
	if err := config.ValidateResolution(s.Resolution); err != nil {
		return nil, err
	}
	return quantize.FromSettings(s)
}

func (srv *server) handleQuantize(w http.ResponseWriter, r *http.Request) {
	var input model.QuantizeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		badRequest(w, "could not parse request body: "+err.Error())
		return
	}
	for i, n := range input.Events {
		if err := n.ChartEvent().Validate(); err != nil {
			writeError(w, r, errors.Wrapf(err, "event %d", i))
			return
		}
	}
	q, err := srv.quantizer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("preview") == "true" {
		writeJSON(w, http.StatusOK, model.PreviewResponse{Info: q.Info(), Preview: q.Preview(input.Events)})
		return
	}
	writeJSON(w, http.StatusOK, model.QuantizeResponse{
		Info:   q.Info(),
		Events: q.QuantizeRecordedChart(input.Events),
	})
}

func floatParam(r *http.Request, name string) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, errors.Errorf("missing %s", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Errorf("bad %s %q", name, v)
	}
	return f, nil
}

func (srv *server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	start, err := floatParam(r, "start")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	end, err := floatParam(r, "end")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if start < 0 || end < start || end-start > maxMarkerSpanMs {
		badRequest(w, fmt.Sprintf("bad range %v..%v", start, end))
		return
	}
	q, err := srv.quantizer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	markers := q.BeatMarkers(start, end)
	if markers == nil {
		markers = []model.BeatMarker{}
	}
	writeJSON(w, http.StatusOK, markers)
}

func (srv *server) engine() (*harmony.Engine, error) {
	clock, err := transport.FromSettings(srv.settings)
	if err != nil {
		return nil, err
	}
	return harmony.New(harmony.OptionsFromSettings(srv.settings, clock))
}

// handleContext describes the harmony an on-time progression would be
// playing at time (ms, default 0).
func (srv *server) handleContext(w http.ResponseWriter, r *http.Request) {
	t := 0.0
	if r.URL.Query().Get("time") != "" {
		var err error
		if t, err = floatParam(r, "time"); err != nil || t < 0 {
			badRequest(w, "bad time")
			return
		}
	}
	engine, err := srv.engine()
	if err != nil {
		writeError(w, r, err)
		return
	}
	for i := engine.ChordIndexAtTime(t); i > 0; i-- {
		engine.Advance()
	}
	writeJSON(w, http.StatusOK, engine.MusicalContext())
}

func (srv *server) handleRecordingPlan(w http.ResponseWriter, r *http.Request) {
	seconds, err := floatParam(r, "seconds")
	if err != nil || seconds <= 0 || seconds*1000 > maxMarkerSpanMs {
		badRequest(w, "seconds must be in (0, 600]")
		return
	}
	q, err := srv.quantizer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	duration := q.IdealRecordingDuration(seconds)
	writeJSON(w, http.StatusOK, model.RecordingPlan{
		RequestedSeconds: seconds,
		Measures:         q.IdealRecordingMeasures(seconds),
		Seconds:          duration,
		Boundaries:       q.Clock().MeasureBoundaries(duration * 1000),
	})
}

func (srv *server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := srv.store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	res := make([]model.SongSummary, 0, len(songs))
	for _, s := range songs {
		res = append(res, model.Summarize(s))
	}
	writeJSON(w, http.StatusOK, res)
}

func (srv *server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	var input model.Song
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		badRequest(w, "could not parse request body: "+err.Error())
		return
	}
	s, err := song.Add(r.Context(), srv.store, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("song added", "id", s.ID, "name", s.Name)
	writeJSON(w, http.StatusCreated, s)
}

func (srv *server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	s, err := srv.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (srv *server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	if err := srv.store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSongMidi exports a song as a MIDI file. With from (ms) it returns
// only an excerpt of at most notes note messages from there on.
func (srv *server) handleSongMidi(w http.ResponseWriter, r *http.Request) {
	s, err := srv.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	clock, err := transport.FromSettings(srv.settings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sm, err := midi.SongToSMF(s, clock)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("from") != "" {
		from, err := floatParam(r, "from")
		if err != nil || from < 0 {
			badRequest(w, "bad from")
			return
		}
		maxNotes := defaultExcerptNotes
		if v := r.URL.Query().Get("notes"); v != "" {
			if maxNotes, err = strconv.Atoi(v); err != nil || maxNotes < 1 {
				badRequest(w, "bad notes")
				return
			}
		}
		sm = midi.Excerpt(sm, midi.MsToTicks(clock, from), maxNotes)
	}

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.ID+".mid"))
	if _, err := sm.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Error("writing midi", "id", s.ID, "err", err)
	}
}
