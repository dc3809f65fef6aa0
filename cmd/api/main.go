package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"simtom/internal/config"
	"simtom/internal/engine"
	"simtom/internal/generators"
	"simtom/internal/holiday"
	"simtom/internal/models"
	"simtom/pkg/auth"
	"simtom/pkg/kafka"
	"simtom/pkg/metrics"
	"simtom/pkg/websocket"
)

const version = "0.1.0"

// StreamRequest is the body of POST /streams.
type StreamRequest struct {
	Generator string              `json:"generator"`
	Config    models.StreamConfig `json:"config"`
}

type streamSession struct {
	*models.Session
	stream  *engine.Stream
	factory generators.Factory
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
	started bool
}

type StreamManager struct {
	mu       sync.RWMutex
	sessions map[string]*streamSession

	cal       holiday.Calendar
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	kafka     *kafka.Handler
	wsHandler *websocket.Handler
}

func NewStreamManager(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *StreamManager {
	sm := &StreamManager{
		sessions: make(map[string]*streamSession),
		cal:      holiday.NewCalendar(),
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}

	if cfg.Kafka.Enabled {
		sm.kafka = kafka.NewHandler(cfg.Kafka.Brokers)
	}

	sm.wsHandler = websocket.NewHandler(logger, m)
	sm.wsHandler.Disconnected = sm.CancelStream

	return sm
}

// CreateStream validates the configuration, builds the engine stream and
// registers a session for it. Configuration errors reject the stream before
// any event is produced.
func (sm *StreamManager) CreateStream(generatorName string, streamCfg models.StreamConfig) (*streamSession, error) {
	factory, err := generators.New(generatorName, streamCfg)
	if err != nil {
		return nil, err
	}

	stream, err := engine.New(streamCfg, sm.cal, factory.Entity)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ss := &streamSession{
		Session: &models.Session{
			ID:          uuid.New().String(),
			Generator:   generatorName,
			Done:        make(chan struct{}),
			RateLimiter: rate.NewLimiter(rate.Limit(sm.cfg.Stream.RateLimit), sm.cfg.Stream.BurstLimit),
			Records:     make(chan []byte, sm.cfg.Stream.BufferSize),
		},
		stream:  stream,
		factory: factory,
		ctx:     ctx,
		cancel:  cancel,
	}

	sm.mu.Lock()
	sm.sessions[ss.ID] = ss
	sm.mu.Unlock()

	return ss, nil
}

// CancelStream interrupts a session's pacing wait and marks it cancelled.
// Used both for explicit deletes and consumer disconnects.
func (sm *StreamManager) CancelStream(id string) {
	sm.mu.Lock()
	ss, exists := sm.sessions[id]
	var started bool
	if exists {
		delete(sm.sessions, id)
		started = ss.started
	}
	sm.mu.Unlock()
	if !exists {
		return
	}

	ss.once.Do(func() {
		ss.cancel()
		close(ss.Done)
	})
	// Once a consumer attached, the run goroutine owns the engine stream;
	// cancellation then travels through the session context instead.
	if !started {
		ss.stream.Cancel()
	}
	sm.logger.Info("stream cancelled", zap.String("stream_id", ss.ID))
}

// run drives one stream to its terminal state: pull an event, synthesize the
// record, forward it to the session channel and the optional Kafka sink.
func (sm *StreamManager) run(ss *streamSession) {
	sm.metrics.ActiveStreams.Inc()
	start := time.Now()
	defer func() {
		close(ss.Records)
		sm.metrics.ActiveStreams.Dec()
		sm.metrics.StreamDuration.Observe(time.Since(start).Seconds())
		sm.logger.Info("stream finished",
			zap.String("stream_id", ss.ID),
			zap.String("generator", ss.Generator),
			zap.String("state", string(ss.stream.State())),
			zap.Duration("elapsed", time.Since(start)))
	}()

	var sink *kgo.Client
	if sm.kafka != nil {
		var err error
		sink, err = sm.kafka.NewSink(ss.ID)
		if err != nil {
			sm.metrics.KafkaErrors.Inc()
			sm.logger.Warn("kafka sink unavailable, continuing without it",
				zap.String("stream_id", ss.ID), zap.Error(err))
		} else {
			defer sink.Close()
		}
	}

	for {
		event, profile, err := ss.stream.Next(ss.ctx)
		if err != nil {
			if !errors.Is(err, engine.ErrStreamCompleted) &&
				!errors.Is(err, engine.ErrStreamCancelled) &&
				!errors.Is(err, context.Canceled) {
				sm.metrics.GenerationErrors.Inc()
				sm.logger.Error("stream failed", zap.String("stream_id", ss.ID), zap.Error(err))
			}
			return
		}

		record, err := ss.factory.Record(event, profile)
		if err != nil {
			ss.stream.Fail(err)
			sm.metrics.GenerationErrors.Inc()
			sm.logger.Error("record factory failed", zap.String("stream_id", ss.ID), zap.Error(err))
			return
		}

		payload, err := json.Marshal(record)
		if err != nil {
			ss.stream.Fail(err)
			sm.metrics.GenerationErrors.Inc()
			return
		}

		if sink != nil {
			if err := sm.kafka.ProduceRecord(ss.ctx, sink, ss.ID, payload); err != nil {
				sm.metrics.KafkaErrors.Inc()
				sm.logger.Warn("kafka produce failed", zap.String("stream_id", ss.ID), zap.Error(err))
			}
		}

		select {
		case ss.Records <- payload:
			sm.metrics.RecordsGenerated.Inc()
		case <-ss.ctx.Done():
			ss.stream.Cancel()
			return
		}
	}
}

func (sm *StreamManager) session(id string) (*streamSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ss, ok := sm.sessions[id]
	return ss, ok
}

func (sm *StreamManager) handleHealth(w http.ResponseWriter, _ *http.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"status":               "healthy",
		"version":              version,
		"generators_available": len(generators.Names()),
	})
}

func (sm *StreamManager) handleListGenerators(w http.ResponseWriter, _ *http.Request) {
	type info struct {
		Name string `json:"name"`
	}
	var out []info
	for _, name := range generators.Names() {
		out = append(out, info{Name: name})
	}
	json.NewEncoder(w).Encode(out)
}

func (sm *StreamManager) handleCreateStream(w http.ResponseWriter, r *http.Request) {
	var req StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ss, err := sm.CreateStream(req.Generator, req.Config)
	if err != nil {
		var cfgErr *models.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusNotFound)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"stream_id": ss.ID,
		"generator": ss.Generator,
	})
}

func (sm *StreamManager) handleStreamWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["stream_id"]

	// Lookup and the consumed flag flip share one critical section so a
	// concurrent delete either sees the attach or removes the session first.
	sm.mu.Lock()
	ss, ok := sm.sessions[id]
	alreadyStarted := ok && ss.started
	if ok {
		ss.started = true
	}
	sm.mu.Unlock()

	if !ok {
		http.Error(w, "Stream not found", http.StatusNotFound)
		return
	}
	if alreadyStarted {
		http.Error(w, "Stream already consumed", http.StatusConflict)
		return
	}

	if err := sm.wsHandler.HandleConnection(ss.Session, w, r); err != nil {
		// The upgrader has already written the handshake error response.
		sm.CancelStream(ss.ID)
		return
	}

	go sm.run(ss)
}

func (sm *StreamManager) handleDeleteStream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["stream_id"]
	if _, ok := sm.session(id); !ok {
		http.Error(w, "Stream not found", http.StatusNotFound)
		return
	}
	sm.CancelStream(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleStreamSSE streams records inline as server-sent events, without a
// session: the request context is the cancellation signal.
func (sm *StreamManager) handleStreamSSE(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var streamCfg models.StreamConfig
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&streamCfg); err != nil {
			http.Error(w, "invalid config: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	factory, err := generators.New(name, streamCfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	stream, err := engine.New(streamCfg, sm.cal, factory.Entity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sm.metrics.ActiveStreams.Inc()
	defer sm.metrics.ActiveStreams.Dec()

	for {
		event, profile, err := stream.Next(r.Context())
		if err != nil {
			if !errors.Is(err, engine.ErrStreamCompleted) &&
				!errors.Is(err, context.Canceled) {
				sm.metrics.GenerationErrors.Inc()
				fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
				flusher.Flush()
			}
			return
		}

		record, err := factory.Record(event, profile)
		if err != nil {
			stream.Fail(err)
			sm.metrics.GenerationErrors.Inc()
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
			flusher.Flush()
			return
		}

		payload, err := json.Marshal(record)
		if err != nil {
			stream.Fail(err)
			return
		}

		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		sm.metrics.RecordsGenerated.Inc()
	}
}

// Router wires all HTTP routes. Auth, when enabled, guards the stream and
// generator endpoints but not health or metrics.
func (sm *StreamManager) Router(authManager *auth.Manager) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", sm.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/").Subrouter()
	if authManager != nil {
		api.Use(authManager.Middleware)
	}
	api.HandleFunc("/generators", sm.handleListGenerators).Methods("GET")
	api.HandleFunc("/generators/{name}/stream", sm.handleStreamSSE).Methods("POST")
	api.HandleFunc("/streams", sm.handleCreateStream).Methods("POST")
	api.HandleFunc("/streams/{stream_id}/ws", sm.handleStreamWS).Methods("GET")
	api.HandleFunc("/streams/{stream_id}", sm.handleDeleteStream).Methods("DELETE")

	return r
}

func newLogger(output string) *zap.Logger {
	switch output {
	case "stdout":
		l, _ := zap.NewDevelopment()
		return l
	default:
		return zap.NewNop()
	}
}

func main() {
	configPath := flag.String("config", "", "Path to optional server YAML configuration file")
	listen := flag.String("listen", "", "Listen address override (e.g. :8080)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	logger := newLogger(cfg.Log.Output)
	defer logger.Sync()

	m := metrics.NewMetrics("simtom", prometheus.DefaultRegisterer)
	sm := NewStreamManager(cfg, logger, m)

	var authManager *auth.Manager
	if cfg.Auth.Enabled {
		authManager = auth.NewManager()
		key, err := authManager.GenerateAPIKey("default")
		if err != nil {
			log.Fatalf("failed to generate API key: %v", err)
		}
		logger.Info("API key generated", zap.String("api_key", key.Key))
	}

	log.Printf("Starting server on %s (generators: %v)", cfg.Listen, generators.Names())
	log.Fatal(http.ListenAndServe(cfg.Listen, sm.Router(authManager)))
}
