package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"simtom/internal/models"
)

// State is the stream controller's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

var (
	// ErrStreamCompleted is returned by Next once all records were emitted.
	ErrStreamCompleted = errors.New("stream completed")
	// ErrStreamCancelled is returned by Next after the stream was cancelled.
	ErrStreamCancelled = errors.New("stream cancelled")
)

// Stream is the pull-driven arrival stream. Each call to Next produces one
// arrival event with its resolved entity profile; the only suspension point
// is the pacing wait in live mode. Not safe for concurrent use; one consumer
// drives one stream.
type Stream struct {
	cfg   models.StreamConfig
	state State
	seq   uint64

	// live mode
	sched   scheduler
	pacer   *pacer
	anchor  time.Time
	logical time.Duration

	// historical mode
	timestamps []time.Time

	registry  *Registry
	keyRNG    *rand.Rand
	knownKeys []string

	failure error
}

// New validates the configuration and builds the stream. Invalid
// configurations reject the stream start synchronously, before any event is
// produced.
func New(cfg models.StreamConfig, cal Calendar, entityFactory models.EntityFactory) (*Stream, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := newRandomSource(cfg.Seed)
	s := &Stream{
		cfg:      cfg,
		state:    StateIdle,
		registry: NewRegistry(cfg.MaxEntities, entityFactory),
		keyRNG:   rng.subsystem(subsystemKeys),
	}

	if cfg.Historical() {
		s.timestamps = allocateTimestamps(cfg, cal, rng.subsystem(subsystemHistorical))
	} else {
		s.anchor = time.Now()
		if cfg.StartTime != nil {
			s.anchor = *cfg.StartTime
		}
		s.sched = newScheduler(cfg, rng.subsystem(subsystemArrival), s.anchor)
		s.pacer = newPacer(cfg.TimeCompression)
	}
	return s, nil
}

// Next produces the next arrival event, or a terminal error:
// ErrStreamCompleted when the configured count is exhausted, the context
// error after cancellation, or the factory's error verbatim after a failure.
func (s *Stream) Next(ctx context.Context) (models.ArrivalEvent, *models.EntityProfile, error) {
	var zero models.ArrivalEvent

	switch s.state {
	case StateCompleted:
		return zero, nil, ErrStreamCompleted
	case StateCancelled:
		return zero, nil, ErrStreamCancelled
	case StateFailed:
		return zero, nil, s.failure
	case StateIdle:
		s.state = StateRunning
		if s.pacer != nil {
			s.pacer.begin()
		}
	}

	if err := ctx.Err(); err != nil {
		s.state = StateCancelled
		return zero, nil, err
	}

	var timestamp time.Time
	if s.cfg.Historical() {
		if int(s.seq) >= len(s.timestamps) {
			s.state = StateCompleted
			return zero, nil, ErrStreamCompleted
		}
		timestamp = s.timestamps[s.seq]
	} else {
		if s.cfg.TotalRecords != nil && int(s.seq) >= *s.cfg.TotalRecords {
			s.state = StateCompleted
			return zero, nil, ErrStreamCompleted
		}
		s.logical += s.sched.next()
		timestamp = s.anchor.Add(s.logical)
		if err := s.pacer.wait(ctx, s.logical); err != nil {
			s.state = StateCancelled
			return zero, nil, err
		}
	}

	key := s.nextEntityKey()
	profile, err := s.registry.GetOrCreate(key, s.seq)
	if err != nil {
		s.state = StateFailed
		s.failure = err
		return zero, nil, err
	}

	event := models.ArrivalEvent{
		SequenceIndex: s.seq,
		Timestamp:     timestamp,
		EntityKey:     key,
	}
	s.seq++
	return event, profile, nil
}

// Cancel moves a pending or running stream into the cancelled terminal state.
// Cancellation is not an error condition; it is how a consumer that stops
// pulling is recorded.
func (s *Stream) Cancel() {
	if s.state == StateIdle || s.state == StateRunning {
		s.state = StateCancelled
	}
}

// Fail records a consumer-side generation failure (e.g. the record factory
// erroring while consuming an event) and terminates the stream.
func (s *Stream) Fail(err error) {
	if s.state == StateIdle || s.state == StateRunning {
		s.state = StateFailed
		s.failure = err
	}
}

func (s *Stream) State() State {
	return s.state
}

// Registry exposes the stream's entity registry to collaborators.
func (s *Stream) Registry() *Registry {
	return s.registry
}

// nextEntityKey picks the entity for the next event: with the configured
// repeat rate an already-known key is reused, otherwise a fresh key is
// allocated. Once max_entities keys exist, keys are always reused so the key
// pool stays bounded alongside the registry.
func (s *Stream) nextEntityKey() string {
	if len(s.knownKeys) > 0 &&
		(len(s.knownKeys) >= s.cfg.MaxEntities || s.keyRNG.Float64() < s.cfg.RepeatEntityRate) {
		return s.knownKeys[s.keyRNG.Intn(len(s.knownKeys))]
	}
	key := fmt.Sprintf("cust_%06d", len(s.knownKeys)+1)
	s.knownKeys = append(s.knownKeys, key)
	return key
}
