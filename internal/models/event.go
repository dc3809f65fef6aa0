package models

import "time"

// ArrivalEvent is one tick of the stream. Immutable once emitted; the engine
// retains no reference to it.
type ArrivalEvent struct {
	SequenceIndex uint64    `json:"sequence_index"`
	Timestamp     time.Time `json:"timestamp"`
	EntityKey     string    `json:"entity_key"`
}

// EntityProfile is a stable per-entity record handed out by the registry so
// repeated keys across a stream see consistent attributes. Profiles are owned
// by the registry and live until LRU eviction.
type EntityProfile struct {
	Key                  string
	Attributes           map[string]any
	LastAccessedSequence uint64
}

// Record is the caller-visible output produced by a record factory. Its shape
// is up to the factory; the engine makes no assumptions about it.
type Record map[string]any

// EntityFactory materializes the initial attributes for a newly allocated
// entity key.
type EntityFactory func(key string) (map[string]any, error)
