package engine

import (
	"container/list"
	"fmt"

	"simtom/internal/models"
)

// Registry is a bounded, least-recently-used keyed cache of entity profiles.
// Repeated keys across a stream see the same profile; capacity bounds memory
// regardless of stream length. Mutated only by the stream's consuming
// goroutine, so no locking.
type Registry struct {
	capacity int
	factory  models.EntityFactory
	entries  map[string]*list.Element
	order    *list.List // front is most recently used
}

func NewRegistry(capacity int, factory models.EntityFactory) *Registry {
	return &Registry{
		capacity: capacity,
		factory:  factory,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// GetOrCreate returns the profile for key, refreshing its recency marker. An
// unseen key is materialized through the entity factory; at capacity the
// profile with the oldest access is evicted first.
func (r *Registry) GetOrCreate(key string, sequence uint64) (*models.EntityProfile, error) {
	if el, ok := r.entries[key]; ok {
		r.order.MoveToFront(el)
		profile := el.Value.(*models.EntityProfile)
		profile.LastAccessedSequence = sequence
		return profile, nil
	}

	attrs, err := r.factory(key)
	if err != nil {
		return nil, fmt.Errorf("entity factory for key %q: %w", key, err)
	}

	if r.order.Len() >= r.capacity {
		oldest := r.order.Back()
		r.order.Remove(oldest)
		delete(r.entries, oldest.Value.(*models.EntityProfile).Key)
	}

	profile := &models.EntityProfile{
		Key:                  key,
		Attributes:           attrs,
		LastAccessedSequence: sequence,
	}
	r.entries[key] = r.order.PushFront(profile)
	return profile, nil
}

// Contains reports whether key is currently cached, without refreshing it.
func (r *Registry) Contains(key string) bool {
	_, ok := r.entries[key]
	return ok
}

func (r *Registry) Len() int {
	return r.order.Len()
}
