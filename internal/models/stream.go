package models

import (
	"fmt"
	"time"
)

// ArrivalPattern selects how inter-arrival delays are drawn.
type ArrivalPattern string

const (
	PatternUniform ArrivalPattern = "uniform"
	PatternPoisson ArrivalPattern = "poisson"
	PatternNHPP    ArrivalPattern = "nhpp"
	PatternBurst   ArrivalPattern = "burst"
)

const (
	MinRatePerSecond   = 0.1
	MaxRatePerSecond   = 1000.0
	MinTimeCompression = 0.1
	MaxHistoricalDays  = 366
)

// StreamConfig is the immutable per-stream configuration supplied at stream
// start. Presence of a start/end date pair switches the engine into
// historical mode; otherwise records are paced in real time.
type StreamConfig struct {
	RatePerSecond   float64        `json:"rate_per_second"`
	ArrivalPattern  ArrivalPattern `json:"arrival_pattern"`
	TotalRecords    *int           `json:"total_records,omitempty"`
	Seed            *int64         `json:"seed,omitempty"`
	StartTime       *time.Time     `json:"start_time,omitempty"`
	TimeCompression float64        `json:"time_compression"`

	// nhpp only: inclusive hour-of-day bounds of the peak window.
	PeakHours *[2]int `json:"peak_hours,omitempty"`

	// burst only
	BurstIntensity   float64 `json:"burst_intensity"`
	BurstProbability float64 `json:"burst_probability"`

	// historical mode
	StartDate          *Date              `json:"start_date,omitempty"`
	EndDate            *Date              `json:"end_date,omitempty"`
	HolidayMultipliers map[string]float64 `json:"holiday_multipliers,omitempty"`
	WeekendMultiplier  float64            `json:"weekend_multiplier"`

	// entity consistency
	RepeatEntityRate float64 `json:"repeat_entity_rate"`
	MaxEntities      int     `json:"max_entities"`
}

// Historical reports whether the stream back-fills timestamps over a date
// range instead of tracking the wall clock.
func (c *StreamConfig) Historical() bool {
	return c.StartDate != nil || c.EndDate != nil
}

// ApplyDefaults fills in the zero-valued optional fields.
func (c *StreamConfig) ApplyDefaults() {
	if c.RatePerSecond == 0 {
		c.RatePerSecond = 1.0
	}
	if c.ArrivalPattern == "" {
		c.ArrivalPattern = PatternUniform
	}
	if c.TimeCompression == 0 {
		c.TimeCompression = 1.0
	}
	if c.PeakHours == nil {
		c.PeakHours = &[2]int{12, 20}
	}
	if c.BurstIntensity == 0 {
		c.BurstIntensity = 2.0
	}
	if c.BurstProbability == 0 {
		c.BurstProbability = 0.1
	}
	if c.WeekendMultiplier == 0 {
		c.WeekendMultiplier = 1.0
	}
	if c.RepeatEntityRate == 0 {
		c.RepeatEntityRate = 0.7
	}
	if c.MaxEntities == 0 {
		c.MaxEntities = 10_000
	}
}

// Validate checks the configuration before any event is produced. A non-nil
// result is always a *ConfigError.
func (c *StreamConfig) Validate() error {
	if c.RatePerSecond < MinRatePerSecond || c.RatePerSecond > MaxRatePerSecond {
		return &ConfigError{Field: "rate_per_second",
			Reason: fmt.Sprintf("must be between %g and %g", MinRatePerSecond, MaxRatePerSecond)}
	}
	switch c.ArrivalPattern {
	case PatternUniform, PatternPoisson, PatternNHPP, PatternBurst:
	default:
		return &ConfigError{Field: "arrival_pattern", Reason: fmt.Sprintf("unknown pattern %q", c.ArrivalPattern)}
	}
	if c.TotalRecords != nil && *c.TotalRecords < 0 {
		return &ConfigError{Field: "total_records", Reason: "must not be negative"}
	}
	if c.TimeCompression < MinTimeCompression {
		return &ConfigError{Field: "time_compression",
			Reason: fmt.Sprintf("must be at least %g", MinTimeCompression)}
	}
	if c.PeakHours != nil {
		for _, h := range c.PeakHours {
			if h < 0 || h > 23 {
				return &ConfigError{Field: "peak_hours", Reason: "hours must be within 0-23"}
			}
		}
	}
	if c.BurstIntensity < 1 {
		return &ConfigError{Field: "burst_intensity", Reason: "must be at least 1"}
	}
	if c.BurstProbability < 0 || c.BurstProbability > 1 {
		return &ConfigError{Field: "burst_probability", Reason: "must be between 0 and 1"}
	}
	if (c.StartDate == nil) != (c.EndDate == nil) {
		return &ConfigError{Field: "start_date", Reason: "start_date and end_date must be set together"}
	}
	if c.StartDate != nil {
		if c.EndDate.Before(*c.StartDate) {
			return &ConfigError{Field: "end_date", Reason: "must not precede start_date"}
		}
		if c.StartDate.DaysUntil(*c.EndDate) >= MaxHistoricalDays {
			return &ConfigError{Field: "end_date",
				Reason: fmt.Sprintf("date span must cover fewer than %d days", MaxHistoricalDays)}
		}
		if c.TotalRecords == nil {
			return &ConfigError{Field: "total_records", Reason: "required in historical mode"}
		}
	}
	for name, m := range c.HolidayMultipliers {
		if m <= 0 {
			return &ConfigError{Field: "holiday_multipliers", Reason: fmt.Sprintf("multiplier for %q must be positive", name)}
		}
	}
	if c.WeekendMultiplier <= 0 {
		return &ConfigError{Field: "weekend_multiplier", Reason: "must be positive"}
	}
	if c.RepeatEntityRate < 0 || c.RepeatEntityRate > 1 {
		return &ConfigError{Field: "repeat_entity_rate", Reason: "must be between 0 and 1"}
	}
	if c.MaxEntities < 1 {
		return &ConfigError{Field: "max_entities", Reason: "must be at least 1"}
	}
	return nil
}

// ConfigError rejects a stream start before any event is produced.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid stream config: %s: %s", e.Field, e.Reason)
}
