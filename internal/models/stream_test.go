package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestApplyDefaults(t *testing.T) {
	var cfg StreamConfig
	cfg.ApplyDefaults()

	assert.Equal(t, 1.0, cfg.RatePerSecond)
	assert.Equal(t, PatternUniform, cfg.ArrivalPattern)
	assert.Equal(t, 1.0, cfg.TimeCompression)
	assert.Equal(t, [2]int{12, 20}, *cfg.PeakHours)
	assert.Equal(t, 2.0, cfg.BurstIntensity)
	assert.Equal(t, 0.1, cfg.BurstProbability)
	assert.Equal(t, 1.0, cfg.WeekendMultiplier)
	assert.Equal(t, 0.7, cfg.RepeatEntityRate)
	assert.Equal(t, 10_000, cfg.MaxEntities)
	assert.Nil(t, cfg.TotalRecords, "no default record cap; streams may be unbounded")
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := StreamConfig{
		RatePerSecond:  50,
		ArrivalPattern: PatternBurst,
		PeakHours:      &[2]int{8, 10},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, 50.0, cfg.RatePerSecond)
	assert.Equal(t, PatternBurst, cfg.ArrivalPattern)
	assert.Equal(t, [2]int{8, 10}, *cfg.PeakHours)
}

func validConfig() StreamConfig {
	cfg := StreamConfig{RatePerSecond: 10}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejections(t *testing.T) {
	start := NewDate(2024, time.January, 1)
	end := NewDate(2024, time.June, 1)
	farEnd := NewDate(2025, time.June, 1)
	before := NewDate(2023, time.December, 1)

	cases := []struct {
		name   string
		mutate func(*StreamConfig)
		field  string
	}{
		{"rate too low", func(c *StreamConfig) { c.RatePerSecond = 0.01 }, "rate_per_second"},
		{"rate too high", func(c *StreamConfig) { c.RatePerSecond = 5000 }, "rate_per_second"},
		{"unknown pattern", func(c *StreamConfig) { c.ArrivalPattern = "spiky" }, "arrival_pattern"},
		{"negative total", func(c *StreamConfig) { c.TotalRecords = intPtr(-1) }, "total_records"},
		{"compression too low", func(c *StreamConfig) { c.TimeCompression = 0.01 }, "time_compression"},
		{"peak hour out of range", func(c *StreamConfig) { c.PeakHours = &[2]int{12, 24} }, "peak_hours"},
		{"intensity below one", func(c *StreamConfig) { c.BurstIntensity = 0.5 }, "burst_intensity"},
		{"probability above one", func(c *StreamConfig) { c.BurstProbability = 1.5 }, "burst_probability"},
		{"start date without end", func(c *StreamConfig) { c.StartDate = &start }, "start_date"},
		{"end before start", func(c *StreamConfig) {
			c.StartDate = &end
			c.EndDate = &start
			c.TotalRecords = intPtr(10)
		}, "end_date"},
		{"span too long", func(c *StreamConfig) {
			c.StartDate = &start
			c.EndDate = &farEnd
			c.TotalRecords = intPtr(10)
		}, "end_date"},
		{"historical without total", func(c *StreamConfig) {
			c.StartDate = &before
			c.EndDate = &start
		}, "total_records"},
		{"bad holiday multiplier", func(c *StreamConfig) {
			c.HolidayMultipliers = map[string]float64{"black_friday": -2}
		}, "holiday_multipliers"},
		{"bad weekend multiplier", func(c *StreamConfig) { c.WeekendMultiplier = -1 }, "weekend_multiplier"},
		{"repeat rate above one", func(c *StreamConfig) { c.RepeatEntityRate = 1.5 }, "repeat_entity_rate"},
		{"zero entity cap", func(c *StreamConfig) { c.MaxEntities = -3 }, "max_entities"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestValidateWithoutDefaults(t *testing.T) {
	// Validate must hold its ConfigError contract even for configs that
	// never went through ApplyDefaults, nil peak_hours included.
	cfg := StreamConfig{
		RatePerSecond:     10,
		ArrivalPattern:    PatternUniform,
		TimeCompression:   1,
		BurstIntensity:    1,
		WeekendMultiplier: 1,
		MaxEntities:       1,
	}

	assert.NotPanics(t, func() {
		assert.NoError(t, cfg.Validate())
	})
}

func TestHistorical(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.Historical())

	start := NewDate(2024, time.January, 1)
	cfg.StartDate = &start
	assert.True(t, cfg.Historical())
}

func TestValidateAcceptsHistoricalRange(t *testing.T) {
	cfg := validConfig()
	start := NewDate(2024, time.January, 1)
	end := NewDate(2024, time.December, 31)
	cfg.StartDate = &start
	cfg.EndDate = &end
	cfg.TotalRecords = intPtr(1000)
	cfg.HolidayMultipliers = map[string]float64{"black_friday": 5.0}

	assert.NoError(t, cfg.Validate())
}
