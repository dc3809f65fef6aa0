package engine

import (
	"math"
	"math/rand"
	"time"

	"simtom/internal/models"
)

// scheduler produces the sequence of inter-arrival delays for one pattern.
// Delays are logical (simulated) durations; no wall clock is consulted.
type scheduler interface {
	next() time.Duration
}

func newScheduler(cfg models.StreamConfig, rng *rand.Rand, anchor time.Time) scheduler {
	switch cfg.ArrivalPattern {
	case models.PatternPoisson:
		return &poissonScheduler{rng: rng, rate: cfg.RatePerSecond}
	case models.PatternNHPP:
		return &nhppScheduler{
			rng:       rng,
			baseRate:  cfg.RatePerSecond,
			peakStart: float64(cfg.PeakHours[0]),
			peakEnd:   float64(cfg.PeakHours[1]),
			anchor:    anchor,
		}
	case models.PatternBurst:
		return &burstScheduler{
			rng:         rng,
			rate:        cfg.RatePerSecond,
			intensity:   cfg.BurstIntensity,
			probability: cfg.BurstProbability,
		}
	default:
		return uniformScheduler{rate: cfg.RatePerSecond}
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// uniformScheduler emits fixed intervals of 1/rate. No randomness.
type uniformScheduler struct {
	rate float64
}

func (s uniformScheduler) next() time.Duration {
	return secondsToDuration(1.0 / s.rate)
}

// poissonScheduler models a homogeneous Poisson process: i.i.d. exponential
// inter-arrival delays with mean 1/rate.
type poissonScheduler struct {
	rng  *rand.Rand
	rate float64
}

func (s *poissonScheduler) next() time.Duration {
	return secondsToDuration(s.rng.ExpFloat64() / s.rate)
}

// Multiplier bounds for the NHPP rate curve. lambda(t) stays within
// [offPeakMultiplier, peakMultiplier] times the base rate.
const (
	nhppPeakMultiplier    = 3.0
	nhppOffPeakMultiplier = 0.4
)

// nhppScheduler samples a non-homogeneous Poisson process by thinning:
// candidates are drawn from a homogeneous process at the supremum rate
// lambda_max and accepted with probability lambda(t)/lambda_max. Rejected
// candidates consume draws but produce no event.
//
// The time base is the stream's configured anchor, never the wall clock, so
// the delay sequence is reproducible under a fixed seed.
type nhppScheduler struct {
	rng       *rand.Rand
	baseRate  float64
	peakStart float64
	peakEnd   float64
	anchor    time.Time
	elapsed   time.Duration
}

func (s *nhppScheduler) next() time.Duration {
	lambdaMax := s.baseRate * nhppPeakMultiplier
	var offset float64
	for {
		offset += s.rng.ExpFloat64() / lambdaMax
		candidate := s.anchor.Add(s.elapsed + secondsToDuration(offset))
		if s.rng.Float64() <= s.lambda(candidate)/lambdaMax {
			delay := secondsToDuration(offset)
			s.elapsed += delay
			return delay
		}
	}
}

func (s *nhppScheduler) lambda(t time.Time) float64 {
	return s.baseRate * s.multiplier(hourOfDay(t))
}

// multiplier is a smooth curve peaking mid-range of the peak window and
// tapering to the off-peak floor: a Gaussian over the circular hour distance
// from the window's center, with the window half-span as its width.
func (s *nhppScheduler) multiplier(hour float64) float64 {
	span := s.peakEnd - s.peakStart
	if span < 0 {
		span += 24
	}
	center := math.Mod(s.peakStart+span/2, 24)
	width := span / 2
	if width < 1 {
		width = 1
	}
	d := math.Abs(hour - center)
	if d > 12 {
		d = 24 - d
	}
	shape := math.Exp(-(d * d) / (2 * width * width))
	return nhppOffPeakMultiplier + (nhppPeakMultiplier-nhppOffPeakMultiplier)*shape
}

func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

// Burst episode length in ticks, drawn uniformly from [minBurstTicks,
// maxBurstTicks).
const (
	minBurstTicks = 5
	maxBurstTicks = 20
)

// burstScheduler behaves as Poisson at the base rate; at each baseline tick
// an independent draw can start a burst episode during which the effective
// rate is multiplied by the burst intensity. Onset checks are suppressed
// while an episode is active, so episodes never overlap.
type burstScheduler struct {
	rng         *rand.Rand
	rate        float64
	intensity   float64
	probability float64
	remaining   int
}

func (s *burstScheduler) next() time.Duration {
	effective := s.rate
	if s.remaining > 0 {
		s.remaining--
		effective = s.rate * s.intensity
	} else if s.rng.Float64() < s.probability {
		s.remaining = minBurstTicks + s.rng.Intn(maxBurstTicks-minBurstTicks) - 1
		effective = s.rate * s.intensity
	}
	return secondsToDuration(s.rng.ExpFloat64() / effective)
}
