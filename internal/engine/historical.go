package engine

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"simtom/internal/models"
)

// Calendar is the external holiday collaborator. The allocator only consumes
// holiday names; how their dates are computed is up to the implementation.
type Calendar interface {
	// ActiveHolidays returns the names of holidays and holiday periods
	// covering the given day.
	ActiveHolidays(day time.Time) []string
	IsWeekend(day time.Time) bool
}

// Intra-day mixture: fraction of records per band and band bounds in hours.
// Business hours carry most of the mass, evenings some, nights the rest.
const (
	businessShare = 0.70
	eveningShare  = 0.20

	businessStartHour = 9
	businessEndHour   = 18
	eveningEndHour    = 23
)

// allocateTimestamps maps totalRecords onto [startDate, endDate]: per-day
// weights biased by weekend and holiday multipliers, largest-remainder
// rounding so counts sum exactly to totalRecords, an intra-day band mixture
// for the time of day, and a global ascending sort before emission.
func allocateTimestamps(cfg models.StreamConfig, cal Calendar, rng *rand.Rand) []time.Time {
	total := *cfg.TotalRecords
	if total == 0 {
		return nil
	}

	days := cfg.StartDate.DaysUntil(*cfg.EndDate) + 1
	weights := make([]float64, days)
	for i := range weights {
		day := cfg.StartDate.AddDays(i)
		w := 1.0
		if cal.IsWeekend(day.Time()) {
			w *= cfg.WeekendMultiplier
		}
		for _, name := range cal.ActiveHolidays(day.Time()) {
			if m, ok := cfg.HolidayMultipliers[name]; ok {
				w *= m
			}
		}
		weights[i] = w
	}

	counts := largestRemainder(weights, total)

	timestamps := make([]time.Time, 0, total)
	for i, n := range counts {
		midnight := cfg.StartDate.AddDays(i).Time()
		for j := 0; j < n; j++ {
			timestamps = append(timestamps, midnight.Add(sampleTimeOfDay(rng)))
		}
	}

	sort.Slice(timestamps, func(a, b int) bool { return timestamps[a].Before(timestamps[b]) })
	return timestamps
}

// sampleTimeOfDay draws an offset from midnight using the band mixture:
// uniform within business hours, evenings, or the wrapped night band. All
// offsets stay within the day.
func sampleTimeOfDay(rng *rand.Rand) time.Duration {
	const (
		hour     = time.Hour
		business = (businessEndHour - businessStartHour) * hour
		evening  = (eveningEndHour - businessEndHour) * hour
		night    = 24*hour - business - evening
	)

	u := rng.Float64()
	var start time.Duration
	var span time.Duration
	switch {
	case u < businessShare:
		start, span = businessStartHour*hour, business
	case u < businessShare+eveningShare:
		start, span = businessEndHour*hour, evening
	default:
		// Night wraps: 23:00-24:00 plus 00:00-09:00, sampled as one window.
		off := time.Duration(rng.Float64() * float64(night))
		if off < hour {
			return eveningEndHour*hour + off
		}
		return off - hour
	}
	return start + time.Duration(rng.Float64()*float64(span))
}

// largestRemainder rounds proportional shares to integer counts that sum
// exactly to total. When rounding forces a choice, higher-weight days win.
func largestRemainder(weights []float64, total int) []int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		// Degenerate weighting, fall back to a uniform split.
		for i := range weights {
			weights[i] = 1
		}
		sum = float64(len(weights))
	}

	counts := make([]int, len(weights))
	type remainder struct {
		index    int
		fraction float64
		weight   float64
	}
	remainders := make([]remainder, len(weights))

	assigned := 0
	for i, w := range weights {
		exact := w / sum * float64(total)
		counts[i] = int(math.Floor(exact))
		assigned += counts[i]
		remainders[i] = remainder{index: i, fraction: exact - math.Floor(exact), weight: w}
	}

	sort.SliceStable(remainders, func(a, b int) bool {
		if remainders[a].fraction != remainders[b].fraction {
			return remainders[a].fraction > remainders[b].fraction
		}
		return remainders[a].weight > remainders[b].weight
	})

	for i := 0; i < total-assigned; i++ {
		counts[remainders[i%len(remainders)].index]++
	}
	return counts
}
