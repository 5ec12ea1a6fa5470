package stats

import (
	"database/sql"
	"math"
	"sort"
)

type FloatStats struct {
	min, max sql.NullFloat64
	sum      float64
	values   []float64
}

func (s *FloatStats) Add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	s.values = append(s.values, v)

	// update max
	if !s.max.Valid || v > s.max.Float64 {
		s.max.Float64 = v
		s.max.Valid = true
	}

	// update min
	if !s.min.Valid || v < s.min.Float64 {
		s.min.Float64 = v
		s.min.Valid = true
	}

	s.sum += v
}

func (s *FloatStats) Len() int {
	return len(s.values)
}

func (s *FloatStats) Min() sql.NullFloat64 {
	return s.min
}

func (s *FloatStats) Max() sql.NullFloat64 {
	return s.max
}

func (s *FloatStats) Mean() sql.NullFloat64 {
	if len(s.values) == 0 {
		return sql.NullFloat64{
			Valid: false,
		}
	}

	return sql.NullFloat64{
		Valid:   true,
		Float64: s.sum / float64(len(s.values)),
	}
}

func (s *FloatStats) Median() sql.NullFloat64 {
	n := len(s.values)
	if n == 0 {
		return sql.NullFloat64{}
	}
	sorted := make([]float64, n)
	copy(sorted, s.values)
	sort.Float64s(sorted)

	m := sorted[n/2]
	if n%2 == 0 {
		m = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sql.NullFloat64{
		Valid:   true,
		Float64: m,
	}
}

// Std is the population standard deviation
func (s *FloatStats) Std() sql.NullFloat64 {
	mean := s.Mean()
	if !mean.Valid {
		return mean
	}
	var sq float64
	for _, v := range s.values {
		d := v - mean.Float64
		sq += d * d
	}
	return sql.NullFloat64{
		Valid:   true,
		Float64: math.Sqrt(sq / float64(len(s.values))),
	}
}

// Summary renders the statistics in a JSON friendly form; absent values are zero.
func (s *FloatStats) Summary() FloatSummary {
	return FloatSummary{
		Count:  s.Len(),
		Min:    s.Min().Float64,
		Max:    s.Max().Float64,
		Mean:   s.Mean().Float64,
		Median: s.Median().Float64,
		Std:    s.Std().Float64,
	}
}

func NewFloatStats() FloatStats {
	return FloatStats{
		values: []float64{},
	}
}

type FloatSummary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}

type IntStats struct {
	min, max, sum sql.NullInt64
	values        []int64
}

func (s *IntStats) Add(val int) {
	v := int64(val)
	s.values = append(s.values, v)

	// update max
	if !s.max.Valid || v > s.max.Int64 {
		s.max.Int64 = v
		s.max.Valid = true
	}

	// update min
	if !s.min.Valid || v < s.min.Int64 {
		s.min.Int64 = v
		s.min.Valid = true
	}

	// update sum
	s.sum.Valid = true
	s.sum.Int64 += v
}

func (s *IntStats) Len() int {
	return len(s.values)
}

func (s *IntStats) Min() sql.NullInt64 {
	return s.min
}

func (s *IntStats) Max() sql.NullInt64 {
	return s.max
}

func (s *IntStats) Mean() sql.NullFloat64 {
	if len(s.values) == 0 {
		return sql.NullFloat64{
			Valid: false,
		}
	}

	return sql.NullFloat64{
		Valid:   true,
		Float64: float64(s.sum.Int64) / float64(len(s.values)),
	}
}

func NewIntStats() IntStats {
	return IntStats{
		values: []int64{},
		min:    sql.NullInt64{},
		max:    sql.NullInt64{},
		sum:    sql.NullInt64{},
	}
}

// Counter counts occurrences of string values
type Counter struct {
	counts map[string]int
	total  int
}

func (c *Counter) Add(val string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[val]++
	c.total++
}

func (c *Counter) Count(val string) int {
	return c.counts[val]
}

func (c *Counter) Total() int {
	return c.total
}

// Uniques returns the distinct values in sorted order
func (c *Counter) Uniques() []string {
	uniques := make([]string, 0, len(c.counts))
	for k := range c.counts {
		uniques = append(uniques, k)
	}
	sort.Strings(uniques)
	return uniques
}

func (c *Counter) UniqueLen() int {
	return len(c.counts)
}

// Distribution returns the share of every value, in [0, 1]
func (c *Counter) Distribution() map[string]float64 {
	dist := make(map[string]float64, len(c.counts))
	for k, n := range c.counts {
		dist[k] = float64(n) / float64(c.total)
	}
	return dist
}

func (c *Counter) Counts() map[string]int {
	counts := make(map[string]int, len(c.counts))
	for k, n := range c.counts {
		counts[k] = n
	}
	return counts
}

func NewCounter() Counter {
	return Counter{
		counts: make(map[string]int),
	}
}
