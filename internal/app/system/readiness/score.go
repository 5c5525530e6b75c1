// internal/app/system/readiness/score.go
package readiness

import (
	"math"

	"github.com/dalemusser/surveytrack/internal/domain/models"
)

// MaxScore is the highest achievable score.
const MaxScore = 100.0

// DomainScore is the points earned in one domain.
type DomainScore struct {
	Domain Domain  `json:"domain"`
	Points float64 `json:"points"`
	Max    float64 `json:"max"`
}

// Percent is Points as a percentage of Max.
func (d DomainScore) Percent() float64 {
	if d.Max == 0 {
		return 0
	}
	return Round(d.Points / d.Max * 100)
}

// Score returns the readiness score of in, in [0, 100], rounded to two
// decimals.
func Score(in models.Indicators) float64 {
	total := 0.0
	for _, r := range Rules {
		total += r.Points(in)
	}
	return Round(math.Max(0, math.Min(MaxScore, total)))
}

// Breakdown returns the points per domain, in Domains order.
func Breakdown(in models.Indicators) []DomainScore {
	out := make([]DomainScore, len(Domains))
	idx := make(map[Domain]int, len(Domains))
	for i, d := range Domains {
		out[i].Domain = d
		idx[d] = i
	}
	for _, r := range Rules {
		i := idx[r.Domain]
		out[i].Points += r.Points(in)
		out[i].Max += r.Max
	}
	return out
}

// DomainMax returns the maximum points of each domain.
func DomainMax() map[Domain]float64 {
	m := make(map[Domain]float64, len(Domains))
	for _, r := range Rules {
		m[r.Domain] += r.Max
	}
	return m
}

// Round rounds to two decimals.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}
