package scoring

import (
	"math"

	"github.com/kr1s57/lookupx/internal/entity"
)

// Contribution is the normalized answer of one successful provider
type Contribution struct {
	Provider string
	Weight   float64
	Score    int // 0-100
	Factors  []string
}

// Aggregate is the combined score of a set of contributions
type Aggregate struct {
	Score   int
	Factors []string
}

// Combine computes the weighted average of the contributions.
// The divisor is the weight of the providers that answered, so a provider
// outage shifts its influence to the remaining ones instead of pulling the
// score toward zero. Factors keep contribution order.
func Combine(contributions []Contribution) Aggregate {
	var totalWeight float64
	var weightedSum float64
	factors := []string{}

	for _, c := range contributions {
		if c.Weight <= 0 {
			continue
		}
		totalWeight += c.Weight
		weightedSum += float64(clamp(c.Score)) * c.Weight
		factors = append(factors, c.Factors...)
	}

	if totalWeight == 0 {
		return Aggregate{
			Score:   0,
			Factors: []string{entity.NoDataFactor},
		}
	}

	return Aggregate{
		Score:   clamp(int(math.Round(weightedSum / totalWeight))),
		Factors: factors,
	}
}

func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
