package scoring

import "github.com/kr1s57/lookupx/internal/entity"

// Thresholds are inclusive lower bounds, evaluated high to low
const (
	ThresholdHigh   = 75
	ThresholdMedium = 50
	ThresholdLow    = 25
)

// GetRiskLevel converts a score to a risk level
func GetRiskLevel(score int) entity.RiskLevel {
	switch {
	case score >= ThresholdHigh:
		return entity.RiskHigh
	case score >= ThresholdMedium:
		return entity.RiskMedium
	case score >= ThresholdLow:
		return entity.RiskLow
	default:
		return entity.RiskMinimal
	}
}

// GetRecommendation maps a score to the action the caller should take
func GetRecommendation(score int) entity.Recommendation {
	switch GetRiskLevel(score) {
	case entity.RiskHigh:
		return entity.Recommendation{
			Action:         entity.ActionBlock,
			Message:        "High risk detected. Recommend blocking this transaction.",
			RequiresReview: true,
		}
	case entity.RiskMedium:
		return entity.Recommendation{
			Action:         entity.ActionReview,
			Message:        "Medium risk detected. Manual review recommended.",
			RequiresReview: true,
		}
	case entity.RiskLow:
		return entity.Recommendation{
			Action:         entity.ActionMonitor,
			Message:        "Low risk detected. Proceed with monitoring.",
			RequiresReview: false,
		}
	default:
		return entity.Recommendation{
			Action:         entity.ActionAllow,
			Message:        "Minimal risk detected. Safe to proceed.",
			RequiresReview: false,
		}
	}
}
