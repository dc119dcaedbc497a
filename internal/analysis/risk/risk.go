// Package risk classifies a symbol's analysis into Low, Medium or High risk
// by adding up points for warning signs.
package risk

import (
	"fmt"

	"github.com/seenimoa/finsum/pkg/models"
)

// Point weights and thresholds.
const (
	PointsPerNegativeItem = 20
	PointsSharpDrop       = 40
	PointsGloomyNews      = 30

	SharpDropPct         = -2.0 // change_pct strictly below this is a sharp drop
	GloomySentimentLevel = -0.2 // avg sentiment strictly below this is gloomy

	HighThreshold   = 70
	MediumThreshold = 30
)

// Assessment is the outcome of Evaluate.
type Assessment struct {
	Level   models.RiskLevel `json:"level"`
	Points  int              `json:"points"`
	Factors []string         `json:"factors,omitempty"`
}

// Evaluate scores a fully sentiment-labelled analysis. The result depends only
// on the news labels, the daily change and the average sentiment.
func Evaluate(a *models.StockAnalysis) Assessment {
	var (
		points  int
		factors []string
	)

	if n := a.NegativeNewsCount(); n > 0 {
		points += n * PointsPerNegativeItem
		factors = append(factors, fmt.Sprintf("%d negative headline(s)", n))
	}
	if a.ChangePct < SharpDropPct {
		points += PointsSharpDrop
		factors = append(factors, fmt.Sprintf("daily change %.2f%%", a.ChangePct))
	}
	if a.AvgSentiment < GloomySentimentLevel {
		points += PointsGloomyNews
		factors = append(factors, fmt.Sprintf("average sentiment %.3f", a.AvgSentiment))
	}

	return Assessment{Level: LevelFor(points), Points: points, Factors: factors}
}

// LevelFor maps accumulated points to a level.
func LevelFor(points int) models.RiskLevel {
	switch {
	case points >= HighThreshold:
		return models.RiskHigh
	case points >= MediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
