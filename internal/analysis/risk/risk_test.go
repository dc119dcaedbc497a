package risk

import (
	"testing"

	"github.com/seenimoa/finsum/pkg/models"
)

func news(labels ...models.SentimentLabel) []models.NewsItem {
	items := make([]models.NewsItem, len(labels))
	for i, l := range labels {
		items[i] = models.NewsItem{Title: "headline", LocalSentiment: l}
	}
	return items
}

func TestEvaluate(t *testing.T) {
	neg, pos, neu := models.SentimentNegative, models.SentimentPositive, models.SentimentNeutral

	tests := []struct {
		name       string
		analysis   models.StockAnalysis
		wantPoints int
		wantLevel  models.RiskLevel
	}{
		{
			name: "two negatives, sharp drop, gloomy average",
			analysis: models.StockAnalysis{
				News:         news(neg, neg, pos),
				ChangePct:    -3.0,
				AvgSentiment: -0.3,
			},
			wantPoints: 110,
			wantLevel:  models.RiskHigh,
		},
		{
			name: "calm day, no negatives",
			analysis: models.StockAnalysis{
				News:         news(pos, pos, neu, neu, neu),
				ChangePct:    1.0,
				AvgSentiment: 0.1,
			},
			wantPoints: 0,
			wantLevel:  models.RiskLow,
		},
		{
			name: "one negative only",
			analysis: models.StockAnalysis{
				News:         news(neg, pos, pos, neu, neu),
				ChangePct:    0.5,
				AvgSentiment: 0.0,
			},
			wantPoints: 20,
			wantLevel:  models.RiskLow,
		},
		{
			name:       "drop of exactly two percent is not sharp",
			analysis:   models.StockAnalysis{ChangePct: -2.0, AvgSentiment: -0.2},
			wantPoints: 0,
			wantLevel:  models.RiskLow,
		},
		{
			name:       "sharp drop alone is medium",
			analysis:   models.StockAnalysis{ChangePct: -2.01},
			wantPoints: 40,
			wantLevel:  models.RiskMedium,
		},
		{
			name: "sharp drop with gloomy news reaches high",
			analysis: models.StockAnalysis{
				ChangePct:    -5,
				AvgSentiment: -0.25,
			},
			wantPoints: 70,
			wantLevel:  models.RiskHigh,
		},
		{
			name:       "no news at all",
			analysis:   models.StockAnalysis{},
			wantPoints: 0,
			wantLevel:  models.RiskLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(&tt.analysis)
			if got.Points != tt.wantPoints {
				t.Errorf("Points: got %d, want %d", got.Points, tt.wantPoints)
			}
			if got.Level != tt.wantLevel {
				t.Errorf("Level: got %s, want %s", got.Level, tt.wantLevel)
			}
			if tt.wantPoints > 0 && len(got.Factors) == 0 {
				t.Error("expected contributing factors to be listed")
			}
		})
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points int
		want   models.RiskLevel
	}{
		{0, models.RiskLow},
		{29, models.RiskLow},
		{30, models.RiskMedium},
		{69, models.RiskMedium},
		{70, models.RiskHigh},
		{200, models.RiskHigh},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.points); got != tt.want {
			t.Errorf("LevelFor(%d) = %s, want %s", tt.points, got, tt.want)
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	a := models.StockAnalysis{News: news(models.SentimentNegative), ChangePct: -2.5, AvgSentiment: -0.4}
	first := Evaluate(&a)
	for i := 0; i < 10; i++ {
		if got := Evaluate(&a); got.Points != first.Points || got.Level != first.Level {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}
