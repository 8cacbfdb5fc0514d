package domain

import "time"

// InsightCategory classifica o tipo de insight derivado
type InsightCategory string

const (
	InsightCategoryTrend          InsightCategory = "TREND"
	InsightCategoryAnomaly        InsightCategory = "ANOMALY"
	InsightCategoryRecommendation InsightCategory = "RECOMMENDATION"
	InsightCategoryAlert          InsightCategory = "ALERT"
)

// Insight é uma afirmação derivada sobre a tendência/anomalia de uma métrica do tenant
type Insight struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Category    InsightCategory `json:"category"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ImpactScore float64         `json:"impact_score"` // 0 a 10
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
