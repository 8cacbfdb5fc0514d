package domain

import "time"

// AlertSeverity representa a severidade de um alerta
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityMedium   AlertSeverity = "MEDIUM"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// Alert é uma escalação derivada de um Insight de alto impacto
type Alert struct {
	ID        string
	TenantID  string
	InsightID string
	Severity  AlertSeverity
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// SeverityFromImpact mapeia deterministicamente o impact score para a severidade
func SeverityFromImpact(score float64) AlertSeverity {
	switch {
	case score >= 9:
		return AlertSeverityCritical
	case score >= 8:
		return AlertSeverityHigh
	case score >= 6:
		return AlertSeverityMedium
	default:
		return AlertSeverityLow
	}
}
