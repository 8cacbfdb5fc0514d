package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntegrationStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    IntegrationStatus
		to      IntegrationStatus
		allowed bool
	}{
		{name: "CONNECTED pode ir para SYNCING", from: IntegrationStatusConnected, to: IntegrationStatusSyncing, allowed: true},
		{name: "SYNCING pode voltar para CONNECTED", from: IntegrationStatusSyncing, to: IntegrationStatusConnected, allowed: true},
		{name: "SYNCING pode ir para ERROR", from: IntegrationStatusSyncing, to: IntegrationStatusError, allowed: true},
		{name: "ERROR pode voltar para CONNECTED", from: IntegrationStatusError, to: IntegrationStatusConnected, allowed: true},
		{name: "CONNECTED não pode ir direto para ERROR", from: IntegrationStatusConnected, to: IntegrationStatusError, allowed: false},
		{name: "ERROR não pode ir para SYNCING", from: IntegrationStatusError, to: IntegrationStatusSyncing, allowed: false},
		{name: "CONNECTED não transiciona para si mesmo", from: IntegrationStatusConnected, to: IntegrationStatusConnected, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestIntegration_IsSyncable(t *testing.T) {
	assert.True(t, (&Integration{Status: IntegrationStatusConnected}).IsSyncable())
	assert.False(t, (&Integration{Status: IntegrationStatusSyncing}).IsSyncable())
	assert.False(t, (&Integration{Status: IntegrationStatusError}).IsSyncable())
}

func TestMetricType_IsRollup(t *testing.T) {
	assert.True(t, MetricCustomersTotal.IsRollup())
	assert.True(t, MetricInventoryTotal.IsRollup())
	assert.True(t, MetricRefundsTotal.IsRollup())

	assert.False(t, MetricRevenue.IsRollup())
	assert.False(t, MetricOrder.IsRollup())
	assert.False(t, MetricSessions.IsRollup())
	assert.False(t, MetricAdSpend.IsRollup())
}

func TestSeverityFromImpact(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected AlertSeverity
	}{
		{name: "9 ou mais é CRITICAL", score: 9.0, expected: AlertSeverityCritical},
		{name: "10 é CRITICAL", score: 10.0, expected: AlertSeverityCritical},
		{name: "8 é HIGH", score: 8.0, expected: AlertSeverityHigh},
		{name: "8.9 é HIGH", score: 8.9, expected: AlertSeverityHigh},
		{name: "6 é MEDIUM", score: 6.0, expected: AlertSeverityMedium},
		{name: "7.5 é MEDIUM", score: 7.5, expected: AlertSeverityMedium},
		{name: "abaixo de 6 é LOW", score: 5.9, expected: AlertSeverityLow},
		{name: "zero é LOW", score: 0, expected: AlertSeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SeverityFromImpact(tt.score))
		})
	}
}
