package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
)

func TestPermanent(t *testing.T) {
	base := errors.New("credenciais revogadas")

	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)

	// erro envolvido por camadas acima continua permanente
	wrapped := fmt.Errorf("erro ao sincronizar: %w", err)
	assert.True(t, IsPermanent(wrapped))

	assert.False(t, IsPermanent(base))
	assert.False(t, IsPermanent(nil))
	assert.Nil(t, Permanent(nil))
}

func TestDecodePayload(t *testing.T) {
	job := &domain.Job{
		Type: domain.JobTypeDataSync,
		Payload: map[string]any{
			"integration_id": "int-1",
			"tenant_id":      "tenant-1",
			"platform":       "shopify",
			"sync_type":      "full",
		},
	}

	params := domain.DataSyncJob{}
	require.NoError(t, DecodePayload(job, &params))

	assert.Equal(t, "int-1", params.IntegrationID)
	assert.Equal(t, "tenant-1", params.TenantID)
	assert.Equal(t, domain.PlatformShopify, params.Platform)
	assert.Equal(t, domain.SyncTypeFull, params.SyncType)
}

func TestDecodePayload_NumerosDeJSONB(t *testing.T) {
	// payloads persistidos em JSONB voltam com números como float64
	job := &domain.Job{
		Type: domain.JobTypeInsightsGeneration,
		Payload: map[string]any{
			"tenant_id":        "tenant-1",
			"period":           float64(30),
			"force_regenerate": true,
		},
	}

	params := domain.InsightsGenerationJob{}
	require.NoError(t, DecodePayload(job, &params))

	assert.Equal(t, 30, params.Period)
	assert.True(t, params.ForceRegenerate)
}

func TestBackoffDelay(t *testing.T) {
	service := &Service{}
	service.cfg.BackoffBaseSeconds = 30
	service.cfg.BackoffMaxSeconds = 1800

	tests := []struct {
		attempts int
		expected string
	}{
		{attempts: 1, expected: "30s"},
		{attempts: 2, expected: "1m0s"},
		{attempts: 3, expected: "2m0s"},
		{attempts: 4, expected: "4m0s"},
		{attempts: 10, expected: "30m0s"}, // saturado no teto
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("tentativa %d", tt.attempts), func(t *testing.T) {
			assert.Equal(t, tt.expected, service.backoffDelay(tt.attempts).String())
		})
	}
}
