package integrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
)

func TestMergeByOccurrence(t *testing.T) {
	sameSecond := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	otherSecond := sameSecond.Add(time.Second)

	points := []*domain.DataPoint{
		{MetricType: domain.MetricRevenue, Value: 150, Metadata: map[string]any{"order_id": int64(1)}, OccurredAt: sameSecond},
		{MetricType: domain.MetricOrder, Value: 1, OccurredAt: sameSecond},
		{MetricType: domain.MetricRevenue, Value: 80, Metadata: map[string]any{"order_id": int64(2)}, OccurredAt: sameSecond},
		{MetricType: domain.MetricOrder, Value: 1, OccurredAt: sameSecond},
		{MetricType: domain.MetricRevenue, Value: 40, OccurredAt: otherSecond},
	}

	merged := MergeByOccurrence(points)
	require.Len(t, merged, 3)

	// granulares no mesmo segundo somam em um único ponto
	assert.Equal(t, domain.MetricRevenue, merged[0].MetricType)
	assert.Equal(t, 230.0, merged[0].Value)
	assert.Equal(t, map[string]any{"records": 2}, merged[0].Metadata)

	assert.Equal(t, domain.MetricOrder, merged[1].MetricType)
	assert.Equal(t, 2.0, merged[1].Value)

	// segundos distintos não se tocam
	assert.Equal(t, 40.0, merged[2].Value)
}

func TestMergeByOccurrence_RollupFicaComUltimoValor(t *testing.T) {
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	merged := MergeByOccurrence([]*domain.DataPoint{
		{MetricType: domain.MetricCustomersTotal, Value: 100, OccurredAt: at},
		{MetricType: domain.MetricCustomersTotal, Value: 120, OccurredAt: at},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, 120.0, merged[0].Value)
}

func TestMergeByOccurrence_SemColisaoNaoAltera(t *testing.T) {
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	points := []*domain.DataPoint{
		{MetricType: domain.MetricRevenue, Value: 150, Metadata: map[string]any{"order_id": int64(1)}, OccurredAt: at},
		{MetricType: domain.MetricOrder, Value: 1, OccurredAt: at},
	}

	merged := MergeByOccurrence(points)
	require.Len(t, merged, 2)
	assert.Equal(t, 150.0, merged[0].Value)
	assert.Equal(t, map[string]any{"order_id": int64(1)}, merged[0].Metadata)
}
