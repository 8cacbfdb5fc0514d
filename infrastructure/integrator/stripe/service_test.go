package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/stripe/stripeclient"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/pkg/secrets"
)

type stubClient struct {
	charges []stripeclient.Charge
	err     error
}

func (c *stubClient) ListCharges(_ context.Context, _ string, _, _ time.Time) ([]stripeclient.Charge, error) {
	return c.charges, c.err
}

func newAdapter(client *stubClient) *StripeAdapter {
	cfg := &config.Config{}
	cfg.Stripe.WebhookSecret = "whsec_teste"
	return New(cfg, client)
}

func TestFetchAndNormalize(t *testing.T) {
	created := time.Date(2026, 8, 10, 14, 30, 0, 0, time.UTC)

	client := &stubClient{
		charges: []stripeclient.Charge{
			{ID: "ch_1", Amount: 15000, AmountRefunded: 2000, Currency: "brl", Status: "succeeded", Created: created.Unix()},
			{ID: "ch_2", Amount: 9900, Currency: "brl", Status: "failed", Created: created.Unix()},
		},
	}

	integration := &domain.Integration{ID: "int-1", TenantID: "tenant-1", Platform: domain.PlatformStripe}
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	window := domain.SyncWindow{StartDate: end.AddDate(0, 0, -30), EndDate: end}

	result, err := newAdapter(client).FetchAndNormalize(context.Background(), integration, &secrets.Credentials{APIKey: "sk_test"}, window)
	require.NoError(t, err)

	// cobrança falhada é pulada: receita + pagamento da ch_1 e o rollup de estornos
	require.Len(t, result.DataPoints, 3)

	revenue := result.DataPoints[0]
	assert.Equal(t, domain.MetricRevenue, revenue.MetricType)
	assert.Equal(t, 150.0, revenue.Value)
	assert.Equal(t, "BRL", revenue.Currency)
	assert.Equal(t, created, revenue.OccurredAt)

	payment := result.DataPoints[1]
	assert.Equal(t, domain.MetricPayment, payment.MetricType)
	assert.Equal(t, 1.0, payment.Value)

	refunds := result.DataPoints[2]
	assert.Equal(t, domain.MetricRefundsTotal, refunds.MetricType)
	assert.Equal(t, 20.0, refunds.Value)
	assert.Equal(t, end, refunds.OccurredAt)
}

func TestFetchAndNormalize_CobrancasNoMesmoSegundoColapsam(t *testing.T) {
	created := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	client := &stubClient{
		charges: []stripeclient.Charge{
			{ID: "ch_1", Amount: 15000, Currency: "brl", Status: "succeeded", Created: created.Unix()},
			{ID: "ch_2", Amount: 8000, Currency: "brl", Status: "succeeded", Created: created.Unix()},
		},
	}

	integration := &domain.Integration{ID: "int-1", TenantID: "tenant-1", Platform: domain.PlatformStripe}
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	window := domain.SyncWindow{StartDate: end.AddDate(0, 0, -30), EndDate: end}

	result, err := newAdapter(client).FetchAndNormalize(context.Background(), integration, &secrets.Credentials{APIKey: "sk_test"}, window)
	require.NoError(t, err)

	// receita somada, pagamentos contados e o rollup de estornos: três pontos,
	// nenhum par (métrica, segundo) repetido
	require.Len(t, result.DataPoints, 3)

	revenue := result.DataPoints[0]
	assert.Equal(t, domain.MetricRevenue, revenue.MetricType)
	assert.Equal(t, 230.0, revenue.Value)

	payment := result.DataPoints[1]
	assert.Equal(t, domain.MetricPayment, payment.MetricType)
	assert.Equal(t, 2.0, payment.Value)
}

func signPayload(secret string, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", timestamp, payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	adapter := newAdapter(&stubClient{})
	payload := []byte(`{"id":"evt_1"}`)
	timestamp := "1767225600"

	valid := fmt.Sprintf("t=%s,v1=%s", timestamp, signPayload("whsec_teste", timestamp, payload))
	assert.NoError(t, adapter.VerifySignature(payload, valid))

	tests := []struct {
		name      string
		signature string
	}{
		{name: "hmac incorreto", signature: fmt.Sprintf("t=%s,v1=deadbeef", timestamp)},
		{name: "segredo diferente", signature: fmt.Sprintf("t=%s,v1=%s", timestamp, signPayload("whsec_outro", timestamp, payload))},
		{name: "timestamp adulterado", signature: fmt.Sprintf("t=999,v1=%s", signPayload("whsec_teste", timestamp, payload))},
		{name: "sem timestamp", signature: "v1=deadbeef"},
		{name: "formato vazio", signature: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, adapter.VerifySignature(payload, tt.signature), integrator.ErrInvalidSignature)
		})
	}
}

func TestMapWebhookEvent_CobrancaConfirmada(t *testing.T) {
	adapter := newAdapter(&stubClient{})

	payload := []byte(`{"data":{"object":{"id":"ch_1","amount":15000,"currency":"brl","status":"succeeded","created":1767225600}}}`)

	event, handled, err := adapter.MapWebhookEvent("charge.succeeded", payload)
	require.NoError(t, err)
	assert.True(t, handled)

	require.NotNil(t, event.DataPoint)
	assert.Equal(t, domain.MetricRevenue, event.DataPoint.MetricType)
	assert.Equal(t, 150.0, event.DataPoint.Value)
	assert.Equal(t, "BRL", event.DataPoint.Currency)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), event.DataPoint.OccurredAt)
}

func TestMapWebhookEvent_EventoForaDoEscopo(t *testing.T) {
	adapter := newAdapter(&stubClient{})

	event, handled, err := adapter.MapWebhookEvent("customer.created", []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Nil(t, event)
}
