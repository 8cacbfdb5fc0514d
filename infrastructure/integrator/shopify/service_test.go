package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	shopifydomain "github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/shopify/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/pkg/secrets"
)

// stubClient devolve respostas fixas sem falar com a API da loja
type stubClient struct {
	orders    []shopifydomain.Order
	products  []shopifydomain.Product
	customers []shopifydomain.Customer
	shop      *shopifydomain.Shop
	err       error
}

func (c *stubClient) ListOrders(_ context.Context, _, _ string, _, _ time.Time) ([]shopifydomain.Order, error) {
	return c.orders, c.err
}

func (c *stubClient) ListProducts(_ context.Context, _, _ string) ([]shopifydomain.Product, error) {
	return c.products, c.err
}

func (c *stubClient) ListCustomers(_ context.Context, _, _ string) ([]shopifydomain.Customer, error) {
	return c.customers, c.err
}

func (c *stubClient) GetShop(_ context.Context, _, _ string) (*shopifydomain.Shop, error) {
	return c.shop, c.err
}

func newAdapter(client *stubClient) *ShopifyAdapter {
	cfg := &config.Config{}
	cfg.Shopify.WebhookSecret = "segredo-do-webhook"
	return New(cfg, client)
}

func testIntegration() *domain.Integration {
	return &domain.Integration{
		ID:       "int-1",
		TenantID: "tenant-1",
		Platform: domain.PlatformShopify,
		Metadata: map[string]any{"shop_domain": "loja.myshopify.com"},
	}
}

func testWindow() domain.SyncWindow {
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	return domain.SyncWindow{StartDate: end.AddDate(0, 0, -30), EndDate: end}
}

func TestFetchAndNormalize(t *testing.T) {
	createdAt := time.Date(2026, 8, 10, 14, 30, 0, 0, time.UTC)
	canceledAt := createdAt.Add(time.Hour)

	client := &stubClient{
		orders: []shopifydomain.Order{
			{ID: 1, TotalPrice: "150.00", Currency: "BRL", CreatedAt: createdAt},
			{ID: 2, TotalPrice: "80.00", Currency: "BRL", CreatedAt: createdAt, CanceledAt: &canceledAt},
			{ID: 3, TotalPrice: "preço-inválido", Currency: "BRL", CreatedAt: createdAt},
		},
		products: []shopifydomain.Product{
			{ID: 10, Variants: []shopifydomain.Variant{{InventoryQuantity: 5}, {InventoryQuantity: 7}}},
		},
		customers: []shopifydomain.Customer{{ID: 20}, {ID: 21}},
		shop:      &shopifydomain.Shop{Name: "Loja Teste", Domain: "loja.myshopify.com", Currency: "BRL"},
	}

	result, err := newAdapter(client).FetchAndNormalize(context.Background(), testIntegration(), &secrets.Credentials{AccessToken: "token"}, testWindow())
	require.NoError(t, err)

	// só o pedido 1 conta: cancelado e preço inválido são pulados
	byMetric := map[domain.MetricType][]*domain.DataPoint{}
	for _, point := range result.DataPoints {
		assert.Equal(t, "tenant-1", point.TenantID)
		assert.Equal(t, "int-1", point.IntegrationID)
		byMetric[point.MetricType] = append(byMetric[point.MetricType], point)
	}

	require.Len(t, byMetric[domain.MetricRevenue], 1)
	assert.Equal(t, 150.0, byMetric[domain.MetricRevenue][0].Value)
	assert.Equal(t, createdAt, byMetric[domain.MetricRevenue][0].OccurredAt)

	require.Len(t, byMetric[domain.MetricOrder], 1)
	assert.Equal(t, 1.0, byMetric[domain.MetricOrder][0].Value)

	require.Len(t, byMetric[domain.MetricCustomersTotal], 1)
	assert.Equal(t, 2.0, byMetric[domain.MetricCustomersTotal][0].Value)

	require.Len(t, byMetric[domain.MetricInventoryTotal], 1)
	assert.Equal(t, 12.0, byMetric[domain.MetricInventoryTotal][0].Value)

	assert.Equal(t, "Loja Teste", result.Metadata["shop_name"])
}

func TestFetchAndNormalize_PedidosNoMesmoSegundoColapsam(t *testing.T) {
	createdAt := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	client := &stubClient{
		orders: []shopifydomain.Order{
			{ID: 1, TotalPrice: "150.00", Currency: "BRL", CreatedAt: createdAt},
			{ID: 2, TotalPrice: "80.00", Currency: "BRL", CreatedAt: createdAt},
		},
	}

	result, err := newAdapter(client).FetchAndNormalize(context.Background(), testIntegration(), &secrets.Credentials{AccessToken: "token"}, testWindow())
	require.NoError(t, err)

	// um ponto por (métrica, segundo): o batch nunca carrega chave duplicada
	seen := map[string]bool{}
	byMetric := map[domain.MetricType]*domain.DataPoint{}
	for _, point := range result.DataPoints {
		key := string(point.MetricType) + "|" + point.OccurredAt.UTC().Format(time.RFC3339Nano)
		require.False(t, seen[key], "chave de idempotência duplicada no batch: %s", key)
		seen[key] = true
		byMetric[point.MetricType] = point
	}

	require.NotNil(t, byMetric[domain.MetricRevenue])
	assert.Equal(t, 230.0, byMetric[domain.MetricRevenue].Value)
	assert.Equal(t, map[string]any{"records": 2}, byMetric[domain.MetricRevenue].Metadata)

	require.NotNil(t, byMetric[domain.MetricOrder])
	assert.Equal(t, 2.0, byMetric[domain.MetricOrder].Value)
}

func TestFetchAndNormalize_LojaSemPedidos(t *testing.T) {
	client := &stubClient{
		shop: &shopifydomain.Shop{Name: "Loja Vazia", Domain: "loja.myshopify.com"},
	}

	result, err := newAdapter(client).FetchAndNormalize(context.Background(), testIntegration(), &secrets.Credentials{AccessToken: "token"}, testWindow())
	require.NoError(t, err)

	// sem pedidos ainda há os rollups de snapshot zerados
	assert.Len(t, result.DataPoints, 2)
}

func TestFetchAndNormalize_SemShopDomain(t *testing.T) {
	integration := testIntegration()
	integration.Metadata = nil

	_, err := newAdapter(&stubClient{}).FetchAndNormalize(context.Background(), integration, &secrets.Credentials{}, testWindow())
	assert.Error(t, err)
}

func TestFetchAndNormalize_PropagaErroDoCliente(t *testing.T) {
	client := &stubClient{err: integrator.ErrAuthentication}

	_, err := newAdapter(client).FetchAndNormalize(context.Background(), testIntegration(), &secrets.Credentials{AccessToken: "token"}, testWindow())
	assert.ErrorIs(t, err, integrator.ErrAuthentication)
}

func TestVerifySignature(t *testing.T) {
	adapter := newAdapter(&stubClient{})
	payload := []byte(`{"id":123}`)

	mac := hmac.New(sha256.New, []byte("segredo-do-webhook"))
	mac.Write(payload)
	valid := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.NoError(t, adapter.VerifySignature(payload, valid))
	assert.True(t, errors.Is(adapter.VerifySignature(payload, "assinatura-falsa"), integrator.ErrInvalidSignature))
}

func TestMapWebhookEvent(t *testing.T) {
	adapter := newAdapter(&stubClient{})

	tests := []struct {
		name      string
		eventType string
		payload   string
		handled   bool
		check     func(t *testing.T, event *integrator.WebhookEvent)
	}{
		{
			name:      "pedido criado vira ponto de receita",
			eventType: "orders/create",
			payload:   `{"id":123,"total_price":"150.00","currency":"BRL","created_at":"2026-08-10T14:30:00Z"}`,
			handled:   true,
			check: func(t *testing.T, event *integrator.WebhookEvent) {
				require.NotNil(t, event.DataPoint)
				assert.Equal(t, domain.MetricRevenue, event.DataPoint.MetricType)
				assert.Equal(t, 150.0, event.DataPoint.Value)
				assert.Equal(t, time.Date(2026, 8, 10, 14, 30, 0, 0, time.UTC), event.DataPoint.OccurredAt)
			},
		},
		{
			name:      "atualização da loja vira metadata",
			eventType: "shop/update",
			payload:   `{"name":"Loja Renomeada","myshopify_domain":"loja.myshopify.com","currency":"BRL"}`,
			handled:   true,
			check: func(t *testing.T, event *integrator.WebhookEvent) {
				assert.Nil(t, event.DataPoint)
				assert.Equal(t, "Loja Renomeada", event.Metadata["shop_name"])
			},
		},
		{
			name:      "evento fora do escopo é ignorado",
			eventType: "themes/publish",
			payload:   `{}`,
			handled:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, handled, err := adapter.MapWebhookEvent(tt.eventType, []byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.handled, handled)
			if tt.check != nil {
				tt.check(t, event)
			}
		})
	}
}

func TestMapWebhookEvent_PayloadInvalido(t *testing.T) {
	adapter := newAdapter(&stubClient{})

	_, handled, err := adapter.MapWebhookEvent("orders/create", []byte(`{"total_price":"abc"}`))
	assert.True(t, handled)
	assert.Error(t, err)
}
