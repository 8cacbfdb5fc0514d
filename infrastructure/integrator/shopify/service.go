package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	shopifydomain "github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/shopify/domain"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/shopify/shopifyclient"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/pkg/secrets"
)

// ShopifyAdapter integra a plataforma de e-commerce ao modelo canônico de métricas
type ShopifyAdapter struct {
	cfg    *config.Config
	Client shopifyclient.Client
}

func New(cfg *config.Config, client shopifyclient.Client) *ShopifyAdapter {
	return &ShopifyAdapter{
		cfg:    cfg,
		Client: client,
	}
}

func (s *ShopifyAdapter) Platform() domain.Platform {
	return domain.PlatformShopify
}

// FetchAndNormalize busca pedidos, produtos, clientes e metadados da loja em
// paralelo e junta tudo em memória antes de normalizar
func (s *ShopifyAdapter) FetchAndNormalize(
	ctx context.Context,
	integration *domain.Integration,
	creds *secrets.Credentials,
	window domain.SyncWindow,
) (*domain.SyncResult, error) {
	shopDomain, _ := integration.Metadata["shop_domain"].(string)
	if shopDomain == "" {
		return nil, fmt.Errorf("integração sem shop_domain nos metadados")
	}

	var (
		orders    []shopifydomain.Order
		products  []shopifydomain.Product
		customers []shopifydomain.Customer
		shop      *shopifydomain.Shop

		ordersErr    error
		productsErr  error
		customersErr error
		shopErr      error
	)

	wg := sync.WaitGroup{}
	wg.Add(4)

	go func() {
		defer wg.Done()
		orders, ordersErr = s.Client.ListOrders(ctx, shopDomain, creds.AccessToken, window.StartDate, window.EndDate)
	}()

	go func() {
		defer wg.Done()
		products, productsErr = s.Client.ListProducts(ctx, shopDomain, creds.AccessToken)
	}()

	go func() {
		defer wg.Done()
		customers, customersErr = s.Client.ListCustomers(ctx, shopDomain, creds.AccessToken)
	}()

	go func() {
		defer wg.Done()
		shop, shopErr = s.Client.GetShop(ctx, shopDomain, creds.AccessToken)
	}()

	wg.Wait()

	for _, err := range []error{ordersErr, productsErr, customersErr, shopErr} {
		if err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"integration_id": integration.ID,
		"shop_domain":    shopDomain,
		"orders":         len(orders),
		"products":       len(products),
		"customers":      len(customers),
	}).Debug("shopify: dados brutos obtidos da loja")

	// Zero pedidos é um resultado válido de sincronização, não um erro
	points := make([]*domain.DataPoint, 0, len(orders)*2+2)

	for _, order := range orders {
		if order.CanceledAt != nil {
			continue
		}

		total, err := strconv.ParseFloat(order.TotalPrice, 64)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"order_id":    order.ID,
				"total_price": order.TotalPrice,
			}).Warn("shopify: erro ao converter total do pedido, pulando")
			continue
		}

		metadata := map[string]any{"order_id": order.ID}

		// o timestamp exato do pedido é a convenção que mantém a chave de
		// idempotência única entre o caminho de sync e o de webhook
		points = append(points, &domain.DataPoint{
			TenantID:      integration.TenantID,
			IntegrationID: integration.ID,
			MetricType:    domain.MetricRevenue,
			Value:         total,
			Currency:      order.Currency,
			Metadata:      metadata,
			OccurredAt:    order.CreatedAt,
		})

		points = append(points, &domain.DataPoint{
			TenantID:      integration.TenantID,
			IntegrationID: integration.ID,
			MetricType:    domain.MetricOrder,
			Value:         1,
			Currency:      order.Currency,
			Metadata:      metadata,
			OccurredAt:    order.CreatedAt,
		})
	}

	// Rollups de snapshot: um registro por sync, vale o mais recente
	inventoryTotal := 0
	for _, product := range products {
		for _, variant := range product.Variants {
			inventoryTotal += variant.InventoryQuantity
		}
	}

	points = append(points, &domain.DataPoint{
		TenantID:      integration.TenantID,
		IntegrationID: integration.ID,
		MetricType:    domain.MetricCustomersTotal,
		Value:         float64(len(customers)),
		OccurredAt:    window.EndDate,
	})

	points = append(points, &domain.DataPoint{
		TenantID:      integration.TenantID,
		IntegrationID: integration.ID,
		MetricType:    domain.MetricInventoryTotal,
		Value:         float64(inventoryTotal),
		OccurredAt:    window.EndDate,
	})

	result := &domain.SyncResult{
		// pedidos criados no mesmo segundo são colapsados para não violar a
		// chave de idempotência
		DataPoints: integrator.MergeByOccurrence(points),
	}

	if shop != nil {
		result.Metadata = map[string]any{
			"shop_domain":   shop.Domain,
			"shop_name":     shop.Name,
			"shop_currency": shop.Currency,
		}
	}

	return result, nil
}

// VerifySignature valida o HMAC-SHA256 em base64 do header X-Shopify-Hmac-Sha256
func (s *ShopifyAdapter) VerifySignature(payload []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(s.cfg.Shopify.WebhookSecret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return integrator.ErrInvalidSignature
	}

	return nil
}

// MapWebhookEvent mapeia eventos da loja para o modelo canônico
func (s *ShopifyAdapter) MapWebhookEvent(eventType string, payload []byte) (*integrator.WebhookEvent, bool, error) {
	switch eventType {
	case "orders/create", "orders/paid":
		order := shopifydomain.Order{}
		if err := json.Unmarshal(payload, &order); err != nil {
			return nil, true, fmt.Errorf("erro ao decodificar payload do pedido: %w", err)
		}

		total, err := strconv.ParseFloat(order.TotalPrice, 64)
		if err != nil {
			return nil, true, fmt.Errorf("erro ao converter total do pedido: %w", err)
		}

		return &integrator.WebhookEvent{
			DataPoint: &domain.DataPoint{
				MetricType: domain.MetricRevenue,
				Value:      total,
				Currency:   order.Currency,
				Metadata:   map[string]any{"order_id": order.ID, "source": eventType},
				OccurredAt: order.CreatedAt,
			},
		}, true, nil

	case "shop/update":
		shop := shopifydomain.Shop{}
		if err := json.Unmarshal(payload, &shop); err != nil {
			return nil, true, fmt.Errorf("erro ao decodificar payload da loja: %w", err)
		}

		return &integrator.WebhookEvent{
			Metadata: map[string]any{
				"shop_domain":   shop.Domain,
				"shop_name":     shop.Name,
				"shop_currency": shop.Currency,
			},
		}, true, nil
	}

	return nil, false, nil
}
