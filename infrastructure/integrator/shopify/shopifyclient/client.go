package shopifyclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/pkg/errors"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	shopifydomain "github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/shopify/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
)

type Client interface {
	ListOrders(ctx context.Context, shopDomain, accessToken string, startDate, endDate time.Time) ([]shopifydomain.Order, error)
	ListProducts(ctx context.Context, shopDomain, accessToken string) ([]shopifydomain.Product, error)
	ListCustomers(ctx context.Context, shopDomain, accessToken string) ([]shopifydomain.Customer, error)
	GetShop(ctx context.Context, shopDomain, accessToken string) (*shopifydomain.Shop, error)
}

type ShopifyClient struct {
	httpClient *http.Client
	config     *config.Config
}

func NewClient(cfg *config.Config) Client {
	return &ShopifyClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
	}
}

func (c *ShopifyClient) ListOrders(ctx context.Context, shopDomain, accessToken string, startDate, endDate time.Time) ([]shopifydomain.Order, error) {
	query := url.Values{}
	query.Set("status", "any")
	query.Set("created_at_min", startDate.Format(time.RFC3339))
	query.Set("created_at_max", endDate.Format(time.RFC3339))
	query.Set("limit", "250")

	var response struct {
		Orders []shopifydomain.Order `json:"orders"`
	}

	if err := c.get(ctx, shopDomain, accessToken, "orders.json", query, &response); err != nil {
		return nil, errors.Wrap(err, "shopify: erro ao listar pedidos")
	}

	return response.Orders, nil
}

func (c *ShopifyClient) ListProducts(ctx context.Context, shopDomain, accessToken string) ([]shopifydomain.Product, error) {
	query := url.Values{}
	query.Set("limit", "250")

	var response struct {
		Products []shopifydomain.Product `json:"products"`
	}

	if err := c.get(ctx, shopDomain, accessToken, "products.json", query, &response); err != nil {
		return nil, errors.Wrap(err, "shopify: erro ao listar produtos")
	}

	return response.Products, nil
}

func (c *ShopifyClient) ListCustomers(ctx context.Context, shopDomain, accessToken string) ([]shopifydomain.Customer, error) {
	query := url.Values{}
	query.Set("limit", "250")

	var response struct {
		Customers []shopifydomain.Customer `json:"customers"`
	}

	if err := c.get(ctx, shopDomain, accessToken, "customers.json", query, &response); err != nil {
		return nil, errors.Wrap(err, "shopify: erro ao listar clientes")
	}

	return response.Customers, nil
}

func (c *ShopifyClient) GetShop(ctx context.Context, shopDomain, accessToken string) (*shopifydomain.Shop, error) {
	var response struct {
		Shop shopifydomain.Shop `json:"shop"`
	}

	if err := c.get(ctx, shopDomain, accessToken, "shop.json", nil, &response); err != nil {
		return nil, errors.Wrap(err, "shopify: erro ao obter dados da loja")
	}

	return &response.Shop, nil
}

func (c *ShopifyClient) get(ctx context.Context, shopDomain, accessToken, resource string, query url.Values, out any) error {
	endpoint, err := url.Parse(fmt.Sprintf("https://%s/admin/api/2024-01", shopDomain))
	if err != nil {
		return fmt.Errorf("erro ao analisar a URL base: %w", err)
	}
	endpoint.Path = path.Join(endpoint.Path, resource)
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("erro ao criar a requisição: %w", err)
	}

	req.Header.Set("X-Shopify-Access-Token", accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("erro ao executar a requisição: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Wrapf(integrator.ErrAuthentication, "status: %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		// demais status (429, 5xx) são transientes e ficam por conta do retry da fila
		return fmt.Errorf("requisição falhou com status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("erro ao decodificar a resposta: %w", err)
	}

	return nil
}
