package stripeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
)

// Charge é uma cobrança bruta retornada pela API de pagamentos
type Charge struct {
	ID             string `json:"id"`
	Amount         int64  `json:"amount"` // em centavos
	AmountRefunded int64  `json:"amount_refunded"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	Created        int64  `json:"created"` // unix timestamp
	Refunded       bool   `json:"refunded"`
}

// CreatedAt converte o timestamp unix da cobrança
func (c Charge) CreatedAt() time.Time {
	return time.Unix(c.Created, 0).UTC()
}

type Client interface {
	ListCharges(ctx context.Context, apiKey string, startDate, endDate time.Time) ([]Charge, error)
}

type StripeClient struct {
	httpClient *http.Client
	config     *config.Config
}

func NewClient(cfg *config.Config) Client {
	return &StripeClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
	}
}

func (c *StripeClient) ListCharges(ctx context.Context, apiKey string, startDate, endDate time.Time) ([]Charge, error) {
	endpoint, err := url.Parse(c.config.Stripe.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("erro ao analisar a URL base: %w", err)
	}
	endpoint.Path = path.Join(endpoint.Path, "charges")

	query := endpoint.Query()
	query.Set("created[gte]", strconv.FormatInt(startDate.Unix(), 10))
	query.Set("created[lt]", strconv.FormatInt(endDate.Unix(), 10))
	query.Set("limit", "100")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar a requisição: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a requisição: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.Wrapf(integrator.ErrAuthentication, "status: %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("requisição falhou com status: %s", resp.Status)
	}

	var response struct {
		Data []Charge `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("erro ao decodificar a resposta: %w", err)
	}

	return response.Data, nil
}
