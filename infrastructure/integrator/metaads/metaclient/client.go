package metaclient

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
	"github.com/vfg2006/pulse-analytics-api/internal/config"
)

// Campaign é uma campanha de anúncios da conta
type Campaign struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// DailyInsight é a linha diária de métricas de uma campanha
type DailyInsight struct {
	DateStart   string `json:"date_start"` // formato 2006-01-02
	Spend       string `json:"spend"`
	Impressions string `json:"impressions"`
	Clicks      string `json:"clicks"`
}

type Client interface {
	GetCampaignsByAccountID(ctx context.Context, accountID, accessToken string) ([]Campaign, error)
	GetCampaignDailyInsights(ctx context.Context, campaignID, accessToken string, startDate, endDate time.Time) ([]DailyInsight, error)
}

type MetaClient struct {
	httpClient *http.Client
	Cfg        *config.Config
}

func NewClient(cfg *config.Config) Client {
	return &MetaClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Cfg: cfg,
	}
}

func (c *MetaClient) GetCampaignsByAccountID(ctx context.Context, accountID, accessToken string) ([]Campaign, error) {
	query := url.Values{}
	query.Set("fields", "id,name,status")

	var response struct {
		Data []Campaign `json:"data"`
	}

	if err := c.get(ctx, fmt.Sprintf("act_%s/campaigns", accountID), accessToken, query, &response); err != nil {
		return nil, errors.Wrap(err, "meta: erro ao listar campanhas")
	}

	return response.Data, nil
}

func (c *MetaClient) GetCampaignDailyInsights(ctx context.Context, campaignID, accessToken string, startDate, endDate time.Time) ([]DailyInsight, error) {
	timeRange, err := json.Marshal(map[string]string{
		"since": startDate.Format(time.DateOnly),
		"until": endDate.Format(time.DateOnly),
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao serializar time_range: %w", err)
	}

	query := url.Values{}
	query.Set("fields", "spend,impressions,clicks")
	query.Set("time_increment", "1")
	query.Set("time_range", string(timeRange))

	var response struct {
		Data []DailyInsight `json:"data"`
	}

	if err := c.get(ctx, fmt.Sprintf("%s/insights", campaignID), accessToken, query, &response); err != nil {
		return nil, errors.Wrap(err, "meta: erro ao obter insights da campanha")
	}

	return response.Data, nil
}

func (c *MetaClient) get(ctx context.Context, resource, accessToken string, query url.Values, out any) error {
	endpoint, err := url.Parse(c.Cfg.MetaAds.URL)
	if err != nil {
		return fmt.Errorf("erro ao analisar a URL base: %w", err)
	}
	endpoint.Path = path.Join(endpoint.Path, resource)

	query.Set("access_token", accessToken)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("erro ao criar a requisição: %w", err)
	}

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
		return fmt.Errorf("requisição falhou com status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("erro ao decodificar a resposta: %w", err)
	}

	return nil
}
