package gaclient

import (
	"bytes"
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

// DailyReport é a linha diária do relatório de tráfego da propriedade
type DailyReport struct {
	Date      string `json:"date"` // formato 20060102
	Sessions  int64  `json:"sessions"`
	Pageviews int64  `json:"screenPageViews"`
}

// ParsedDate converte a data do relatório
func (d DailyReport) ParsedDate() (time.Time, error) {
	return time.Parse("20060102", d.Date)
}

type Client interface {
	RunDailyReport(ctx context.Context, propertyID, accessToken string, startDate, endDate time.Time) ([]DailyReport, error)
}

type GAClient struct {
	httpClient *http.Client
	config     *config.Config
}

func NewClient(cfg *config.Config) Client {
	return &GAClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
	}
}

func (c *GAClient) RunDailyReport(ctx context.Context, propertyID, accessToken string, startDate, endDate time.Time) ([]DailyReport, error) {
	endpoint, err := url.Parse(c.config.GA.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("erro ao analisar a URL base: %w", err)
	}
	endpoint.Path = path.Join(endpoint.Path, fmt.Sprintf("properties/%s:runReport", propertyID))

	body := map[string]any{
		"dateRanges": []map[string]string{
			{
				"startDate": startDate.Format(time.DateOnly),
				"endDate":   endDate.Format(time.DateOnly),
			},
		},
		"dimensions": []map[string]string{{"name": "date"}},
		"metrics": []map[string]string{
			{"name": "sessions"},
			{"name": "screenPageViews"},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("erro ao serializar o corpo da requisição: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("erro ao criar a requisição: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

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

	// o formato de resposta da Data API usa linhas com valores posicionais
	var response struct {
		Rows []struct {
			DimensionValues []struct {
				Value string `json:"value"`
			} `json:"dimensionValues"`
			MetricValues []struct {
				Value string `json:"value"`
			} `json:"metricValues"`
		} `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("erro ao decodificar a resposta: %w", err)
	}

	reports := make([]DailyReport, 0, len(response.Rows))
	for _, row := range response.Rows {
		if len(row.DimensionValues) < 1 || len(row.MetricValues) < 2 {
			continue
		}

		report := DailyReport{Date: row.DimensionValues[0].Value}
		fmt.Sscanf(row.MetricValues[0].Value, "%d", &report.Sessions)
		fmt.Sscanf(row.MetricValues[1].Value, "%d", &report.Pageviews)
		reports = append(reports, report)
	}

	return reports, nil
}
