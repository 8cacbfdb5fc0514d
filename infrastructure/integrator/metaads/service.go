package metaads

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/metaads/metaclient"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/pkg/secrets"
)

// MetaAdsAdapter integra a plataforma de anúncios ao modelo canônico de métricas
type MetaAdsAdapter struct {
	cfg    *config.Config
	Client metaclient.Client
}

func New(cfg *config.Config, client metaclient.Client) *MetaAdsAdapter {
	return &MetaAdsAdapter{
		cfg:    cfg,
		Client: client,
	}
}

func (s *MetaAdsAdapter) Platform() domain.Platform {
	return domain.PlatformMetaAds
}

// dailyTotals acumula métricas de todas as campanhas por dia
type dailyTotals struct {
	spend       float64
	impressions float64
	clicks      float64
}

func (s *MetaAdsAdapter) FetchAndNormalize(
	ctx context.Context,
	integration *domain.Integration,
	creds *secrets.Credentials,
	window domain.SyncWindow,
) (*domain.SyncResult, error) {
	accountID, _ := integration.Metadata["ad_account_id"].(string)
	if accountID == "" {
		return nil, fmt.Errorf("integração sem ad_account_id nos metadados")
	}

	campaigns, err := s.Client.GetCampaignsByAccountID(ctx, accountID, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	totalsByDay := make(map[string]*dailyTotals)

	for _, campaign := range campaigns {
		insights, err := s.Client.GetCampaignDailyInsights(ctx, campaign.ID, creds.AccessToken, window.StartDate, window.EndDate)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"campaign_id": campaign.ID,
				"account_id":  accountID,
				"error":       err.Error(),
			}).Error("metaads: erro ao obter insights da campanha")
			return nil, err
		}

		for _, insight := range insights {
			totals, ok := totalsByDay[insight.DateStart]
			if !ok {
				totals = &dailyTotals{}
				totalsByDay[insight.DateStart] = totals
			}

			spend, err := strconv.ParseFloat(insight.Spend, 64)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"campaign_id": campaign.ID,
					"spend_value": insight.Spend,
				}).Warn("metaads: erro ao converter spend para float")
			}

			impressions, _ := strconv.ParseFloat(insight.Impressions, 64)
			clicks, _ := strconv.ParseFloat(insight.Clicks, 64)

			totals.spend += spend
			totals.impressions += impressions
			totals.clicks += clicks
		}
	}

	logrus.WithFields(logrus.Fields{
		"integration_id": integration.ID,
		"account_id":     accountID,
		"campaigns":      len(campaigns),
		"days":           len(totalsByDay),
	}).Debug("metaads: métricas diárias agregadas")

	points := make([]*domain.DataPoint, 0, len(totalsByDay)*3)
	for day, totals := range totalsByDay {
		date, err := time.Parse(time.DateOnly, day)
		if err != nil {
			logrus.WithField("date", day).Warn("metaads: data inválida nos insights, pulando")
			continue
		}

		metadata := map[string]any{"ad_account_id": accountID}

		points = append(points, &domain.DataPoint{
			TenantID:      integration.TenantID,
			IntegrationID: integration.ID,
			MetricType:    domain.MetricAdSpend,
			Value:         totals.spend,
			Metadata:      metadata,
			OccurredAt:    date,
		})

		points = append(points, &domain.DataPoint{
			TenantID:      integration.TenantID,
			IntegrationID: integration.ID,
			MetricType:    domain.MetricImpressions,
			Value:         totals.impressions,
			Metadata:      metadata,
			OccurredAt:    date,
		})

		points = append(points, &domain.DataPoint{
			TenantID:      integration.TenantID,
			IntegrationID: integration.ID,
			MetricType:    domain.MetricClicks,
			Value:         totals.clicks,
			Metadata:      metadata,
			OccurredAt:    date,
		})
	}

	return &domain.SyncResult{DataPoints: points}, nil
}

// VerifySignature valida o header X-Hub-Signature-256 no formato "sha256=<hex>"
func (s *MetaAdsAdapter) VerifySignature(payload []byte, signature string) error {
	provided, found := strings.CutPrefix(signature, "sha256=")
	if !found {
		return integrator.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.MetaAds.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return integrator.ErrInvalidSignature
	}

	return nil
}

func (s *MetaAdsAdapter) MapWebhookEvent(eventType string, payload []byte) (*integrator.WebhookEvent, bool, error) {
	switch eventType {
	case "ad_account.update":
		var event struct {
			AdAccountID string `json:"ad_account_id"`
			Name        string `json:"name"`
		}
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, true, fmt.Errorf("erro ao decodificar payload da conta: %w", err)
		}

		return &integrator.WebhookEvent{
			Metadata: map[string]any{
				"ad_account_id":   event.AdAccountID,
				"ad_account_name": event.Name,
			},
		}, true, nil
	}

	return nil, false, nil
}
