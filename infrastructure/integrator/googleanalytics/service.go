package googleanalytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/googleanalytics/gaclient"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/pkg/secrets"
)

// GAAdapter integra a plataforma de web analytics ao modelo canônico de métricas
type GAAdapter struct {
	cfg    *config.Config
	Client gaclient.Client
}

func New(cfg *config.Config, client gaclient.Client) *GAAdapter {
	return &GAAdapter{
		cfg:    cfg,
		Client: client,
	}
}

func (s *GAAdapter) Platform() domain.Platform {
	return domain.PlatformGoogleAnalytics
}

func (s *GAAdapter) FetchAndNormalize(
	ctx context.Context,
	integration *domain.Integration,
	creds *secrets.Credentials,
	window domain.SyncWindow,
) (*domain.SyncResult, error) {
	propertyID, _ := integration.Metadata["property_id"].(string)
	if propertyID == "" {
		return nil, fmt.Errorf("integração sem property_id nos metadados")
	}

	reports, err := s.Client.RunDailyReport(ctx, propertyID, creds.AccessToken, window.StartDate, window.EndDate)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"integration_id": integration.ID,
		"property_id":    propertyID,
		"days":           len(reports),
	}).Debug("googleanalytics: relatório diário obtido")

	points := make([]*domain.DataPoint, 0, len(reports)*2)
	for _, report := range reports {
		date, err := report.ParsedDate()
		if err != nil {
			logrus.WithField("date", report.Date).Warn("googleanalytics: data inválida no relatório, pulando")
			continue
		}

		metadata := map[string]any{"property_id": propertyID}

		points = append(points, &domain.DataPoint{
			TenantID:      integration.TenantID,
			IntegrationID: integration.ID,
			MetricType:    domain.MetricSessions,
			Value:         float64(report.Sessions),
			Metadata:      metadata,
			OccurredAt:    date,
		})

		points = append(points, &domain.DataPoint{
			TenantID:      integration.TenantID,
			IntegrationID: integration.ID,
			MetricType:    domain.MetricPageviews,
			Value:         float64(report.Pageviews),
			Metadata:      metadata,
			OccurredAt:    date,
		})
	}

	return &domain.SyncResult{DataPoints: points}, nil
}

// VerifySignature valida um token JWT HS256 cujas claims carregam o SHA-256
// do payload bruto — evita que um token válido seja reaproveitado em outro corpo
func (s *GAAdapter) VerifySignature(payload []byte, signature string) error {
	token, err := jwt.Parse(signature, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", token.Header["alg"])
		}
		return []byte(s.cfg.GA.WebhookSecret), nil
	})
	if err != nil || !token.Valid {
		return integrator.ErrInvalidSignature
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return integrator.ErrInvalidSignature
	}

	digest, _ := claims["payload_sha256"].(string)
	sum := sha256.Sum256(payload)
	if digest != hex.EncodeToString(sum[:]) {
		return integrator.ErrInvalidSignature
	}

	return nil
}

func (s *GAAdapter) MapWebhookEvent(eventType string, payload []byte) (*integrator.WebhookEvent, bool, error) {
	switch eventType {
	case "report.daily":
		var event struct {
			Date      string `json:"date"` // formato 2006-01-02
			Sessions  int64  `json:"sessions"`
			Pageviews int64  `json:"pageviews"`
		}
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, true, fmt.Errorf("erro ao decodificar payload do relatório: %w", err)
		}

		date, err := time.Parse(time.DateOnly, event.Date)
		if err != nil {
			return nil, true, fmt.Errorf("erro ao converter data do relatório: %w", err)
		}

		return &integrator.WebhookEvent{
			DataPoint: &domain.DataPoint{
				MetricType: domain.MetricSessions,
				Value:      float64(event.Sessions),
				Metadata:   map[string]any{"pageviews": event.Pageviews, "source": eventType},
				OccurredAt: date,
			},
		}, true, nil
	}

	return nil, false, nil
}
