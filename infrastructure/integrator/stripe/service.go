package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/stripe/stripeclient"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/pkg/secrets"
)

// StripeAdapter integra a plataforma de pagamentos ao modelo canônico de métricas
type StripeAdapter struct {
	cfg    *config.Config
	Client stripeclient.Client
}

func New(cfg *config.Config, client stripeclient.Client) *StripeAdapter {
	return &StripeAdapter{
		cfg:    cfg,
		Client: client,
	}
}

func (s *StripeAdapter) Platform() domain.Platform {
	return domain.PlatformStripe
}

func (s *StripeAdapter) FetchAndNormalize(
	ctx context.Context,
	integration *domain.Integration,
	creds *secrets.Credentials,
	window domain.SyncWindow,
) (*domain.SyncResult, error) {
	charges, err := s.Client.ListCharges(ctx, creds.APIKey, window.StartDate, window.EndDate)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"integration_id": integration.ID,
		"charges":        len(charges),
	}).Debug("stripe: cobranças obtidas da plataforma")

	points := make([]*domain.DataPoint, 0, len(charges)*2+1)
	refundsTotal := 0.0

	for _, charge := range charges {
		if charge.Status != "succeeded" {
			continue
		}

		refundsTotal += float64(charge.AmountRefunded) / 100

		metadata := map[string]any{"charge_id": charge.ID}
		amount := float64(charge.Amount) / 100

		points = append(points, &domain.DataPoint{
			TenantID:      integration.TenantID,
			IntegrationID: integration.ID,
			MetricType:    domain.MetricRevenue,
			Value:         amount,
			Currency:      strings.ToUpper(charge.Currency),
			Metadata:      metadata,
			OccurredAt:    charge.CreatedAt(),
		})

		points = append(points, &domain.DataPoint{
			TenantID:      integration.TenantID,
			IntegrationID: integration.ID,
			MetricType:    domain.MetricPayment,
			Value:         1,
			Currency:      strings.ToUpper(charge.Currency),
			Metadata:      metadata,
			OccurredAt:    charge.CreatedAt(),
		})
	}

	// Rollup de estornos: vale o registro mais recente, nunca a soma
	points = append(points, &domain.DataPoint{
		TenantID:      integration.TenantID,
		IntegrationID: integration.ID,
		MetricType:    domain.MetricRefundsTotal,
		Value:         refundsTotal,
		OccurredAt:    window.EndDate,
	})

	// cobranças criadas no mesmo segundo são colapsadas para não violar a
	// chave de idempotência
	return &domain.SyncResult{DataPoints: integrator.MergeByOccurrence(points)}, nil
}

// VerifySignature valida o esquema "t=<timestamp>,v1=<hmac hex>", em que o
// HMAC-SHA256 é calculado sobre "<timestamp>.<payload>"
func (s *StripeAdapter) VerifySignature(payload []byte, signature string) error {
	var timestamp, provided string

	for _, part := range strings.Split(signature, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			provided = value
		}
	}

	if timestamp == "" || provided == "" {
		return integrator.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.Stripe.WebhookSecret))
	fmt.Fprintf(mac, "%s.%s", timestamp, payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return integrator.ErrInvalidSignature
	}

	return nil
}

func (s *StripeAdapter) MapWebhookEvent(eventType string, payload []byte) (*integrator.WebhookEvent, bool, error) {
	switch eventType {
	case "charge.succeeded":
		var event struct {
			Data struct {
				Object stripeclient.Charge `json:"object"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, true, fmt.Errorf("erro ao decodificar payload da cobrança: %w", err)
		}

		charge := event.Data.Object
		return &integrator.WebhookEvent{
			DataPoint: &domain.DataPoint{
				MetricType: domain.MetricRevenue,
				Value:      float64(charge.Amount) / 100,
				Currency:   strings.ToUpper(charge.Currency),
				Metadata:   map[string]any{"charge_id": charge.ID, "source": eventType},
				OccurredAt: charge.CreatedAt(),
			},
		}, true, nil
	}

	return nil, false, nil
}
