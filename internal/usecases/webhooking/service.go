package webhooking

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/queue"
)

// Service ingere eventos de webhook das plataformas: verifica a assinatura,
// mapeia o evento para um DataPoint canônico e aplica pela chave de
// idempotência, de modo que redelivery da mesma entrega seja inócua
type Service interface {
	Ingest(ctx context.Context, params domain.WebhookProcessingJob) error

	// HandleJob é o handler registrado na fila para jobs de webhook_processing
	HandleJob(ctx context.Context, job *domain.Job, progress queue.ProgressFunc) error
}

type service struct {
	integrationRepo repository.IntegrationRepository
	dataPointRepo   repository.DataPointRepository
	registry        *integrator.Registry
}

func NewService(
	integrationRepo repository.IntegrationRepository,
	dataPointRepo repository.DataPointRepository,
	registry *integrator.Registry,
) Service {
	return &service{
		integrationRepo: integrationRepo,
		dataPointRepo:   dataPointRepo,
		registry:        registry,
	}
}

func (s *service) HandleJob(ctx context.Context, job *domain.Job, progress queue.ProgressFunc) error {
	params := domain.WebhookProcessingJob{}
	if err := queue.DecodePayload(job, &params); err != nil {
		return queue.Permanent(fmt.Errorf("erro ao decodificar payload de webhook: %w", err))
	}

	progress(10)

	if err := s.Ingest(ctx, params); err != nil {
		return err
	}

	progress(100)
	return nil
}

func (s *service) Ingest(_ context.Context, params domain.WebhookProcessingJob) error {
	entry := logrus.WithFields(logrus.Fields{
		"platform":       params.Platform,
		"event_type":     params.EventType,
		"integration_id": params.IntegrationID,
	})

	adapter, err := s.registry.Resolve(params.Platform)
	if err != nil {
		return queue.Permanent(err)
	}

	payload := []byte(params.Payload)

	// assinatura inválida nunca passa a ser válida: falha permanente
	if err := adapter.VerifySignature(payload, params.Signature); err != nil {
		entry.Warn("webhooking: assinatura de webhook rejeitada")
		return queue.Permanent(err)
	}

	event, handled, err := adapter.MapWebhookEvent(params.EventType, payload)
	if err != nil {
		return queue.Permanent(fmt.Errorf("erro ao mapear evento de webhook: %w", err))
	}
	if !handled {
		// par (plataforma, evento) não reconhecido: sucesso sem efeito, para a
		// plataforma não re-entregar eternamente
		entry.Debug("webhooking: tipo de evento não mapeado, ignorando")
		return nil
	}

	integration, err := s.integrationRepo.GetByID(params.IntegrationID)
	if err != nil {
		return fmt.Errorf("erro ao buscar integração: %w", err)
	}
	if integration == nil {
		return queue.Permanent(domain.ErrIntegrationNotFound)
	}

	if event.DataPoint != nil {
		point := event.DataPoint
		point.TenantID = integration.TenantID
		point.IntegrationID = integration.ID

		if err := s.dataPointRepo.Upsert(point); err != nil {
			return fmt.Errorf("erro ao aplicar data point do webhook: %w", err)
		}

		entry.WithFields(logrus.Fields{
			"metric_type": point.MetricType,
			"occurred_at": point.OccurredAt,
		}).Info("webhooking: data point aplicado")
	}

	if len(event.Metadata) > 0 {
		merged := integration.Metadata
		if merged == nil {
			merged = make(map[string]any)
		}
		for key, value := range event.Metadata {
			merged[key] = value
		}

		if err := s.integrationRepo.UpdateMetadata(integration.ID, merged); err != nil {
			return fmt.Errorf("erro ao atualizar metadata da integração: %w", err)
		}

		entry.Info("webhooking: metadata da integração atualizada")
	}

	return nil
}
