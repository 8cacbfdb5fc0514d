package syncing

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/queue"
	"github.com/vfg2006/pulse-analytics-api/pkg/secrets"
)

// Service orquestra a sincronização de dados de uma integração: reivindica a
// integração via transição de estado guardada, busca os dados pelo adaptador
// da plataforma e substitui os pontos persistidos de forma atômica
type Service interface {
	// Sync executa a sincronização de uma integração. Erros permanentes
	// (integração inexistente, não conectada, plataforma desconhecida,
	// credenciais revogadas) voltam envolvidos em queue.Permanent.
	Sync(ctx context.Context, params domain.DataSyncJob, progress queue.ProgressFunc) error

	// HandleJob é o handler registrado na fila para jobs de data_sync
	HandleJob(ctx context.Context, job *domain.Job, progress queue.ProgressFunc) error
}

type service struct {
	cfg             *config.Config
	integrationRepo repository.IntegrationRepository
	dataPointRepo   repository.DataPointRepository
	registry        *integrator.Registry
	codec           *secrets.Codec
}

func NewService(
	cfg *config.Config,
	integrationRepo repository.IntegrationRepository,
	dataPointRepo repository.DataPointRepository,
	registry *integrator.Registry,
	codec *secrets.Codec,
) Service {
	return &service{
		cfg:             cfg,
		integrationRepo: integrationRepo,
		dataPointRepo:   dataPointRepo,
		registry:        registry,
		codec:           codec,
	}
}

func (s *service) HandleJob(ctx context.Context, job *domain.Job, progress queue.ProgressFunc) error {
	params := domain.DataSyncJob{}
	if err := queue.DecodePayload(job, &params); err != nil {
		return queue.Permanent(fmt.Errorf("erro ao decodificar payload de sincronização: %w", err))
	}

	return s.Sync(ctx, params, progress)
}

func (s *service) Sync(ctx context.Context, params domain.DataSyncJob, progress queue.ProgressFunc) error {
	entry := logrus.WithFields(logrus.Fields{
		"integration_id": params.IntegrationID,
		"sync_type":      params.SyncType,
	})

	integration, err := s.integrationRepo.GetByID(params.IntegrationID)
	if err != nil {
		return fmt.Errorf("erro ao buscar integração: %w", err)
	}
	if integration == nil {
		return queue.Permanent(domain.ErrIntegrationNotFound)
	}

	if !integration.IsSyncable() {
		if integration.Status == domain.IntegrationStatusSyncing {
			return queue.Permanent(domain.ErrSyncInProgress)
		}
		return queue.Permanent(errors.Wrapf(domain.ErrIntegrationNotConnected, "status atual: %s", integration.Status))
	}

	adapter, err := s.registry.Resolve(integration.Platform)
	if err != nil {
		return queue.Permanent(err)
	}

	// Transição guardada CONNECTED -> SYNCING: é o single-flight. Se outro
	// worker reivindicou a integração entre o GetByID e aqui, a guarda rejeita.
	claimed, err := s.integrationRepo.TransitionStatus(integration.ID, domain.IntegrationStatusConnected, domain.IntegrationStatusSyncing)
	if err != nil {
		return fmt.Errorf("erro ao reivindicar integração para sincronização: %w", err)
	}
	if !claimed {
		return queue.Permanent(domain.ErrSyncInProgress)
	}

	progress(10)
	entry.Info("syncing: sincronização iniciada")

	creds, err := s.codec.Decrypt(integration.Credentials)
	if err != nil {
		// credenciais ilegíveis nunca vão melhorar com retry
		s.release(entry, integration.ID, domain.IntegrationStatusError)
		return queue.Permanent(fmt.Errorf("erro ao decifrar credenciais da integração: %w", err))
	}

	window, err := s.resolveWindow(integration, params)
	if err != nil {
		s.release(entry, integration.ID, domain.IntegrationStatusConnected)
		return queue.Permanent(err)
	}

	progress(25)

	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Sync.RequestTimeoutSeconds)*time.Second)
	defer cancel()

	result, err := adapter.FetchAndNormalize(fetchCtx, integration, creds, window)
	if err != nil {
		if errors.Is(err, integrator.ErrAuthentication) {
			// credenciais revogadas: integração vai para ERROR até reconexão
			s.release(entry, integration.ID, domain.IntegrationStatusError)
			entry.WithError(err).Error("syncing: falha de autenticação na plataforma")
			return queue.Permanent(err)
		}

		// falha transitória: libera a integração e deixa a fila re-tentar
		s.release(entry, integration.ID, domain.IntegrationStatusConnected)
		return fmt.Errorf("erro ao buscar dados da plataforma: %w", err)
	}

	progress(60)

	if err := s.persist(integration.ID, params.SyncType, result.DataPoints); err != nil {
		s.release(entry, integration.ID, domain.IntegrationStatusConnected)
		return fmt.Errorf("erro ao persistir pontos da integração: %w", err)
	}

	progress(85)

	if len(result.Metadata) > 0 {
		if err := s.integrationRepo.UpdateMetadata(integration.ID, result.Metadata); err != nil {
			entry.WithError(err).Warn("syncing: erro ao atualizar metadata da integração")
		}
	}

	if err := s.integrationRepo.UpdateLastSync(integration.ID, time.Now()); err != nil {
		entry.WithError(err).Warn("syncing: erro ao registrar horário da sincronização")
	}

	s.release(entry, integration.ID, domain.IntegrationStatusConnected)
	progress(100)

	entry.WithField("data_points", len(result.DataPoints)).Info("syncing: sincronização concluída")

	return nil
}

// persist grava os pontos: full sync substitui todo o histórico da integração
// em uma transação; incremental aplica cada ponto pela chave de idempotência
func (s *service) persist(integrationID string, syncType domain.SyncType, points []*domain.DataPoint) error {
	if syncType == domain.SyncTypeIncremental {
		for _, point := range points {
			if err := s.dataPointRepo.Upsert(point); err != nil {
				return err
			}
		}
		return nil
	}

	return s.dataPointRepo.ReplaceForIntegration(integrationID, points)
}

// release devolve a integração de SYNCING para o estado final informado
func (s *service) release(entry *logrus.Entry, integrationID string, to domain.IntegrationStatus) {
	released, err := s.integrationRepo.TransitionStatus(integrationID, domain.IntegrationStatusSyncing, to)
	if err != nil {
		entry.WithError(err).WithField("to", to).Error("syncing: erro ao liberar integração")
		return
	}
	if !released {
		entry.WithField("to", to).Warn("syncing: integração não estava mais em SYNCING ao liberar")
	}
}

// resolveWindow determina a janela da sincronização: datas explícitas do
// payload, incremental a partir do último sync ou lookback padrão
func (s *service) resolveWindow(integration *domain.Integration, params domain.DataSyncJob) (domain.SyncWindow, error) {
	now := time.Now()

	if params.StartDate != "" || params.EndDate != "" {
		start, err := time.Parse(time.DateOnly, params.StartDate)
		if err != nil {
			return domain.SyncWindow{}, fmt.Errorf("erro ao converter start_date: %w", err)
		}

		end := now
		if params.EndDate != "" {
			end, err = time.Parse(time.DateOnly, params.EndDate)
			if err != nil {
				return domain.SyncWindow{}, fmt.Errorf("erro ao converter end_date: %w", err)
			}
		}

		return domain.SyncWindow{StartDate: start, EndDate: end}, nil
	}

	if params.SyncType == domain.SyncTypeIncremental && integration.LastSyncAt != nil {
		return domain.SyncWindow{StartDate: *integration.LastSyncAt, EndDate: now}, nil
	}

	lookback := time.Duration(s.cfg.Sync.DefaultLookbackDays) * 24 * time.Hour
	return domain.SyncWindow{StartDate: now.Add(-lookback), EndDate: now}, nil
}
