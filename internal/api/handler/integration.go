package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/queue"
	"github.com/vfg2006/pulse-analytics-api/pkg/apiErrors"
	"github.com/vfg2006/pulse-analytics-api/pkg/log"
	"github.com/vfg2006/pulse-analytics-api/pkg/utils"
)

type triggerSyncRequest struct {
	SyncType  string `json:"sync_type,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// TriggerSync enfileira uma sincronização para a integração. A resposta é 202
// com o id do job; o single-flight de verdade acontece no worker, na transição
// de estado guardada.
func TriggerSync(integrationRepo repository.IntegrationRepository, queueService *queue.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		integrationID := httprouter.ParamsFromContext(r.Context()).ByName("id")

		integration, err := integrationRepo.GetByID(integrationID)
		if err != nil {
			logger.WithError(err).Error("sync: failed to load integration")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao buscar integração", nil)
			return
		}
		if integration == nil {
			apiErrors.WriteError(w, apiErrors.ErrResourceNotFound, "Integração não encontrada", nil)
			return
		}

		if integration.Status == domain.IntegrationStatusSyncing {
			apiErrors.WriteError(w, apiErrors.ErrSyncInProgress, "Sincronização já em andamento para esta integração", nil)
			return
		}
		if !integration.IsSyncable() {
			apiErrors.WriteError(w, apiErrors.ErrNotConnected, "Integração não está conectada", map[string]any{
				"status": integration.Status,
			})
			return
		}

		req := triggerSyncRequest{}
		if r.Body != nil {
			// corpo é opcional; vazio significa sincronização full com lookback padrão
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Corpo da requisição inválido", nil)
				return
			}
		}

		syncType := domain.SyncType(req.SyncType)
		if syncType == "" {
			syncType = domain.SyncTypeFull
		}
		if syncType != domain.SyncTypeFull && syncType != domain.SyncTypeIncremental {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "sync_type deve ser full ou incremental", nil)
			return
		}

		if _, err := utils.ParseDate(req.StartDate); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "start_date deve estar no formato 2006-01-02", nil)
			return
		}
		if _, err := utils.ParseDate(req.EndDate); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "end_date deve estar no formato 2006-01-02", nil)
			return
		}

		job, err := queueService.Enqueue(domain.JobTypeDataSync, map[string]any{
			"integration_id": integration.ID,
			"tenant_id":      integration.TenantID,
			"platform":       string(integration.Platform),
			"sync_type":      string(syncType),
			"start_date":     req.StartDate,
			"end_date":       req.EndDate,
		})
		if err != nil {
			logger.WithError(err).Error("sync: failed to enqueue sync job")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao enfileirar sincronização", nil)
			return
		}

		logger.WithFields(log.Fields{
			"integration_id": integration.ID,
			"sync_type":      syncType,
			"job_id":         job.ID,
		}).Info("sync: sync job accepted")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{
			"job_id": job.ID,
			"status": job.Status,
		})
	})
}

type integrationResponse struct {
	ID         string                   `json:"id"`
	TenantID   string                   `json:"tenant_id"`
	Platform   domain.Platform          `json:"platform"`
	Status     domain.IntegrationStatus `json:"status"`
	Metadata   map[string]any           `json:"metadata,omitempty"`
	LastSyncAt *time.Time               `json:"last_sync_at,omitempty"`
	DataPoints int64                    `json:"data_points"`
	CreatedAt  time.Time                `json:"created_at"`
}

// GetIntegration retorna o estado da integração e o volume de pontos sincronizados
func GetIntegration(integrationRepo repository.IntegrationRepository, dataPointRepo repository.DataPointRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		integrationID := httprouter.ParamsFromContext(r.Context()).ByName("id")

		integration, err := integrationRepo.GetByID(integrationID)
		if err != nil {
			logger.WithError(err).Error("integrations: failed to load integration")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao buscar integração", nil)
			return
		}
		if integration == nil {
			apiErrors.WriteError(w, apiErrors.ErrResourceNotFound, "Integração não encontrada", nil)
			return
		}

		count, err := dataPointRepo.CountByIntegration(integration.ID)
		if err != nil {
			logger.WithError(err).Error("integrations: failed to count data points")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao contar data points", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(integrationResponse{
			ID:         integration.ID,
			TenantID:   integration.TenantID,
			Platform:   integration.Platform,
			Status:     integration.Status,
			Metadata:   integration.Metadata,
			LastSyncAt: integration.LastSyncAt,
			DataPoints: count,
			CreatedAt:  integration.CreatedAt,
		})
	})
}
