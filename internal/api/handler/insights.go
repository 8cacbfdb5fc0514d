package handler

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/queue"
	"github.com/vfg2006/pulse-analytics-api/pkg/apiErrors"
	"github.com/vfg2006/pulse-analytics-api/pkg/log"
)

type generateInsightsRequest struct {
	TenantID        string `json:"tenant_id"`
	Period          int    `json:"period,omitempty"`
	ForceRegenerate bool   `json:"force_regenerate,omitempty"`
}

// GenerateInsights enfileira uma geração de insights sob demanda. Sem
// tenant_id, o job faz fan-out para todos os tenants com integração conectada.
func GenerateInsights(queueService *queue.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		req := generateInsightsRequest{}
		if r.Body != nil {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Corpo da requisição inválido", nil)
				return
			}
		}

		job, err := queueService.Enqueue(domain.JobTypeInsightsGeneration, map[string]any{
			"tenant_id":        req.TenantID,
			"period":           req.Period,
			"force_regenerate": req.ForceRegenerate,
		})
		if err != nil {
			logger.WithError(err).Error("insights: failed to enqueue generation job")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao enfileirar geração de insights", nil)
			return
		}

		logger.WithFields(log.Fields{
			"tenant_id": req.TenantID,
			"job_id":    job.ID,
			"force":     req.ForceRegenerate,
		}).Info("insights: generation job accepted")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{
			"job_id": job.ID,
			"status": job.Status,
		})
	})
}

// ListTenantInsights retorna os insights mais recentes do tenant
func ListTenantInsights(insightRepo repository.InsightRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		tenantID := httprouter.ParamsFromContext(r.Context()).ByName("id")

		limit := uint64(50)
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Parâmetro limit inválido", nil)
				return
			}
			limit = parsed
		}

		insights, err := insightRepo.ListByTenant(tenantID, limit)
		if err != nil {
			logger.WithError(err).Error("insights: failed to list tenant insights")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao listar insights", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"tenant_id": tenantID,
			"insights":  insights,
		})
	})
}
