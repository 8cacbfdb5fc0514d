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
)

type jobResponse struct {
	ID        string           `json:"id"`
	Type      domain.JobType   `json:"type"`
	Status    domain.JobStatus `json:"status"`
	Progress  int              `json:"progress"`
	Attempts  int              `json:"attempts"`
	LastError *string          `json:"last_error,omitempty"`
	Permanent bool             `json:"permanent"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// GetJob retorna o estado de um job da fila, incluindo progresso e última falha
func GetJob(jobRepo repository.JobRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		jobID := httprouter.ParamsFromContext(r.Context()).ByName("id")

		job, err := jobRepo.GetByID(jobID)
		if err != nil {
			logger.WithError(err).Error("jobs: failed to load job")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao buscar job", nil)
			return
		}
		if job == nil {
			apiErrors.WriteError(w, apiErrors.ErrResourceNotFound, "Job não encontrado", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(jobResponse{
			ID:        job.ID,
			Type:      job.Type,
			Status:    job.Status,
			Progress:  job.Progress,
			Attempts:  job.Attempts,
			LastError: job.LastError,
			Permanent: job.Permanent,
			CreatedAt: job.CreatedAt,
			UpdatedAt: job.UpdatedAt,
		})
	})
}

// QueueStatus retorna a contagem de jobs por estado e o tamanho do pool
func QueueStatus(queueService *queue.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		status, err := queueService.Status()
		if err != nil {
			logger.WithError(err).Error("queue: failed to load queue status")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao consultar status da fila", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})
}
