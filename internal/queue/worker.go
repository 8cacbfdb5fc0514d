package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
)

// runWorker é o loop de um worker: reivindica jobs pendentes um a um e,
// quando a fila esvazia, dorme até o próximo ciclo de polling
func (s *Service) runWorker(ctx context.Context, workerID int) {
	pollInterval := time.Duration(s.cfg.PollIntervalSeconds) * time.Second

	logrus.WithField("worker_id", workerID).Debug("Worker da fila iniciado")

	for {
		select {
		case <-ctx.Done():
			logrus.WithField("worker_id", workerID).Debug("Worker da fila encerrado")
			return
		default:
		}

		job, err := s.jobRepo.ClaimNext(s.registeredTypes())
		if err != nil {
			logrus.WithError(err).WithField("worker_id", workerID).Error("Erro ao reivindicar job da fila")
			s.sleep(ctx, pollInterval)
			continue
		}

		if job == nil {
			s.sleep(ctx, pollInterval)
			continue
		}

		s.process(ctx, workerID, job)
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// process executa o handler do job e aplica o desfecho: sucesso, retry com
// backoff exponencial ou falha terminal (permanente ou tentativas esgotadas)
func (s *Service) process(ctx context.Context, workerID int, job *domain.Job) {
	entry := logrus.WithFields(logrus.Fields{
		"worker_id": workerID,
		"job_id":    job.ID,
		"job_type":  job.Type,
		"attempt":   job.Attempts,
	})

	entry.Info("Processando job")

	handler, ok := s.handlerFor(job.Type)
	if !ok {
		// ClaimNext filtra por tipos registrados, então isso indica bug de wiring
		s.fail(entry, job, fmt.Errorf("nenhum handler registrado para o tipo %s", job.Type), true)
		return
	}

	progress := func(percent int) {
		if err := s.jobRepo.UpdateProgress(job.ID, percent); err != nil {
			entry.WithError(err).Warn("Erro ao atualizar progresso do job")
		}
	}

	err := handler(ctx, job, progress)
	if err == nil {
		if err := s.jobRepo.MarkCompleted(job.ID); err != nil {
			entry.WithError(err).Error("Erro ao marcar job como concluído")
			return
		}
		entry.Info("Job concluído")
		return
	}

	if IsPermanent(err) {
		s.fail(entry, job, err, true)
		return
	}

	if job.Attempts >= job.MaxAttempts {
		s.fail(entry, job, err, false)
		return
	}

	delay := s.backoffDelay(job.Attempts)
	nextRunAt := time.Now().Add(delay)

	if repoErr := s.jobRepo.ScheduleRetry(job.ID, err.Error(), nextRunAt); repoErr != nil {
		entry.WithError(repoErr).Error("Erro ao agendar retry do job")
		return
	}

	entry.WithFields(logrus.Fields{
		"error":       err.Error(),
		"retry_in":    delay.String(),
		"next_run_at": nextRunAt.Format(time.RFC3339),
	}).Warn("Job falhou, retry agendado")
}

func (s *Service) fail(entry *logrus.Entry, job *domain.Job, err error, permanent bool) {
	if repoErr := s.jobRepo.MarkFailed(job.ID, err.Error(), permanent); repoErr != nil {
		entry.WithError(repoErr).Error("Erro ao marcar job como falho")
		return
	}

	entry.WithFields(logrus.Fields{
		"error":     err.Error(),
		"permanent": permanent,
	}).Error("Job falhou em definitivo")
}
