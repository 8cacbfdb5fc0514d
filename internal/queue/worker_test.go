package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository/mocks"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"go.uber.org/mock/gomock"
)

func newTestService(jobRepo *mocks.MockJobRepository) *Service {
	return NewService(jobRepo, config.Queue{
		WorkerCount:         1,
		PollIntervalSeconds: 1,
		MaxAttempts:         3,
		BackoffBaseSeconds:  30,
		BackoffMaxSeconds:   1800,
	})
}

func TestProcess_Sucesso(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobRepo := mocks.NewMockJobRepository(ctrl)
	service := newTestService(jobRepo)

	service.RegisterHandler(domain.JobTypeDataSync, func(ctx context.Context, job *domain.Job, progress ProgressFunc) error {
		progress(50)
		return nil
	})

	job := &domain.Job{ID: "job-1", Type: domain.JobTypeDataSync, Attempts: 1, MaxAttempts: 3}

	jobRepo.EXPECT().UpdateProgress("job-1", 50).Return(nil)
	jobRepo.EXPECT().MarkCompleted("job-1").Return(nil)

	service.process(context.Background(), 0, job)
}

func TestProcess_ErroPermanenteNaoReagenda(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobRepo := mocks.NewMockJobRepository(ctrl)
	service := newTestService(jobRepo)

	service.RegisterHandler(domain.JobTypeWebhookProcessing, func(ctx context.Context, job *domain.Job, progress ProgressFunc) error {
		return Permanent(errors.New("assinatura de webhook inválida"))
	})

	job := &domain.Job{ID: "job-2", Type: domain.JobTypeWebhookProcessing, Attempts: 1, MaxAttempts: 3}

	// mesmo na primeira tentativa, falha permanente encerra o job
	jobRepo.EXPECT().MarkFailed("job-2", "assinatura de webhook inválida", true).Return(nil)

	service.process(context.Background(), 0, job)
}

func TestProcess_ErroTransitorioReagendaComBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobRepo := mocks.NewMockJobRepository(ctrl)
	service := newTestService(jobRepo)

	service.RegisterHandler(domain.JobTypeDataSync, func(ctx context.Context, job *domain.Job, progress ProgressFunc) error {
		return errors.New("timeout na plataforma")
	})

	job := &domain.Job{ID: "job-3", Type: domain.JobTypeDataSync, Attempts: 1, MaxAttempts: 3}

	jobRepo.EXPECT().ScheduleRetry("job-3", "timeout na plataforma", gomock.Any()).Return(nil)

	service.process(context.Background(), 0, job)
}

func TestProcess_TentativasEsgotadasFalhaTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobRepo := mocks.NewMockJobRepository(ctrl)
	service := newTestService(jobRepo)

	service.RegisterHandler(domain.JobTypeDataSync, func(ctx context.Context, job *domain.Job, progress ProgressFunc) error {
		return errors.New("timeout na plataforma")
	})

	job := &domain.Job{ID: "job-4", Type: domain.JobTypeDataSync, Attempts: 3, MaxAttempts: 3}

	// esgotou as tentativas: terminal, mas não permanente
	jobRepo.EXPECT().MarkFailed("job-4", "timeout na plataforma", false).Return(nil)

	service.process(context.Background(), 0, job)
}

func TestStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobRepo := mocks.NewMockJobRepository(ctrl)
	service := newTestService(jobRepo)

	jobRepo.EXPECT().CountByStatus().Return(map[domain.JobStatus]int64{
		domain.JobStatusPending:   2,
		domain.JobStatusCompleted: 10,
	}, nil)

	status, err := service.Status()
	assert.NoError(t, err)
	assert.Equal(t, int64(2), status["pending"])
	assert.Equal(t, int64(10), status["completed"])
	assert.Equal(t, int64(0), status["failed"])
	assert.Equal(t, 1, status["workers"])
}
