package queue

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
)

// ProgressFunc reporta o progresso do job em percentual (0 a 100)
type ProgressFunc func(percent int)

// Handler processa um job reivindicado da fila. Entrega é at-least-once:
// o handler precisa ser idempotente ou se proteger de efeitos duplicados.
type Handler func(ctx context.Context, job *domain.Job, progress ProgressFunc) error

// Service é a fila durável de jobs com pool de workers e agendamento recorrente
type Service struct {
	jobRepo   repository.JobRepository
	cfg       config.Queue
	scheduler *gocron.Scheduler

	mu       sync.RWMutex
	handlers map[domain.JobType]Handler

	workersStarted bool
}

func NewService(jobRepo repository.JobRepository, cfg config.Queue) *Service {
	return &Service{
		jobRepo:   jobRepo,
		cfg:       cfg,
		scheduler: gocron.NewScheduler(time.Local),
		handlers:  make(map[domain.JobType]Handler),
	}
}

// RegisterHandler registra o handler de um tipo de job. Deve ser chamado
// antes de Start: workers só reivindicam tipos registrados.
func (s *Service) RegisterHandler(jobType domain.JobType, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = handler
}

// Enqueue insere um job na fila durável e devolve o handle persistido
func (s *Service) Enqueue(jobType domain.JobType, payload map[string]any) (*domain.Job, error) {
	job := &domain.Job{
		Type:        jobType,
		Payload:     payload,
		MaxAttempts: s.cfg.MaxAttempts,
	}

	if err := s.jobRepo.Insert(job); err != nil {
		return nil, fmt.Errorf("erro ao enfileirar job: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"job_type": jobType,
	}).Info("Job enfileirado")

	return job, nil
}

// EnqueueRecurring registra a submissão recorrente de um job no padrão cron.
// Cada disparo enfileira um job normal, processado pelo pool como qualquer outro.
func (s *Service) EnqueueRecurring(jobType domain.JobType, payload map[string]any, cronSchedule string) error {
	_, err := s.scheduler.Cron(cronSchedule).Do(func() {
		if _, err := s.Enqueue(jobType, payload); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"job_type": jobType,
				"cron":     cronSchedule,
			}).Error("Erro ao enfileirar job recorrente")
		}
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar job recorrente: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"job_type": jobType,
		"cron":     cronSchedule,
	}).Info("Job recorrente agendado")

	return nil
}

// Start inicia o pool de workers e o agendador de jobs recorrentes
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.workersStarted {
		s.mu.Unlock()
		return fmt.Errorf("fila já iniciada")
	}
	s.workersStarted = true
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"workers":       s.cfg.WorkerCount,
		"poll_interval": s.cfg.PollIntervalSeconds,
		"max_attempts":  s.cfg.MaxAttempts,
	}).Info("Iniciando pool de workers da fila de jobs")

	for i := 0; i < s.cfg.WorkerCount; i++ {
		go s.runWorker(ctx, i)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando agendador de jobs recorrentes")
		s.scheduler.Stop()
	}()

	return nil
}

// Status retorna o estado atual da fila para a superfície de observabilidade
func (s *Service) Status() (map[string]any, error) {
	counts, err := s.jobRepo.CountByStatus()
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"workers":   s.cfg.WorkerCount,
		"pending":   counts[domain.JobStatusPending],
		"running":   counts[domain.JobStatusRunning],
		"completed": counts[domain.JobStatusCompleted],
		"failed":    counts[domain.JobStatusFailed],
	}, nil
}

// backoffDelay calcula o atraso exponencial da próxima tentativa
func (s *Service) backoffDelay(attempts int) time.Duration {
	base := float64(s.cfg.BackoffBaseSeconds)
	delay := base * math.Pow(2, float64(attempts-1))

	max := float64(s.cfg.BackoffMaxSeconds)
	if delay > max {
		delay = max
	}

	return time.Duration(delay) * time.Second
}

func (s *Service) registeredTypes() []domain.JobType {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]domain.JobType, 0, len(s.handlers))
	for jobType := range s.handlers {
		types = append(types, jobType)
	}
	return types
}

func (s *Service) handlerFor(jobType domain.JobType) (Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handler, ok := s.handlers[jobType]
	return handler, ok
}
