package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/database/postgres"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
)

const (
	jobsTable = "jobs j"

	jobIDLength = 10
)

// claimJobSQL reivindica o próximo job pendente elegível. Query crua porque o
// squirrel não expressa o subselect com FOR UPDATE SKIP LOCKED, que é o que
// permite vários workers disputarem a fila sem processar o mesmo job duas vezes.
const claimJobSQL = `
	UPDATE jobs SET
		status = 'running',
		attempts = attempts + 1,
		updated_at = NOW()
	WHERE id = (
		SELECT id FROM jobs
		WHERE status = 'pending'
		  AND type = ANY($1)
		  AND next_run_at <= NOW()
		ORDER BY next_run_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	)
	RETURNING id, type, payload, status, progress, attempts, max_attempts, next_run_at, last_error, permanent, created_at, updated_at
`

type JobRepository interface {
	Insert(job *domain.Job) error
	GetByID(jobID string) (*domain.Job, error)
	// ClaimNext reivindica atomicamente o próximo job pendente de um dos tipos
	// informados; retorna nil quando não há job elegível
	ClaimNext(types []domain.JobType) (*domain.Job, error)
	MarkCompleted(jobID string) error
	// MarkFailed encerra o job em falha terminal; permanent distingue
	// "nunca vai funcionar" de "esgotou as tentativas"
	MarkFailed(jobID string, lastError string, permanent bool) error
	// ScheduleRetry devolve o job para a fila com o próximo horário de execução
	ScheduleRetry(jobID string, lastError string, nextRunAt time.Time) error
	UpdateProgress(jobID string, progress int) error
	CountByStatus() (map[domain.JobStatus]int64, error)
}

type jobRepository struct {
	conn *postgres.Connection
}

func NewJobRepository(conn *postgres.Connection) JobRepository {
	return &jobRepository{
		conn: conn,
	}
}

func (r *jobRepository) Insert(job *domain.Job) error {
	payloadJSON, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("erro ao serializar payload do job: %w", err)
	}

	if job.ID == "" {
		job.ID, err = gonanoid.Generate(dataPointIDAlphabet, jobIDLength)
		if err != nil {
			return fmt.Errorf("erro ao gerar id do job: %w", err)
		}
	}

	if job.NextRunAt.IsZero() {
		job.NextRunAt = time.Now()
	}

	query, args, err := squirrel.
		Insert("jobs").
		Columns("id", "type", "payload", "status", "progress", "attempts", "max_attempts", "next_run_at").
		Values(
			job.ID,
			job.Type,
			payloadJSON,
			domain.JobStatusPending,
			0,
			0,
			job.MaxAttempts,
			job.NextRunAt,
		).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	_, err = r.conn.Exec(query, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return fmt.Errorf("erro no banco de dados: %w (código: %s)", pqErr, pqErr.Code)
		}
		return fmt.Errorf("erro ao executar a query: %w", err)
	}

	return nil
}

func (r *jobRepository) GetByID(jobID string) (*domain.Job, error) {
	query, args, err := squirrel.
		Select("j.id, j.type, j.payload, j.status, j.progress, j.attempts, j.max_attempts, j.next_run_at, j.last_error, j.permanent, j.created_at, j.updated_at").
		From(jobsTable).
		Where(squirrel.Eq{"j.id": jobID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRow(query, args...)
	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear job: %w", err)
	}

	return job, nil
}

func (r *jobRepository) ClaimNext(types []domain.JobType) (*domain.Job, error) {
	typeNames := make([]string, 0, len(types))
	for _, t := range types {
		typeNames = append(typeNames, string(t))
	}

	row := r.conn.QueryRow(claimJobSQL, pq.Array(typeNames))
	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao reivindicar job: %w", err)
	}

	return job, nil
}

func (r *jobRepository) MarkCompleted(jobID string) error {
	query, args, err := squirrel.
		Update("jobs").
		Set("status", domain.JobStatusCompleted).
		Set("progress", 100).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": jobID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.Exec(query, args...); err != nil {
		return fmt.Errorf("erro ao executar a query: %w", err)
	}

	return nil
}

func (r *jobRepository) MarkFailed(jobID string, lastError string, permanent bool) error {
	query, args, err := squirrel.
		Update("jobs").
		Set("status", domain.JobStatusFailed).
		Set("last_error", lastError).
		Set("permanent", permanent).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": jobID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.Exec(query, args...); err != nil {
		return fmt.Errorf("erro ao executar a query: %w", err)
	}

	return nil
}

func (r *jobRepository) ScheduleRetry(jobID string, lastError string, nextRunAt time.Time) error {
	query, args, err := squirrel.
		Update("jobs").
		Set("status", domain.JobStatusPending).
		Set("last_error", lastError).
		Set("next_run_at", nextRunAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": jobID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.Exec(query, args...); err != nil {
		return fmt.Errorf("erro ao executar a query: %w", err)
	}

	return nil
}

func (r *jobRepository) UpdateProgress(jobID string, progress int) error {
	// GREATEST garante progresso monotonicamente não decrescente mesmo com
	// callbacks fora de ordem
	query, args, err := squirrel.
		Update("jobs").
		Set("progress", squirrel.Expr("GREATEST(progress, ?)", progress)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": jobID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.Exec(query, args...); err != nil {
		return fmt.Errorf("erro ao executar a query: %w", err)
	}

	return nil
}

func (r *jobRepository) CountByStatus() (map[domain.JobStatus]int64, error) {
	query, args, err := squirrel.
		Select("j.status, COUNT(*)").
		From(jobsTable).
		GroupBy("j.status").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int64)
	for rows.Next() {
		var status domain.JobStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("erro ao escanear contagem de jobs: %w", err)
		}
		counts[status] = count
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return counts, nil
}

func scanJob(row *sql.Row) (*domain.Job, error) {
	job := &domain.Job{}
	var payloadJSON []byte

	err := row.Scan(
		&job.ID,
		&job.Type,
		&payloadJSON,
		&job.Status,
		&job.Progress,
		&job.Attempts,
		&job.MaxAttempts,
		&job.NextRunAt,
		&job.LastError,
		&job.Permanent,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
			return nil, fmt.Errorf("erro ao desserializar payload do job: %w", err)
		}
	}

	return job, nil
}
