package repository

import (
	"context"
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
	dataPointsTable = "data_points dp"

	dataPointIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	dataPointIDLength   = 12
)

type DataPointRepository interface {
	// ReplaceForIntegration apaga todos os pontos da integração e insere os
	// novos dentro de uma única transação (replace-then-write)
	ReplaceForIntegration(integrationID string, points []*domain.DataPoint) error
	// Upsert aplica um ponto pela chave de idempotência
	// (integration_id, metric_type, occurred_at); reaplicação sobrescreve o valor
	Upsert(point *domain.DataPoint) error
	GetByTenantAndRange(tenantID string, startDate, endDate time.Time) ([]*domain.DataPoint, error)
	CountByIntegration(integrationID string) (int64, error)
}

type dataPointRepository struct {
	conn *postgres.Connection
}

func NewDataPointRepository(conn *postgres.Connection) DataPointRepository {
	return &dataPointRepository{
		conn: conn,
	}
}

func (r *dataPointRepository) ReplaceForIntegration(integrationID string, points []*domain.DataPoint) error {
	deleteSQL, deleteArgs, err := squirrel.
		Delete("data_points").
		Where(squirrel.Eq{"integration_id": integrationID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query de delete: %w", err)
	}

	return r.conn.RunInTransaction(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(deleteSQL, deleteArgs...); err != nil {
			return fmt.Errorf("erro ao apagar pontos da integração: %w", err)
		}

		if len(points) == 0 {
			return nil
		}

		insertBuilder := squirrel.
			Insert("data_points").
			Columns("id", "tenant_id", "integration_id", "metric_type", "value", "currency", "metadata", "occurred_at").
			PlaceholderFormat(squirrel.Dollar)

		for _, point := range points {
			metadataJSON, err := marshalMetadata(point.Metadata)
			if err != nil {
				return err
			}

			id := point.ID
			if id == "" {
				id, err = gonanoid.Generate(dataPointIDAlphabet, dataPointIDLength)
				if err != nil {
					return fmt.Errorf("erro ao gerar id do data point: %w", err)
				}
			}

			insertBuilder = insertBuilder.Values(
				id,
				point.TenantID,
				point.IntegrationID,
				point.MetricType,
				point.Value,
				point.Currency,
				metadataJSON,
				point.OccurredAt,
			)
		}

		insertSQL, insertArgs, err := insertBuilder.ToSql()
		if err != nil {
			return fmt.Errorf("erro ao construir a query de insert: %w", err)
		}

		if _, err := tx.Exec(insertSQL, insertArgs...); err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				return fmt.Errorf("erro no banco de dados: %w (código: %s)", pqErr, pqErr.Code)
			}
			return fmt.Errorf("erro ao inserir pontos da integração: %w", err)
		}

		return nil
	})
}

func (r *dataPointRepository) Upsert(point *domain.DataPoint) error {
	metadataJSON, err := marshalMetadata(point.Metadata)
	if err != nil {
		return err
	}

	id := point.ID
	if id == "" {
		id, err = gonanoid.Generate(dataPointIDAlphabet, dataPointIDLength)
		if err != nil {
			return fmt.Errorf("erro ao gerar id do data point: %w", err)
		}
	}

	query := squirrel.StatementBuilder.
		Insert("data_points").
		Columns("id", "tenant_id", "integration_id", "metric_type", "value", "currency", "metadata", "occurred_at").
		Values(
			id,
			point.TenantID,
			point.IntegrationID,
			point.MetricType,
			point.Value,
			point.Currency,
			metadataJSON,
			point.OccurredAt,
		).
		Suffix(`
			ON CONFLICT (integration_id, metric_type, occurred_at) DO UPDATE SET
				value = EXCLUDED.value,
				currency = EXCLUDED.currency,
				metadata = EXCLUDED.metadata
		`).
		PlaceholderFormat(squirrel.Dollar)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	_, err = r.conn.Exec(sqlQuery, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return fmt.Errorf("erro no banco de dados: %w (código: %s)", pqErr, pqErr.Code)
		}
		return fmt.Errorf("erro ao executar a query: %w", err)
	}

	return nil
}

func (r *dataPointRepository) GetByTenantAndRange(tenantID string, startDate, endDate time.Time) ([]*domain.DataPoint, error) {
	query, args, err := squirrel.
		Select("dp.id, dp.tenant_id, dp.integration_id, dp.metric_type, dp.value, dp.currency, dp.metadata, dp.occurred_at, dp.created_at").
		From(dataPointsTable).
		Where(squirrel.Eq{"dp.tenant_id": tenantID}).
		Where(squirrel.GtOrEq{"dp.occurred_at": startDate}).
		Where(squirrel.Lt{"dp.occurred_at": endDate}).
		OrderBy("dp.occurred_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.Query(query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	points := make([]*domain.DataPoint, 0)
	for rows.Next() {
		point := &domain.DataPoint{}
		var metadataJSON []byte

		err := rows.Scan(
			&point.ID,
			&point.TenantID,
			&point.IntegrationID,
			&point.MetricType,
			&point.Value,
			&point.Currency,
			&metadataJSON,
			&point.OccurredAt,
			&point.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear data points: %w", err)
		}

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &point.Metadata); err != nil {
				return nil, fmt.Errorf("erro ao desserializar JSON de metadata: %w", err)
			}
		}

		points = append(points, point)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return points, nil
}

func (r *dataPointRepository) CountByIntegration(integrationID string) (int64, error) {
	query, args, err := squirrel.
		Select("COUNT(*)").
		From(dataPointsTable).
		Where(squirrel.Eq{"dp.integration_id": integrationID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	var count int64
	if err := r.conn.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("erro ao executar a query: %w", err)
	}

	return count, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("erro ao serializar metadata para JSON: %w", err)
	}

	return metadataJSON, nil
}
