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
	insightsTable = "insights ins"
)

type InsightRepository interface {
	Insert(insight *domain.Insight) error
	ListByTenant(tenantID string, limit uint64) ([]*domain.Insight, error)
	// CountSince conta os insights do tenant criados a partir do instante dado,
	// usado pela de-duplicação do motor de insights
	CountSince(tenantID string, since time.Time) (int64, error)
	DeleteOlderThan(tenantID string, days int) (int64, error)
}

type insightRepository struct {
	conn *postgres.Connection
}

func NewInsightRepository(conn *postgres.Connection) InsightRepository {
	return &insightRepository{
		conn: conn,
	}
}

func (r *insightRepository) Insert(insight *domain.Insight) error {
	metadataJSON, err := marshalMetadata(insight.Metadata)
	if err != nil {
		return err
	}

	if insight.ID == "" {
		insight.ID, err = gonanoid.Generate(dataPointIDAlphabet, dataPointIDLength)
		if err != nil {
			return fmt.Errorf("erro ao gerar id do insight: %w", err)
		}
	}

	query, args, err := squirrel.
		Insert("insights").
		Columns("id", "tenant_id", "category", "title", "description", "impact_score", "metadata").
		Values(
			insight.ID,
			insight.TenantID,
			insight.Category,
			insight.Title,
			insight.Description,
			insight.ImpactScore,
			metadataJSON,
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

func (r *insightRepository) ListByTenant(tenantID string, limit uint64) ([]*domain.Insight, error) {
	queryBuilder := squirrel.
		Select("ins.id, ins.tenant_id, ins.category, ins.title, ins.description, ins.impact_score, ins.metadata, ins.created_at").
		From(insightsTable).
		Where(squirrel.Eq{"ins.tenant_id": tenantID}).
		OrderBy("ins.created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if limit > 0 {
		queryBuilder = queryBuilder.Limit(limit)
	}

	query, args, err := queryBuilder.ToSql()
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

	insights := make([]*domain.Insight, 0)
	for rows.Next() {
		insight := &domain.Insight{}
		var metadataJSON []byte

		err := rows.Scan(
			&insight.ID,
			&insight.TenantID,
			&insight.Category,
			&insight.Title,
			&insight.Description,
			&insight.ImpactScore,
			&metadataJSON,
			&insight.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear insights: %w", err)
		}

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &insight.Metadata); err != nil {
				return nil, fmt.Errorf("erro ao desserializar JSON de metadata: %w", err)
			}
		}

		insights = append(insights, insight)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return insights, nil
}

func (r *insightRepository) CountSince(tenantID string, since time.Time) (int64, error) {
	query, args, err := squirrel.
		Select("COUNT(*)").
		From(insightsTable).
		Where(squirrel.Eq{"ins.tenant_id": tenantID}).
		Where(squirrel.GtOrEq{"ins.created_at": since}).
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

func (r *insightRepository) DeleteOlderThan(tenantID string, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	query, args, err := squirrel.
		Delete("insights").
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.Lt{"created_at": cutoff}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	result, err := r.conn.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("erro ao executar a query: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("erro ao obter número de linhas afetadas: %w", err)
	}

	return rowsAffected, nil
}
