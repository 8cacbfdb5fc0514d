package repository

import (
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/database/postgres"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
)

type AlertRepository interface {
	Insert(alert *domain.Alert) error
}

type alertRepository struct {
	conn *postgres.Connection
}

func NewAlertRepository(conn *postgres.Connection) AlertRepository {
	return &alertRepository{
		conn: conn,
	}
}

func (r *alertRepository) Insert(alert *domain.Alert) error {
	var err error
	if alert.ID == "" {
		alert.ID, err = gonanoid.Generate(dataPointIDAlphabet, dataPointIDLength)
		if err != nil {
			return fmt.Errorf("erro ao gerar id do alerta: %w", err)
		}
	}

	query, args, err := squirrel.
		Insert("alerts").
		Columns("id", "tenant_id", "insight_id", "severity", "title", "message", "read").
		Values(
			alert.ID,
			alert.TenantID,
			alert.InsightID,
			alert.Severity,
			alert.Title,
			alert.Message,
			alert.Read,
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
