package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/database/postgres"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
)

const (
	integrationsTable = "integrations i"
)

type IntegrationRepository interface {
	GetByID(integrationID string) (*domain.Integration, error)
	ListByTenant(tenantID string, statuses []domain.IntegrationStatus) ([]*domain.Integration, error)
	// TransitionStatus faz a transição guardada de estado: só atualiza se o
	// estado atual for `from`. Retorna falso quando a guarda rejeita — é o
	// mecanismo de single-flight das sincronizações.
	TransitionStatus(integrationID string, from, to domain.IntegrationStatus) (bool, error)
	UpdateLastSync(integrationID string, syncedAt time.Time) error
	UpdateMetadata(integrationID string, metadata map[string]any) error
	// ListTenantIDs lista os tenants com ao menos uma integração conectada,
	// base do fan-out da geração recorrente de insights
	ListTenantIDs() ([]string, error)
}

type integrationRepository struct {
	conn *postgres.Connection
}

func NewIntegrationRepository(conn *postgres.Connection) IntegrationRepository {
	return &integrationRepository{
		conn: conn,
	}
}

func (r *integrationRepository) GetByID(integrationID string) (*domain.Integration, error) {
	query, args, err := squirrel.
		Select("i.id, i.tenant_id, i.platform, i.status, i.credentials, i.metadata, i.last_sync_at, i.created_at, i.updated_at").
		From(integrationsTable).
		Where(squirrel.Eq{"i.id": integrationID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRow(query, args...)
	integration, err := r.scanIntegration(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear integração: %w", err)
	}

	return integration, nil
}

func (r *integrationRepository) ListByTenant(tenantID string, statuses []domain.IntegrationStatus) ([]*domain.Integration, error) {
	queryBuilder := squirrel.
		Select("i.id, i.tenant_id, i.platform, i.status, i.credentials, i.metadata, i.last_sync_at, i.created_at, i.updated_at").
		From(integrationsTable).
		Where(squirrel.Eq{"i.tenant_id": tenantID}).
		OrderBy("i.created_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	if len(statuses) > 0 {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"i.status": statuses})
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

	integrations := make([]*domain.Integration, 0)
	for rows.Next() {
		integration, err := r.scanIntegrationRows(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear integrações: %w", err)
		}
		integrations = append(integrations, integration)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return integrations, nil
}

func (r *integrationRepository) TransitionStatus(integrationID string, from, to domain.IntegrationStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("transição de estado inválida: %s -> %s", from, to)
	}

	query, args, err := squirrel.
		Update("integrations").
		Set("status", to).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": integrationID, "status": from}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("erro ao construir a query: %w", err)
	}

	result, err := r.conn.Exec(query, args...)
	if err != nil {
		return false, fmt.Errorf("erro ao executar a query: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("erro ao obter número de linhas afetadas: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *integrationRepository) UpdateLastSync(integrationID string, syncedAt time.Time) error {
	query, args, err := squirrel.
		Update("integrations").
		Set("last_sync_at", syncedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": integrationID}).
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

func (r *integrationRepository) UpdateMetadata(integrationID string, metadata map[string]any) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("erro ao serializar metadata para JSON: %w", err)
	}

	query, args, err := squirrel.
		Update("integrations").
		Set("metadata", metadataJSON).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": integrationID}).
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

func (r *integrationRepository) ListTenantIDs() ([]string, error) {
	query, args, err := squirrel.
		Select("DISTINCT i.tenant_id").
		From(integrationsTable).
		Where(squirrel.Eq{"i.status": domain.IntegrationStatusConnected}).
		OrderBy("i.tenant_id ASC").
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

	tenantIDs := make([]string, 0)
	for rows.Next() {
		var tenantID string
		if err := rows.Scan(&tenantID); err != nil {
			return nil, fmt.Errorf("erro ao escanear tenant: %w", err)
		}
		tenantIDs = append(tenantIDs, tenantID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return tenantIDs, nil
}

func (r *integrationRepository) scanIntegration(row *sql.Row) (*domain.Integration, error) {
	integration := &domain.Integration{}
	var metadataJSON []byte

	err := row.Scan(
		&integration.ID,
		&integration.TenantID,
		&integration.Platform,
		&integration.Status,
		&integration.Credentials,
		&metadataJSON,
		&integration.LastSyncAt,
		&integration.CreatedAt,
		&integration.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &integration.Metadata); err != nil {
			return nil, fmt.Errorf("erro ao desserializar JSON de metadata: %w", err)
		}
	}

	return integration, nil
}

func (r *integrationRepository) scanIntegrationRows(rows *sql.Rows) (*domain.Integration, error) {
	integration := &domain.Integration{}
	var metadataJSON []byte

	err := rows.Scan(
		&integration.ID,
		&integration.TenantID,
		&integration.Platform,
		&integration.Status,
		&integration.Credentials,
		&metadataJSON,
		&integration.LastSyncAt,
		&integration.CreatedAt,
		&integration.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &integration.Metadata); err != nil {
			return nil, fmt.Errorf("erro ao desserializar JSON de metadata: %w", err)
		}
	}

	return integration, nil
}
