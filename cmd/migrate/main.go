package main

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
)

// statements cria o schema na ordem de dependência; tudo idempotente para o
// script poder rodar em cima de um banco já inicializado
var statements = []struct {
	name string
	sql  string
}{
	{
		name: "integrations",
		sql: `CREATE TABLE IF NOT EXISTS integrations (
			id           VARCHAR(21)  PRIMARY KEY,
			tenant_id    VARCHAR(64)  NOT NULL,
			platform     VARCHAR(32)  NOT NULL,
			status       VARCHAR(16)  NOT NULL DEFAULT 'CONNECTED',
			credentials  BYTEA,
			metadata     JSONB,
			last_sync_at TIMESTAMPTZ,
			created_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "integrations_tenant_idx",
		sql:  `CREATE INDEX IF NOT EXISTS integrations_tenant_idx ON integrations (tenant_id)`,
	},
	{
		name: "data_points",
		sql: `CREATE TABLE IF NOT EXISTS data_points (
			id             VARCHAR(21)      PRIMARY KEY,
			tenant_id      VARCHAR(64)      NOT NULL,
			integration_id VARCHAR(21)      NOT NULL REFERENCES integrations (id) ON DELETE CASCADE,
			metric_type    VARCHAR(32)      NOT NULL,
			value          DOUBLE PRECISION NOT NULL,
			currency       VARCHAR(8),
			metadata       JSONB,
			occurred_at    TIMESTAMPTZ      NOT NULL,
			created_at     TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		)`,
	},
	{
		// chave de idempotência do pipeline de webhooks e do upsert incremental
		name: "data_points_idempotency_idx",
		sql:  `CREATE UNIQUE INDEX IF NOT EXISTS data_points_idempotency_idx ON data_points (integration_id, metric_type, occurred_at)`,
	},
	{
		name: "data_points_tenant_occurred_idx",
		sql:  `CREATE INDEX IF NOT EXISTS data_points_tenant_occurred_idx ON data_points (tenant_id, occurred_at)`,
	},
	{
		name: "insights",
		sql: `CREATE TABLE IF NOT EXISTS insights (
			id           VARCHAR(21)      PRIMARY KEY,
			tenant_id    VARCHAR(64)      NOT NULL,
			category     VARCHAR(16)      NOT NULL,
			title        TEXT             NOT NULL,
			description  TEXT,
			impact_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			metadata     JSONB,
			created_at   TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "insights_tenant_created_idx",
		sql:  `CREATE INDEX IF NOT EXISTS insights_tenant_created_idx ON insights (tenant_id, created_at)`,
	},
	{
		name: "alerts",
		sql: `CREATE TABLE IF NOT EXISTS alerts (
			id         VARCHAR(21) PRIMARY KEY,
			tenant_id  VARCHAR(64) NOT NULL,
			insight_id VARCHAR(21) NOT NULL REFERENCES insights (id) ON DELETE CASCADE,
			severity   VARCHAR(16) NOT NULL,
			title      TEXT        NOT NULL,
			message    TEXT,
			read       BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "jobs",
		sql: `CREATE TABLE IF NOT EXISTS jobs (
			id           VARCHAR(21) PRIMARY KEY,
			type         VARCHAR(32) NOT NULL,
			payload      JSONB,
			status       VARCHAR(16) NOT NULL DEFAULT 'pending',
			progress     INTEGER     NOT NULL DEFAULT 0,
			attempts     INTEGER     NOT NULL DEFAULT 0,
			max_attempts INTEGER     NOT NULL DEFAULT 5,
			next_run_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_error   TEXT,
			permanent    BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		// índice parcial que serve a query de claim dos workers
		name: "jobs_claim_idx",
		sql:  `CREATE INDEX IF NOT EXISTS jobs_claim_idx ON jobs (type, next_run_at) WHERE status = 'pending'`,
	},
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	logrus.Info("Iniciando bootstrap do schema...")

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN+"?sslmode=disable")
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Erro ao testar conexão com PostgreSQL")
	}

	start := time.Now()
	for _, stmt := range statements {
		if _, err := db.Exec(stmt.sql); err != nil {
			logrus.WithError(err).Fatalf("Erro ao aplicar %s", stmt.name)
		}
		logrus.Infof("Aplicado: %s", stmt.name)
	}

	logrus.Infof("Schema pronto em %v", time.Since(start))
}
