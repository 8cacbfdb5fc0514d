package domain

import "time"

// JobType identifica o handler registrado que processa o job
type JobType string

const (
	JobTypeDataSync           JobType = "data_sync"
	JobTypeWebhookProcessing  JobType = "webhook_processing"
	JobTypeInsightsGeneration JobType = "insights_generation"
)

// JobStatus representa o estado de um job na fila durável
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job é uma unidade de trabalho persistida na fila.
// Entrega é at-least-once: handlers precisam ser idempotentes.
type Job struct {
	ID          string
	Type        JobType
	Payload     map[string]any
	Status      JobStatus
	Progress    int // 0 a 100, monotonicamente não decrescente
	Attempts    int
	MaxAttempts int
	NextRunAt   time.Time
	LastError   *string
	Permanent   bool // distingue "falhou de vez" de "vai tentar de novo"
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SyncType define o modo de sincronização solicitado
type SyncType string

const (
	SyncTypeFull        SyncType = "full"
	SyncTypeIncremental SyncType = "incremental"
)

// DataSyncJob é o payload de um job de sincronização de dados
type DataSyncJob struct {
	IntegrationID string   `mapstructure:"integration_id" json:"integration_id"`
	TenantID      string   `mapstructure:"tenant_id" json:"tenant_id"`
	Platform      Platform `mapstructure:"platform" json:"platform"`
	SyncType      SyncType `mapstructure:"sync_type" json:"sync_type"`
	StartDate     string   `mapstructure:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate       string   `mapstructure:"end_date,omitempty" json:"end_date,omitempty"`
}

// WebhookProcessingJob é o payload de um job de processamento de webhook
type WebhookProcessingJob struct {
	Platform      Platform `mapstructure:"platform" json:"platform"`
	EventType     string   `mapstructure:"event_type" json:"event_type"`
	Payload       string   `mapstructure:"payload" json:"payload"` // corpo bruto, base da assinatura
	Signature     string   `mapstructure:"signature" json:"signature"`
	TenantID      string   `mapstructure:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	IntegrationID string   `mapstructure:"integration_id,omitempty" json:"integration_id,omitempty"`
}

// InsightsGenerationJob é o payload de um job de geração de insights
type InsightsGenerationJob struct {
	TenantID        string `mapstructure:"tenant_id" json:"tenant_id"`
	Period          int    `mapstructure:"period" json:"period"` // janela de análise em dias
	ForceRegenerate bool   `mapstructure:"force_regenerate" json:"force_regenerate"`
}
