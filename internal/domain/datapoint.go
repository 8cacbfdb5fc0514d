package domain

import "time"

// MetricType é um enum aberto: adaptadores podem emitir novos tipos sem
// alteração no restante do pipeline
type MetricType string

const (
	MetricRevenue        MetricType = "revenue"
	MetricOrder          MetricType = "order"
	MetricPayment        MetricType = "payment"
	MetricCustomersTotal MetricType = "customers_total"
	MetricInventoryTotal MetricType = "inventory_total"
	MetricRefundsTotal   MetricType = "refunds_total"
	MetricSessions       MetricType = "sessions"
	MetricPageviews      MetricType = "pageviews"
	MetricAdSpend        MetricType = "ad_spend"
	MetricImpressions    MetricType = "impressions"
	MetricClicks         MetricType = "clicks"
)

// rollupMetrics são métricas de snapshot: vale sempre o registro mais recente,
// nunca a soma (evita contagem dupla quando coexistem pontos granulares e agregados)
var rollupMetrics = map[MetricType]bool{
	MetricCustomersTotal: true,
	MetricInventoryTotal: true,
	MetricRefundsTotal:   true,
}

// IsRollup indica se a métrica é um agregado de snapshot
func (m MetricType) IsRollup() bool {
	return rollupMetrics[m]
}

// DataPoint é uma observação normalizada no modelo canônico de métricas.
// A tupla (IntegrationID, MetricType, OccurredAt) é a chave de idempotência
// usada pelo pipeline de webhooks.
type DataPoint struct {
	ID            string
	TenantID      string
	IntegrationID string
	MetricType    MetricType
	Value         float64
	Currency      string
	Metadata      map[string]any
	OccurredAt    time.Time // quando o evento aconteceu na origem, não a inserção
	CreatedAt     time.Time
}

// SyncWindow delimita o intervalo de datas de uma sincronização
type SyncWindow struct {
	StartDate time.Time
	EndDate   time.Time
}

// SyncResult é o que um adaptador devolve após buscar e normalizar dados
type SyncResult struct {
	DataPoints []*DataPoint
	Metadata   map[string]any // metadados da plataforma (ex.: domínio da loja)
}
