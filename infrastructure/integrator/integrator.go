package integrator

import (
	"context"
	"errors"
	"time"

	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/pkg/secrets"
)

var (
	// ErrAuthentication indica credenciais expiradas ou revogadas na plataforma.
	// Falha permanente: a integração vai para ERROR até reconexão externa.
	ErrAuthentication = errors.New("falha de autenticação na plataforma")

	// ErrInvalidSignature indica que a assinatura do webhook não confere
	ErrInvalidSignature = errors.New("assinatura de webhook inválida")
)

// WebhookEvent é o resultado do mapeamento de um evento de webhook.
// DataPoint e Metadata podem ser nil: evento reconhecido mas sem efeito
type WebhookEvent struct {
	DataPoint *domain.DataPoint
	Metadata  map[string]any // atualização de metadata da integração, se houver
}

// Adapter é a interface de capacidade fixa que toda plataforma implementa.
// Adicionar uma plataforma significa registrar um novo adaptador, sem tocar
// no orquestrador.
type Adapter interface {
	Platform() domain.Platform

	// FetchAndNormalize busca os registros brutos da plataforma para a janela
	// e devolve os DataPoints canônicos mais os rollups agregados
	FetchAndNormalize(ctx context.Context, integration *domain.Integration, creds *secrets.Credentials, window domain.SyncWindow) (*domain.SyncResult, error)

	// VerifySignature valida a autenticidade do payload bruto segundo o
	// esquema da plataforma
	VerifySignature(payload []byte, signature string) error

	// MapWebhookEvent extrai um DataPoint canônico do payload de um evento.
	// handled=false significa par (plataforma, evento) não reconhecido — não é erro
	MapWebhookEvent(eventType string, payload []byte) (event *WebhookEvent, handled bool, err error)
}

// MergeByOccurrence colapsa pontos que compartilham a chave de idempotência
// (metricType, occurredAt): métricas granulares somam, rollups ficam com o
// último valor. As plataformas registram dois pedidos no mesmo segundo; sem o
// colapso o batch violaria o índice único de data_points.
func MergeByOccurrence(points []*domain.DataPoint) []*domain.DataPoint {
	merged := make([]*domain.DataPoint, 0, len(points))
	index := make(map[string]*domain.DataPoint, len(points))

	for _, point := range points {
		key := string(point.MetricType) + "|" + point.OccurredAt.UTC().Format(time.RFC3339Nano)

		existing, ok := index[key]
		if !ok {
			index[key] = point
			merged = append(merged, point)
			continue
		}

		if point.MetricType.IsRollup() {
			existing.Value = point.Value
			continue
		}

		existing.Value += point.Value
		// o metadata individual deixa de identificar um único registro
		existing.Metadata = bumpRecordCount(existing.Metadata)
	}

	return merged
}

func bumpRecordCount(metadata map[string]any) map[string]any {
	count, _ := metadata["records"].(int)
	if count == 0 {
		count = 1
	}
	return map[string]any{"records": count + 1}
}

// Registry resolve adaptadores por identificador de plataforma
type Registry struct {
	adapters map[domain.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	registry := &Registry{
		adapters: make(map[domain.Platform]Adapter),
	}
	for _, adapter := range adapters {
		registry.Register(adapter)
	}
	return registry
}

func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Platform()] = adapter
}

// Resolve retorna o adaptador da plataforma ou ErrUnknownPlatform
func (r *Registry) Resolve(platform domain.Platform) (Adapter, error) {
	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, domain.ErrUnknownPlatform
	}
	return adapter, nil
}
