package insighting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/queue"
	"github.com/vfg2006/pulse-analytics-api/pkg/utils"
)

// changeThresholds define, por métrica, a variação percentual mínima entre o
// período atual e o anterior para gerar um insight
var changeThresholds = map[domain.MetricType]float64{
	domain.MetricRevenue:        20,
	domain.MetricOrder:          20,
	domain.MetricCustomersTotal: 15,
	domain.MetricSessions:       25,
	domain.MetricAdSpend:        30,
}

// aovThreshold é o limiar da regra cruzada de ticket médio (receita / pedidos)
const aovThreshold = 15.0

// metricLabels traduz o tipo de métrica para o texto exibido no dashboard
var metricLabels = map[domain.MetricType]string{
	domain.MetricRevenue:        "Receita",
	domain.MetricOrder:          "Pedidos",
	domain.MetricCustomersTotal: "Total de clientes",
	domain.MetricSessions:       "Sessões",
	domain.MetricAdSpend:        "Investimento em anúncios",
}

// Enqueuer é o que o motor precisa da fila para o fan-out por tenant
type Enqueuer interface {
	Enqueue(jobType domain.JobType, payload map[string]any) (*domain.Job, error)
}

// Service é o motor periódico de insights: compara o período atual com o
// anterior por métrica, gera insights acima dos limiares e escala os de alto
// impacto para alertas
type Service interface {
	Generate(ctx context.Context, params domain.InsightsGenerationJob) error

	// HandleJob é o handler registrado na fila para jobs de insights_generation.
	// Sem tenant_id no payload, faz fan-out: enfileira um job por tenant ativo.
	HandleJob(ctx context.Context, job *domain.Job, progress queue.ProgressFunc) error
}

type service struct {
	cfg             config.InsightsEngine
	integrationRepo repository.IntegrationRepository
	dataPointRepo   repository.DataPointRepository
	insightRepo     repository.InsightRepository
	alertRepo       repository.AlertRepository
	enqueuer        Enqueuer
}

func NewService(
	cfg config.InsightsEngine,
	integrationRepo repository.IntegrationRepository,
	dataPointRepo repository.DataPointRepository,
	insightRepo repository.InsightRepository,
	alertRepo repository.AlertRepository,
	enqueuer Enqueuer,
) Service {
	return &service{
		cfg:             cfg,
		integrationRepo: integrationRepo,
		dataPointRepo:   dataPointRepo,
		insightRepo:     insightRepo,
		alertRepo:       alertRepo,
		enqueuer:        enqueuer,
	}
}

func (s *service) HandleJob(ctx context.Context, job *domain.Job, progress queue.ProgressFunc) error {
	params := domain.InsightsGenerationJob{}
	if err := queue.DecodePayload(job, &params); err != nil {
		return queue.Permanent(fmt.Errorf("erro ao decodificar payload de insights: %w", err))
	}

	if params.TenantID == "" {
		return s.fanOut(params)
	}

	progress(10)

	if err := s.Generate(ctx, params); err != nil {
		return err
	}

	progress(100)
	return nil
}

// fanOut enfileira um job de geração por tenant com integração conectada,
// isolando falhas e retries por tenant
func (s *service) fanOut(params domain.InsightsGenerationJob) error {
	tenantIDs, err := s.integrationRepo.ListTenantIDs()
	if err != nil {
		return fmt.Errorf("erro ao listar tenants ativos: %w", err)
	}

	for _, tenantID := range tenantIDs {
		_, err := s.enqueuer.Enqueue(domain.JobTypeInsightsGeneration, map[string]any{
			"tenant_id":        tenantID,
			"period":           params.Period,
			"force_regenerate": params.ForceRegenerate,
		})
		if err != nil {
			return fmt.Errorf("erro ao enfileirar geração para o tenant %s: %w", tenantID, err)
		}
	}

	logrus.WithField("tenants", len(tenantIDs)).Info("insighting: fan-out de geração de insights enfileirado")

	return nil
}

func (s *service) Generate(_ context.Context, params domain.InsightsGenerationJob) error {
	entry := logrus.WithField("tenant_id", params.TenantID)

	connected, err := s.integrationRepo.ListByTenant(params.TenantID, []domain.IntegrationStatus{domain.IntegrationStatusConnected})
	if err != nil {
		return fmt.Errorf("erro ao listar integrações do tenant: %w", err)
	}
	if len(connected) == 0 {
		entry.Debug("insighting: tenant sem integração conectada, nada a gerar")
		return nil
	}

	// de-duplicação por recência: se já geramos há pouco, não gera de novo
	if !params.ForceRegenerate {
		recencyCutoff := time.Now().Add(-time.Duration(s.cfg.RecencyWindowHours) * time.Hour)
		recent, err := s.insightRepo.CountSince(params.TenantID, recencyCutoff)
		if err != nil {
			return fmt.Errorf("erro ao verificar insights recentes: %w", err)
		}
		if recent > 0 {
			entry.WithField("recent_insights", recent).Debug("insighting: insights recentes existem, pulando geração")
			return nil
		}
	}

	periodDays := params.Period
	if periodDays <= 0 {
		periodDays = s.cfg.AnalysisWindowDays
	}

	now := time.Now()
	currentStart := now.AddDate(0, 0, -periodDays)
	previousStart := now.AddDate(0, 0, -2*periodDays)

	points, err := s.dataPointRepo.GetByTenantAndRange(params.TenantID, previousStart, now)
	if err != nil {
		return fmt.Errorf("erro ao buscar data points do tenant: %w", err)
	}

	current := aggregate(points, currentStart, now)
	previous := aggregate(points, previousStart, currentStart)

	insights := s.evaluate(current, previous, periodDays)
	if len(insights) == 0 {
		entry.Debug("insighting: nenhuma variação acima dos limiares")
		return nil
	}

	// retenção antes da escrita, para o histórico não crescer sem limite
	pruned, err := s.insightRepo.DeleteOlderThan(params.TenantID, s.cfg.RetentionDays)
	if err != nil {
		return fmt.Errorf("erro ao podar insights antigos: %w", err)
	}
	if pruned > 0 {
		entry.WithField("pruned", pruned).Debug("insighting: insights antigos removidos")
	}

	for _, insight := range insights {
		insight.TenantID = params.TenantID

		if err := s.insightRepo.Insert(insight); err != nil {
			return fmt.Errorf("erro ao inserir insight: %w", err)
		}

		if insight.ImpactScore >= s.cfg.HighImpactThreshold {
			alert := &domain.Alert{
				TenantID:  params.TenantID,
				InsightID: insight.ID,
				Severity:  domain.SeverityFromImpact(insight.ImpactScore),
				Title:     insight.Title,
				Message:   insight.Description,
			}
			if err := s.alertRepo.Insert(alert); err != nil {
				return fmt.Errorf("erro ao inserir alerta: %w", err)
			}
		}
	}

	entry.WithField("insights", len(insights)).Info("insighting: geração concluída")

	return nil
}

// metricAggregate é o valor consolidado de uma métrica em um período
type metricAggregate map[domain.MetricType]float64

// aggregate consolida os pontos do intervalo [start, end): métricas granulares
// somam; rollups de snapshot valem o registro mais recente do período
func aggregate(points []*domain.DataPoint, start, end time.Time) metricAggregate {
	totals := make(metricAggregate)
	latestAt := make(map[domain.MetricType]time.Time)

	for _, point := range points {
		if point.OccurredAt.Before(start) || !point.OccurredAt.Before(end) {
			continue
		}

		if point.MetricType.IsRollup() {
			if point.OccurredAt.After(latestAt[point.MetricType]) {
				latestAt[point.MetricType] = point.OccurredAt
				totals[point.MetricType] = point.Value
			}
			continue
		}

		totals[point.MetricType] += point.Value
	}

	return totals
}

// evaluate aplica as regras de variação período-sobre-período e a regra
// cruzada de ticket médio, em ordem determinística de métrica
func (s *service) evaluate(current, previous metricAggregate, periodDays int) []*domain.Insight {
	insights := make([]*domain.Insight, 0)

	metrics := make([]domain.MetricType, 0, len(changeThresholds))
	for metric := range changeThresholds {
		metrics = append(metrics, metric)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i] < metrics[j] })

	for _, metric := range metrics {
		threshold := changeThresholds[metric]
		prev, cur := previous[metric], current[metric]

		insight := buildChangeInsight(metric, metricLabels[metric], cur, prev, threshold, periodDays)
		if insight != nil {
			insights = append(insights, insight)
		}
	}

	// regra cruzada: ticket médio (receita / pedidos) compara a razão entre
	// períodos, o que captura mudanças invisíveis nas métricas isoladas
	curOrders, prevOrders := current[domain.MetricOrder], previous[domain.MetricOrder]
	if curOrders > 0 && prevOrders > 0 {
		curAOV := current[domain.MetricRevenue] / curOrders
		prevAOV := previous[domain.MetricRevenue] / prevOrders

		insight := buildChangeInsight("average_order_value", "Ticket médio", curAOV, prevAOV, aovThreshold, periodDays)
		if insight != nil {
			insight.Category = domain.InsightCategoryRecommendation
			insights = append(insights, insight)
		}
	}

	return insights
}

// buildChangeInsight compara o valor atual com o anterior e devolve um insight
// quando a variação percentual atinge o limiar; nil quando não há o que dizer
func buildChangeInsight(metric domain.MetricType, label string, current, previous, threshold float64, periodDays int) *domain.Insight {
	// período anterior sem dados: sem base de comparação, sem insight
	if previous == 0 {
		return nil
	}

	changePct := (current - previous) / previous * 100
	magnitude := math.Abs(changePct)
	if magnitude < threshold {
		return nil
	}

	category := domain.InsightCategoryTrend
	direction := "aumentou"
	if changePct < 0 {
		category = domain.InsightCategoryAnomaly
		direction = "caiu"
	}

	return &domain.Insight{
		Category:    category,
		Title:       fmt.Sprintf("%s %s %.1f%%", label, direction, magnitude),
		Description: fmt.Sprintf("%s %s %.1f%% nos últimos %d dias: de %.2f para %.2f em relação ao período anterior.", label, direction, magnitude, periodDays, previous, current),
		ImpactScore: impactScore(magnitude, threshold),
		Metadata: map[string]any{
			"metric_type":    string(metric),
			"current_value":  utils.RoundWithTwoDecimalPlace(current),
			"previous_value": utils.RoundWithTwoDecimalPlace(previous),
			"change_pct":     utils.RoundWithTwoDecimalPlace(changePct),
			"period_days":    periodDays,
		},
	}
}

// impactScore mapeia a magnitude da variação para a escala 0-10: começa em 6
// no limiar e cresce proporcionalmente ao excedente, saturando em 10
func impactScore(magnitude, threshold float64) float64 {
	score := 6 + (magnitude-threshold)/threshold*8
	return math.Min(10, score)
}
