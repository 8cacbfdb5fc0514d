package handler

import (
	"net/http"

	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository"
	"github.com/vfg2006/pulse-analytics-api/internal/api/handler/router"
	"github.com/vfg2006/pulse-analytics-api/internal/queue"
)

func Healthcheck() []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(),
		},
	}
}

// Webhooks expõe o endpoint de recebimento de entregas das plataformas
func Webhooks(queueService *queue.Service) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/webhooks/:platform",
			Method:  http.MethodPost,
			Handler: ReceiveWebhook(queueService),
		},
	}
}

func Integrations(
	integrationRepo repository.IntegrationRepository,
	dataPointRepo repository.DataPointRepository,
	queueService *queue.Service,
) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/integrations/:id",
			Method:  http.MethodGet,
			Handler: GetIntegration(integrationRepo, dataPointRepo),
		},
		{
			Path:    "/v1/integrations/:id/sync",
			Method:  http.MethodPost,
			Handler: TriggerSync(integrationRepo, queueService),
		},
	}
}

func Insights(insightRepo repository.InsightRepository, queueService *queue.Service) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/insights/generate",
			Method:  http.MethodPost,
			Handler: GenerateInsights(queueService),
		},
		{
			Path:    "/v1/tenants/:id/insights",
			Method:  http.MethodGet,
			Handler: ListTenantInsights(insightRepo),
		},
	}
}

func Jobs(jobRepo repository.JobRepository, queueService *queue.Service) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/jobs/:id",
			Method:  http.MethodGet,
			Handler: GetJob(jobRepo),
		},
		{
			Path:    "/v1/queue/status",
			Method:  http.MethodGet,
			Handler: QueueStatus(queueService),
		},
	}
}
