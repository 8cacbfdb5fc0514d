package handler

import (
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/queue"
	"github.com/vfg2006/pulse-analytics-api/pkg/apiErrors"
	"github.com/vfg2006/pulse-analytics-api/pkg/log"
)

// signatureHeaders mapeia a plataforma para o header que carrega a assinatura
// do webhook, no esquema de cada uma
var signatureHeaders = map[domain.Platform]string{
	domain.PlatformShopify:         "X-Shopify-Hmac-Sha256",
	domain.PlatformStripe:          "Stripe-Signature",
	domain.PlatformGoogleAnalytics: "X-Goog-Signature",
	domain.PlatformMetaAds:         "X-Hub-Signature-256",
}

// eventTypeHeaders mapeia a plataforma para o header que identifica o evento
var eventTypeHeaders = map[domain.Platform]string{
	domain.PlatformShopify:         "X-Shopify-Topic",
	domain.PlatformStripe:          "Stripe-Event-Type",
	domain.PlatformGoogleAnalytics: "X-Goog-Event-Type",
	domain.PlatformMetaAds:         "X-Hub-Event-Type",
}

// ReceiveWebhook aceita a entrega de um webhook e enfileira o processamento.
// A resposta é 202 imediata: verificação de assinatura e aplicação do evento
// acontecem no worker, e redelivery é inócua pela chave de idempotência.
func ReceiveWebhook(queueService *queue.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		platform := domain.Platform(httprouter.ParamsFromContext(r.Context()).ByName("platform"))

		signatureHeader, known := signatureHeaders[platform]
		if !known {
			logger.WithField("platform", platform).Warn("webhooks: unknown platform on delivery")
			apiErrors.WriteError(w, apiErrors.ErrUnknownPlatform, "Plataforma desconhecida", nil)
			return
		}

		integrationID := r.URL.Query().Get("integration_id")
		if integrationID == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Parâmetro integration_id é obrigatório", nil)
			return
		}

		// corpo bruto preservado byte a byte: é a base da assinatura
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.WithError(err).Error("webhooks: failed to read delivery body")
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Erro ao ler o corpo da requisição", nil)
			return
		}

		eventType := r.Header.Get(eventTypeHeaders[platform])
		if eventType == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Header de tipo de evento ausente", nil)
			return
		}

		// sem assinatura a entrega nunca vai verificar: rejeita antes de
		// gastar um ciclo da fila
		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			logger.WithField("platform", platform).Warn("webhooks: delivery without signature header")
			apiErrors.WriteError(w, apiErrors.ErrInvalidSignature, "Header de assinatura ausente", nil)
			return
		}

		job, err := queueService.Enqueue(domain.JobTypeWebhookProcessing, map[string]any{
			"platform":       string(platform),
			"event_type":     eventType,
			"payload":        string(payload),
			"signature":      signature,
			"integration_id": integrationID,
		})
		if err != nil {
			logger.WithError(err).Error("webhooks: failed to enqueue delivery")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao enfileirar o processamento do webhook", nil)
			return
		}

		logger.WithFields(log.Fields{
			"platform":   platform,
			"event_type": eventType,
			"job_id":     job.ID,
		}).Info("webhooks: delivery accepted")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{
			"job_id": job.ID,
			"status": job.Status,
		})
	})
}
