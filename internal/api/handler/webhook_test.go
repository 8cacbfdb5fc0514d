package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository/mocks"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/queue"
	"github.com/vfg2006/pulse-analytics-api/pkg/apiErrors"
	"go.uber.org/mock/gomock"
)

func newQueueService(jobRepo *mocks.MockJobRepository) *queue.Service {
	return queue.NewService(jobRepo, config.Queue{MaxAttempts: 3})
}

func webhookRequest(platform string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/"+platform+"?integration_id=int-1", strings.NewReader(`{"id":123}`))

	params := httprouter.Params{{Key: "platform", Value: platform}}
	req = req.WithContext(context.WithValue(req.Context(), httprouter.ParamsKey, params))

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return req
}

func TestReceiveWebhook_EnfileiraEntrega(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobRepo := mocks.NewMockJobRepository(ctrl)
	jobRepo.EXPECT().Insert(gomock.Any()).DoAndReturn(func(job *domain.Job) error {
		job.ID = "job-1"
		assert.Equal(t, domain.JobTypeWebhookProcessing, job.Type)
		assert.Equal(t, "orders/create", job.Payload["event_type"])
		assert.Equal(t, "assinatura-base64", job.Payload["signature"])
		return nil
	})

	rec := httptest.NewRecorder()
	ReceiveWebhook(newQueueService(jobRepo)).ServeHTTP(rec, webhookRequest("shopify", map[string]string{
		"X-Shopify-Topic":       "orders/create",
		"X-Shopify-Hmac-Sha256": "assinatura-base64",
	}))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestReceiveWebhook_SemAssinaturaRejeita(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// nada é enfileirado: entrega sem assinatura nunca vai verificar
	jobRepo := mocks.NewMockJobRepository(ctrl)

	rec := httptest.NewRecorder()
	ReceiveWebhook(newQueueService(jobRepo)).ServeHTTP(rec, webhookRequest("shopify", map[string]string{
		"X-Shopify-Topic": "orders/create",
	}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	apiErr := apiErrors.APIError{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, apiErrors.ErrInvalidSignature, apiErr.Code)
}

func TestReceiveWebhook_PlataformaDesconhecida(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobRepo := mocks.NewMockJobRepository(ctrl)

	rec := httptest.NewRecorder()
	ReceiveWebhook(newQueueService(jobRepo)).ServeHTTP(rec, webhookRequest("plataforma-inexistente", map[string]string{}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
