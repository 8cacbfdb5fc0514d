package webhooking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	integratormocks "github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/mocks"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository/mocks"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/queue"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	integrationRepo *mocks.MockIntegrationRepository
	dataPointRepo   *mocks.MockDataPointRepository
	adapter         *integratormocks.MockAdapter
	service         Service
}

func newFixture(ctrl *gomock.Controller) *fixture {
	integrationRepo := mocks.NewMockIntegrationRepository(ctrl)
	dataPointRepo := mocks.NewMockDataPointRepository(ctrl)

	adapter := integratormocks.NewMockAdapter(ctrl)
	adapter.EXPECT().Platform().Return(domain.PlatformShopify).AnyTimes()

	return &fixture{
		integrationRepo: integrationRepo,
		dataPointRepo:   dataPointRepo,
		adapter:         adapter,
		service:         NewService(integrationRepo, dataPointRepo, integrator.NewRegistry(adapter)),
	}
}

func ingestParams() domain.WebhookProcessingJob {
	return domain.WebhookProcessingJob{
		Platform:      domain.PlatformShopify,
		EventType:     "orders/create",
		Payload:       `{"id":123,"total_price":"150.00"}`,
		Signature:     "assinatura-valida",
		IntegrationID: "int-1",
	}
}

func TestIngest_AplicaDataPointComIdentidadeDaIntegracao(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	params := ingestParams()

	occurredAt := time.Date(2026, 8, 10, 14, 30, 0, 0, time.UTC)

	f.adapter.EXPECT().VerifySignature([]byte(params.Payload), params.Signature).Return(nil)
	f.adapter.EXPECT().
		MapWebhookEvent("orders/create", []byte(params.Payload)).
		Return(&integrator.WebhookEvent{
			DataPoint: &domain.DataPoint{
				MetricType: domain.MetricRevenue,
				Value:      150,
				OccurredAt: occurredAt,
			},
		}, true, nil)

	f.integrationRepo.EXPECT().GetByID("int-1").Return(&domain.Integration{
		ID:       "int-1",
		TenantID: "tenant-1",
		Platform: domain.PlatformShopify,
		Status:   domain.IntegrationStatusConnected,
	}, nil)

	f.dataPointRepo.EXPECT().Upsert(gomock.Any()).DoAndReturn(func(point *domain.DataPoint) error {
		// o ponto herda a identidade da integração antes da escrita
		assert.Equal(t, "tenant-1", point.TenantID)
		assert.Equal(t, "int-1", point.IntegrationID)
		assert.Equal(t, domain.MetricRevenue, point.MetricType)
		assert.Equal(t, occurredAt, point.OccurredAt)
		return nil
	})

	err := f.service.Ingest(context.Background(), params)
	assert.NoError(t, err)
}

func TestIngest_AssinaturaInvalidaEhPermanente(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	params := ingestParams()
	params.Signature = "assinatura-adulterada"

	f.adapter.EXPECT().
		VerifySignature([]byte(params.Payload), params.Signature).
		Return(integrator.ErrInvalidSignature)

	err := f.service.Ingest(context.Background(), params)
	assert.True(t, queue.IsPermanent(err))
	assert.ErrorIs(t, err, integrator.ErrInvalidSignature)
}

func TestIngest_EventoNaoMapeadoEhSucessoSemEfeito(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	params := ingestParams()
	params.EventType = "themes/publish"

	f.adapter.EXPECT().VerifySignature([]byte(params.Payload), params.Signature).Return(nil)
	f.adapter.EXPECT().
		MapWebhookEvent("themes/publish", []byte(params.Payload)).
		Return(nil, false, nil)

	// nenhuma escrita acontece: sem Upsert, sem UpdateMetadata
	err := f.service.Ingest(context.Background(), params)
	assert.NoError(t, err)
}

func TestIngest_PlataformaDesconhecidaEhPermanente(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	params := ingestParams()
	params.Platform = domain.Platform("plataforma-inexistente")

	err := f.service.Ingest(context.Background(), params)
	assert.True(t, queue.IsPermanent(err))
	assert.ErrorIs(t, err, domain.ErrUnknownPlatform)
}

func TestIngest_EventoDeMetadataAtualizaIntegracao(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	params := ingestParams()
	params.EventType = "shop/update"

	f.adapter.EXPECT().VerifySignature([]byte(params.Payload), params.Signature).Return(nil)
	f.adapter.EXPECT().
		MapWebhookEvent("shop/update", []byte(params.Payload)).
		Return(&integrator.WebhookEvent{
			Metadata: map[string]any{"shop_name": "Loja Renomeada"},
		}, true, nil)

	f.integrationRepo.EXPECT().GetByID("int-1").Return(&domain.Integration{
		ID:       "int-1",
		TenantID: "tenant-1",
		Metadata: map[string]any{"shop_domain": "loja.example.com"},
	}, nil)

	f.integrationRepo.EXPECT().UpdateMetadata("int-1", map[string]any{
		"shop_domain": "loja.example.com",
		"shop_name":   "Loja Renomeada",
	}).Return(nil)

	err := f.service.Ingest(context.Background(), params)
	assert.NoError(t, err)
}

func TestIngest_IntegracaoInexistenteEhPermanente(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	params := ingestParams()

	f.adapter.EXPECT().VerifySignature([]byte(params.Payload), params.Signature).Return(nil)
	f.adapter.EXPECT().
		MapWebhookEvent("orders/create", []byte(params.Payload)).
		Return(&integrator.WebhookEvent{DataPoint: &domain.DataPoint{MetricType: domain.MetricRevenue}}, true, nil)

	f.integrationRepo.EXPECT().GetByID("int-1").Return(nil, nil)

	err := f.service.Ingest(context.Background(), params)
	assert.True(t, queue.IsPermanent(err))
	assert.ErrorIs(t, err, domain.ErrIntegrationNotFound)
}
