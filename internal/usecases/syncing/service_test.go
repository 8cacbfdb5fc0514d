package syncing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	integratormocks "github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/mocks"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository/mocks"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/queue"
	"github.com/vfg2006/pulse-analytics-api/pkg/secrets"
	"go.uber.org/mock/gomock"
)

var noProgress = func(percent int) {}

type fixture struct {
	integrationRepo *mocks.MockIntegrationRepository
	dataPointRepo   *mocks.MockDataPointRepository
	adapter         *integratormocks.MockAdapter
	codec           *secrets.Codec
	service         Service
}

func newFixture(t *testing.T, ctrl *gomock.Controller) *fixture {
	t.Helper()

	integrationRepo := mocks.NewMockIntegrationRepository(ctrl)
	dataPointRepo := mocks.NewMockDataPointRepository(ctrl)

	adapter := integratormocks.NewMockAdapter(ctrl)
	adapter.EXPECT().Platform().Return(domain.PlatformShopify).AnyTimes()

	codec := secrets.NewCodec("chave-de-teste")

	cfg := &config.Config{}
	cfg.Sync.RequestTimeoutSeconds = 5
	cfg.Sync.DefaultLookbackDays = 30

	return &fixture{
		integrationRepo: integrationRepo,
		dataPointRepo:   dataPointRepo,
		adapter:         adapter,
		codec:           codec,
		service:         NewService(cfg, integrationRepo, dataPointRepo, integrator.NewRegistry(adapter), codec),
	}
}

func (f *fixture) connectedIntegration(t *testing.T) *domain.Integration {
	t.Helper()

	encrypted, err := f.codec.Encrypt(&secrets.Credentials{AccessToken: "token-1"})
	require.NoError(t, err)

	return &domain.Integration{
		ID:          "int-1",
		TenantID:    "tenant-1",
		Platform:    domain.PlatformShopify,
		Status:      domain.IntegrationStatusConnected,
		Credentials: encrypted,
	}
}

func syncParams() domain.DataSyncJob {
	return domain.DataSyncJob{
		IntegrationID: "int-1",
		TenantID:      "tenant-1",
		Platform:      domain.PlatformShopify,
		SyncType:      domain.SyncTypeFull,
	}
}

func TestSync_FullComSucesso(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	integration := f.connectedIntegration(t)

	points := []*domain.DataPoint{
		{TenantID: "tenant-1", IntegrationID: "int-1", MetricType: domain.MetricRevenue, Value: 150, OccurredAt: time.Now()},
	}

	f.integrationRepo.EXPECT().GetByID("int-1").Return(integration, nil)
	f.integrationRepo.EXPECT().
		TransitionStatus("int-1", domain.IntegrationStatusConnected, domain.IntegrationStatusSyncing).
		Return(true, nil)

	f.adapter.EXPECT().
		FetchAndNormalize(gomock.Any(), integration, gomock.Any(), gomock.Any()).
		Return(&domain.SyncResult{
			DataPoints: points,
			Metadata:   map[string]any{"shop_name": "Loja Teste"},
		}, nil)

	f.dataPointRepo.EXPECT().ReplaceForIntegration("int-1", points).Return(nil)
	f.integrationRepo.EXPECT().UpdateMetadata("int-1", map[string]any{"shop_name": "Loja Teste"}).Return(nil)
	f.integrationRepo.EXPECT().UpdateLastSync("int-1", gomock.Any()).Return(nil)
	f.integrationRepo.EXPECT().
		TransitionStatus("int-1", domain.IntegrationStatusSyncing, domain.IntegrationStatusConnected).
		Return(true, nil)

	err := f.service.Sync(context.Background(), syncParams(), noProgress)
	assert.NoError(t, err)
}

func TestSync_IncrementalUsaUpsert(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	integration := f.connectedIntegration(t)
	lastSync := time.Now().Add(-24 * time.Hour)
	integration.LastSyncAt = &lastSync

	point := &domain.DataPoint{TenantID: "tenant-1", IntegrationID: "int-1", MetricType: domain.MetricRevenue, Value: 99, OccurredAt: time.Now()}

	f.integrationRepo.EXPECT().GetByID("int-1").Return(integration, nil)
	f.integrationRepo.EXPECT().
		TransitionStatus("int-1", domain.IntegrationStatusConnected, domain.IntegrationStatusSyncing).
		Return(true, nil)

	f.adapter.EXPECT().
		FetchAndNormalize(gomock.Any(), integration, gomock.Any(), gomock.Any()).
		Return(&domain.SyncResult{DataPoints: []*domain.DataPoint{point}}, nil)

	// incremental aplica pela chave de idempotência, sem apagar o histórico
	f.dataPointRepo.EXPECT().Upsert(point).Return(nil)
	f.integrationRepo.EXPECT().UpdateLastSync("int-1", gomock.Any()).Return(nil)
	f.integrationRepo.EXPECT().
		TransitionStatus("int-1", domain.IntegrationStatusSyncing, domain.IntegrationStatusConnected).
		Return(true, nil)

	params := syncParams()
	params.SyncType = domain.SyncTypeIncremental

	err := f.service.Sync(context.Background(), params, noProgress)
	assert.NoError(t, err)
}

func TestSync_IntegracaoNaoEncontrada(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)

	f.integrationRepo.EXPECT().GetByID("int-1").Return(nil, nil)

	err := f.service.Sync(context.Background(), syncParams(), noProgress)
	assert.True(t, queue.IsPermanent(err))
	assert.ErrorIs(t, err, domain.ErrIntegrationNotFound)
}

func TestSync_JaEmSincronizacao(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	integration := f.connectedIntegration(t)
	integration.Status = domain.IntegrationStatusSyncing

	f.integrationRepo.EXPECT().GetByID("int-1").Return(integration, nil)

	err := f.service.Sync(context.Background(), syncParams(), noProgress)
	assert.True(t, queue.IsPermanent(err))
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
}

func TestSync_GuardaRejeitaConcorrencia(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	integration := f.connectedIntegration(t)

	f.integrationRepo.EXPECT().GetByID("int-1").Return(integration, nil)

	// outro worker reivindicou a integração entre a leitura e a transição
	f.integrationRepo.EXPECT().
		TransitionStatus("int-1", domain.IntegrationStatusConnected, domain.IntegrationStatusSyncing).
		Return(false, nil)

	err := f.service.Sync(context.Background(), syncParams(), noProgress)
	assert.True(t, queue.IsPermanent(err))
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
}

func TestSync_FalhaDeAutenticacaoLevaParaError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	integration := f.connectedIntegration(t)

	f.integrationRepo.EXPECT().GetByID("int-1").Return(integration, nil)
	f.integrationRepo.EXPECT().
		TransitionStatus("int-1", domain.IntegrationStatusConnected, domain.IntegrationStatusSyncing).
		Return(true, nil)

	f.adapter.EXPECT().
		FetchAndNormalize(gomock.Any(), integration, gomock.Any(), gomock.Any()).
		Return(nil, integrator.ErrAuthentication)

	f.integrationRepo.EXPECT().
		TransitionStatus("int-1", domain.IntegrationStatusSyncing, domain.IntegrationStatusError).
		Return(true, nil)

	err := f.service.Sync(context.Background(), syncParams(), noProgress)
	assert.True(t, queue.IsPermanent(err))
	assert.ErrorIs(t, err, integrator.ErrAuthentication)
}

func TestSync_FalhaTransitoriaLiberaIntegracao(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	integration := f.connectedIntegration(t)

	f.integrationRepo.EXPECT().GetByID("int-1").Return(integration, nil)
	f.integrationRepo.EXPECT().
		TransitionStatus("int-1", domain.IntegrationStatusConnected, domain.IntegrationStatusSyncing).
		Return(true, nil)

	f.adapter.EXPECT().
		FetchAndNormalize(gomock.Any(), integration, gomock.Any(), gomock.Any()).
		Return(nil, errors.New("timeout na plataforma"))

	// falha transitória devolve a integração para CONNECTED e deixa a fila re-tentar
	f.integrationRepo.EXPECT().
		TransitionStatus("int-1", domain.IntegrationStatusSyncing, domain.IntegrationStatusConnected).
		Return(true, nil)

	err := f.service.Sync(context.Background(), syncParams(), noProgress)
	assert.Error(t, err)
	assert.False(t, queue.IsPermanent(err))
}

func TestSync_PlataformaDesconhecida(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	integration := f.connectedIntegration(t)
	integration.Platform = domain.Platform("plataforma-inexistente")

	f.integrationRepo.EXPECT().GetByID("int-1").Return(integration, nil)

	err := f.service.Sync(context.Background(), syncParams(), noProgress)
	assert.True(t, queue.IsPermanent(err))
	assert.ErrorIs(t, err, domain.ErrUnknownPlatform)
}
