package main

import (
	"context"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/database/postgres"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/googleanalytics"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/googleanalytics/gaclient"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/metaads"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/metaads/metaclient"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/shopify"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/shopify/shopifyclient"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/stripe"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/integrator/stripe/stripeclient"
	"github.com/vfg2006/pulse-analytics-api/infrastructure/repository"
	"github.com/vfg2006/pulse-analytics-api/internal/api"
	"github.com/vfg2006/pulse-analytics-api/internal/config"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
	"github.com/vfg2006/pulse-analytics-api/internal/queue"
	"github.com/vfg2006/pulse-analytics-api/internal/usecases/insighting"
	"github.com/vfg2006/pulse-analytics-api/internal/usecases/syncing"
	"github.com/vfg2006/pulse-analytics-api/internal/usecases/webhooking"
	"github.com/vfg2006/pulse-analytics-api/pkg/secrets"
)

func main() {
	// Inicializa configuração de logs
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	// Define o nível de log com base na configuração
	logLevel, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Warnf("Nível de log inválido: %s, usando 'info'", cfg.App.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
	logrus.Infof("Nível de log configurado para: %s", logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgConn := pgconn(ctx, cfg.Database)
	defer pgConn.Close()

	integrationRepo := repository.NewIntegrationRepository(pgConn)
	dataPointRepo := repository.NewDataPointRepository(pgConn)
	insightRepo := repository.NewInsightRepository(pgConn)
	alertRepo := repository.NewAlertRepository(pgConn)
	jobRepo := repository.NewJobRepository(pgConn)

	codec := secrets.NewCodec(cfg.SecretKey)

	// Adaptadores de plataforma, um por origem de dados
	registry := integrator.NewRegistry(
		shopify.New(cfg, shopifyclient.NewClient(cfg)),
		stripe.New(cfg, stripeclient.NewClient(cfg)),
		googleanalytics.New(cfg, gaclient.NewClient(cfg)),
		metaads.New(cfg, metaclient.NewClient(cfg)),
	)

	queueService := queue.NewService(jobRepo, cfg.Queue)

	syncService := syncing.NewService(cfg, integrationRepo, dataPointRepo, registry, codec)
	webhookService := webhooking.NewService(integrationRepo, dataPointRepo, registry)
	insightService := insighting.NewService(cfg.InsightsEngine, integrationRepo, dataPointRepo, insightRepo, alertRepo, queueService)

	queueService.RegisterHandler(domain.JobTypeDataSync, syncService.HandleJob)
	queueService.RegisterHandler(domain.JobTypeWebhookProcessing, webhookService.HandleJob)
	queueService.RegisterHandler(domain.JobTypeInsightsGeneration, insightService.HandleJob)

	// Geração recorrente de insights: o job sem tenant_id faz fan-out por tenant
	if cfg.InsightsEngine.Enabled {
		err := queueService.EnqueueRecurring(domain.JobTypeInsightsGeneration, map[string]any{}, cfg.InsightsEngine.CronSchedule)
		if err != nil {
			logrus.WithError(err).Fatal("Erro ao agendar geração recorrente de insights")
		}
	}

	if err := queueService.Start(ctx); err != nil {
		logrus.WithError(err).Fatal("Erro ao iniciar a fila de jobs")
	}
	logrus.Info("Fila de jobs iniciada com sucesso")

	server, err := api.New(
		cfg,
		queueService,
		integrationRepo,
		dataPointRepo,
		insightRepo,
		jobRepo,
	)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

// configureLogger configura o formato e comportamento dos logs
func configureLogger() {
	_, file, _, _ := runtime.Caller(0)
	dir := path.Dir(file)
	os.Chdir(dir)

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

// pgconn cria uma conexão com o banco de dados
func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}

	err = conn.Ping(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao testar conexão com PostgreSQL")
	}

	logrus.Info("Conexão com PostgreSQL estabelecida com sucesso")
	return conn
}
