package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/med-caption/internal/cfg"
	v1Http "github.com/DRSN-tech/med-caption/internal/delivery/v1/http"
	"github.com/DRSN-tech/med-caption/internal/infrastructure/bedrock"
	"github.com/DRSN-tech/med-caption/internal/infrastructure/kafka"
	qdrantRepo "github.com/DRSN-tech/med-caption/internal/repository/qdrant"
	"github.com/DRSN-tech/med-caption/internal/repository/redis"
	"github.com/DRSN-tech/med-caption/internal/usecase"
	"github.com/DRSN-tech/med-caption/internal/validator"
	"github.com/DRSN-tech/med-caption/pkg/clients"
	"github.com/DRSN-tech/med-caption/pkg/closer"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

// App собирает зависимости сервиса и управляет его жизненным циклом.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	httpSrv *v1Http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	cl := closer.NewCloser(0)

	awsCfg, err := clients.LoadAWSConfig(ctx, cfg.Bedrock)
	if err != nil {
		log.Errorf(err, "failed to load aws config")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	imageValidator := validator.New(validator.DefaultLimits())
	embedder := bedrock.NewEmbedder(clients.NewBedrockRuntimeClient(awsCfg), imageValidator, cfg.Bedrock, log)
	generator := bedrock.NewGenerator(awsCfg, cfg.Bedrock, log)

	session := clients.NewQdrantSession(cfg.Qdrant, nil)
	cl.Add("qdrant", func(context.Context) error { return session.Close() })
	if err := clients.CheckCollection(ctx, session, cfg.Qdrant.CollectionName); err != nil {
		// Поиск деградирует до пустого результата, поэтому сервис стартует и без коллекции
		log.Warnf("qdrant collection check failed: %v", err)
	}
	captionRepo := qdrantRepo.NewCaptionRepo(session, cfg.Qdrant, cfg.Search, log)

	var cache usecase.EmbeddingCache
	if cfg.Redis.Addr != "" {
		redisClient := clients.NewRedisClient(cfg.Redis)
		cl.Add("redis", redisClient.Close)
		if err := redisClient.Ping(ctx); err != nil {
			log.Warnf("redis unavailable, embedding cache will miss: %v", err)
		}
		cache = redis.NewCacheRepo(redisClient, cfg.Bedrock.EmbeddingModelID, cfg.Redis, log)
	} else {
		log.Infof("REDIS_ADDR is empty, embedding cache disabled")
	}

	var events usecase.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(log, cfg.Kafka)
		cl.Add("kafka", producer.Close)
		events = producer
	} else {
		log.Infof("KAFKA_BROKERS is empty, caption events disabled")
	}

	captionUC := usecase.NewCaptionUC(
		imageValidator,
		embedder,
		captionRepo,
		generator,
		cache,
		events,
		cfg.Search.Limit,
		log,
	)

	r := chi.NewRouter()
	v1Http.NewRouter(r, log, cfg.Http).Init(captionUC)

	httpSrv := v1Http.NewServer(r, cfg.Http)
	cl.Add("http", httpSrv.Stop)

	return &App{
		cfg:     cfg,
		logger:  log,
		closer:  cl,
		httpSrv: httpSrv,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до сигнала остановки или ошибки сервера.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "shutdown finished with errors")
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}
