package factory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"accountsvc/internal/config"
	"accountsvc/internal/database"
	"accountsvc/internal/domain"
	"accountsvc/internal/repository"
	"accountsvc/internal/service"
	"accountsvc/pkg/cache"
	"accountsvc/pkg/circuitbreaker"
	"accountsvc/pkg/logger"
	"accountsvc/pkg/notify"
	"accountsvc/pkg/token"
	"accountsvc/pkg/tracing"
)

type Factory interface {
	GetLogger() logger.Logger
	GetConfig() *config.Config
	GetDB() *sql.DB
	GetMongoClient() *mongo.Client
	GetRedisClient() *redis.Client
	GetCache() cache.Cache
	GetCacheManager() cache.CacheStrategy
	GetTokenIssuer() *token.Issuer
	GetNotifierQueue() notify.QueueDepth

	GetAccountRepository() domain.AccountRepository
	GetResetTokenRepository() domain.ResetTokenRepository

	GetAccountService() domain.AccountService

	Close(ctx context.Context) error
}

var _ Factory = (*AppFactory)(nil)

// AppFactory owns every process-scoped resource. Construction order is
// storage, cache, notifier, services; Close releases them in reverse.
type AppFactory struct {
	config       *config.Config
	logger       logger.Logger
	db           *sql.DB
	mongoClient  *mongo.Client
	redisClient  *redis.Client
	cache        cache.Cache
	cacheManager cache.CacheStrategy
	tokenIssuer  *token.Issuer

	publisher      *notify.Publisher
	dispatcher     *notify.Dispatcher
	tracerShutdown func(context.Context) error

	accountRepository    domain.AccountRepository
	resetTokenRepository domain.ResetTokenRepository

	accountService domain.AccountService
}

func NewFactory(ctx context.Context, cfg *config.Config, log logger.Logger, version string) (_ *AppFactory, err error) {
	f := &AppFactory{
		config:      cfg,
		logger:      log,
		tokenIssuer: token.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL),
	}
	defer func() {
		if err != nil {
			_ = f.Close(context.Background())
		}
	}()

	f.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Settings{
		ServiceName:  cfg.ServiceName,
		Version:      version,
		Environment:  cfg.AppEnv,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
	})
	if err != nil {
		return nil, err
	}

	if err := f.initStorage(ctx); err != nil {
		return nil, err
	}
	if err := f.initCache(ctx); err != nil {
		return nil, err
	}
	if err := f.initNotifier(); err != nil {
		return nil, err
	}
	f.initServices()

	return f, nil
}

func (f *AppFactory) initStorage(ctx context.Context) error {
	if f.config.Storage.Driver == config.DriverMongo {
		return f.initMongo(ctx)
	}

	db, err := database.Open(ctx, f.config, f.logger)
	if err != nil {
		return err
	}
	f.db = db

	if err := database.NewMigrationService(db, f.logger).RunMigrations(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	f.accountRepository = repository.NewSQLAccountRepository(db, f.logger)
	f.resetTokenRepository = repository.NewSQLResetTokenRepository(db, f.logger)
	return nil
}

func (f *AppFactory) initMongo(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(f.config.Mongo.URI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	f.mongoClient = client

	if err := client.Ping(connectCtx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(f.config.Mongo.Database)

	accounts := repository.NewMongoAccountRepository(db, f.logger)
	if err := accounts.EnsureIndexes(connectCtx); err != nil {
		return err
	}
	resets := repository.NewMongoResetTokenRepository(db, f.logger)
	if err := resets.EnsureIndexes(connectCtx); err != nil {
		return err
	}

	f.accountRepository = accounts
	f.resetTokenRepository = resets

	f.logger.Info("Mongo connection established", map[string]interface{}{
		"database": f.config.Mongo.Database,
	})
	return nil
}

// initCache falls back to a no-op cache when caching is disabled, so the
// service stack is identical either way.
func (f *AppFactory) initCache(ctx context.Context) error {
	if !f.config.Redis.Enabled {
		f.cache = cache.NoopCache{}
		f.cacheManager = cache.NewCacheManager(f.cache, f.logger)
		return nil
	}

	f.redisClient = redis.NewClient(&redis.Options{
		Addr:     f.config.Redis.Addr(),
		Password: f.config.Redis.Password,
		DB:       f.config.Redis.DB,
	})

	if _, err := f.redisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	f.cache = cache.NewRedisCache(f.redisClient, f.logger, f.config.ServiceName)
	f.cacheManager = cache.NewCacheManager(f.cache, f.logger)
	return nil
}

func (f *AppFactory) initNotifier() error {
	var sender notify.Sender = notify.NewLogSender(f.logger)

	if f.config.Notify.AMQPURL != "" {
		publisher, err := notify.NewPublisher(f.config.Notify.AMQPURL, f.config.Notify.AMQPExchange)
		if err != nil {
			return err
		}
		f.publisher = publisher
		sender = notify.NewBreakerSender(publisher, circuitbreaker.Settings{
			Name:    "reset-notice-publisher",
			Timeout: 30 * time.Second,
		}, f.logger)
	}

	f.dispatcher = notify.NewDispatcher(sender, f.config.Notify.Workers, f.config.Notify.QueueSize, f.logger)
	f.dispatcher.Start()
	return nil
}

func (f *AppFactory) initServices() {
	base := service.NewAccountService(
		f.accountRepository,
		f.resetTokenRepository,
		f.tokenIssuer,
		f.dispatcher,
		f.logger,
		f.config.Auth.ResetTokenTTL,
	)
	f.accountService = service.NewCachedAccountService(base, f.cacheManager, f.logger)
}

// Close drains the notifier before closing the broker and storage it
// writes to, then flushes pending spans.
func (f *AppFactory) Close(ctx context.Context) error {
	var errs []error

	if f.dispatcher != nil {
		if err := f.dispatcher.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop notifier: %w", err))
		}
	}
	if f.publisher != nil {
		if err := f.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if f.redisClient != nil {
		if err := f.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if f.db != nil {
		if err := f.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if f.mongoClient != nil {
		if err := f.mongoClient.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect mongo: %w", err))
		}
	}
	if f.tracerShutdown != nil {
		if err := f.tracerShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (f *AppFactory) GetLogger() logger.Logger {
	return f.logger
}

func (f *AppFactory) GetConfig() *config.Config {
	return f.config
}

func (f *AppFactory) GetDB() *sql.DB {
	return f.db
}

func (f *AppFactory) GetMongoClient() *mongo.Client {
	return f.mongoClient
}

func (f *AppFactory) GetRedisClient() *redis.Client {
	return f.redisClient
}

func (f *AppFactory) GetCache() cache.Cache {
	return f.cache
}

func (f *AppFactory) GetCacheManager() cache.CacheStrategy {
	return f.cacheManager
}

func (f *AppFactory) GetTokenIssuer() *token.Issuer {
	return f.tokenIssuer
}

func (f *AppFactory) GetNotifierQueue() notify.QueueDepth {
	if f.dispatcher == nil {
		return nil
	}
	return f.dispatcher
}

func (f *AppFactory) GetAccountRepository() domain.AccountRepository {
	return f.accountRepository
}

func (f *AppFactory) GetResetTokenRepository() domain.ResetTokenRepository {
	return f.resetTokenRepository
}

func (f *AppFactory) GetAccountService() domain.AccountService {
	return f.accountService
}
