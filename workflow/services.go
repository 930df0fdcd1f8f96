package workflow

import (
	"context"

	"cloud.google.com/go/pubsub"
	"github.com/mmdatafocus/invoice_audit/config"
	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/mmdatafocus/invoice_audit/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Services is everything the server and the ops CLI wire from one AuditConfig.
// Redis, the database and Pub/Sub are optional; when one is not configured or
// cannot be reached the matching feature falls back (local lock, no index, no
// notifications).
type Services struct {
	Config       *config.AuditConfig
	Secrets      config.SecretStore
	Store        utils.BlobStore
	Redis        *redis.Client
	DB           *gorm.DB
	PubSub       *pubsub.Client
	Auditor      *InvoiceAuditor
	Consolidator *DailyConsolidator
}

func NewServices(ctx context.Context, cfg *config.AuditConfig, logger *logrus.Logger) (*Services, error) {
	secrets, err := config.NewSecretStore(cfg)
	if err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindConfiguration, "secret store", err)
	}
	store, err := NewDestinationStore(ctx, cfg, secrets)
	if err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindConfiguration, "destination storage", err)
	}

	s := &Services{Config: cfg, Secrets: secrets, Store: store}

	var recorder Recorder = NopRecorder{}
	if cfg.Database.Enabled() {
		db, err := config.ConnectDatabaseWithRetry(ctx, cfg.Database)
		if err == nil {
			err = models.MigrateTables(db)
		}
		if err != nil {
			config.LogError(logger, "services.go", "NewServices", "Connecting audit database", cfg.Database.Driver, err)
		} else {
			s.DB = db
			recorder = &GormRecorder{DB: db}
		}
	}

	var locker RunLocker = &LocalRunLocker{}
	if cfg.RedisAddress != "" {
		if err := config.ConnectRedisWithRetry(ctx, cfg.RedisAddress); err != nil {
			config.LogError(logger, "services.go", "NewServices", "Connecting redis", cfg.RedisAddress, err)
		} else {
			s.Redis = config.GetRedisDB()
			locker = &RedisRunLocker{Client: config.GetRedisLock()}
		}
	}

	var notifier Notifier = NopNotifier{}
	if cfg.AuditTopic != "" || cfg.InvoiceSubscription != "" {
		client, err := config.GetPubSubClient(ctx, cfg.PubSubProjectID, cfg.PubSubCredJSON)
		if err != nil {
			config.LogError(logger, "services.go", "NewServices", "Connecting pubsub", cfg.PubSubProjectID, err)
		} else {
			s.PubSub = client
			if cfg.AuditTopic != "" {
				topic, err := config.CreateTopicIfNotExists(ctx, client, cfg.AuditTopic)
				if err != nil {
					config.LogError(logger, "services.go", "NewServices", "Preparing audit topic", cfg.AuditTopic, err)
				} else {
					notifier = &PubSubNotifier{Topic: topic}
				}
			}
		}
	}

	s.Auditor = &InvoiceAuditor{
		Config:   cfg,
		Clients:  &SecretClientFactory{Config: cfg, Secrets: secrets},
		Store:    store,
		Recorder: recorder,
		Notifier: notifier,
		Logger:   logger,
	}
	s.Consolidator = &DailyConsolidator{
		Config:   cfg,
		Store:    store,
		Locker:   locker,
		Recorder: recorder,
		Notifier: notifier,
		Logger:   logger,
	}
	return s, nil
}

func (s *Services) Close() {
	if n, ok := s.Auditor.Notifier.(*PubSubNotifier); ok && n.Topic != nil {
		n.Topic.Stop()
	}
	config.ClosePubSub()
	if s.Redis != nil {
		config.CloseRedis()
	}
	if s.DB != nil {
		config.CloseDatabase()
	}
	if s.Store != nil {
		_ = s.Store.Close()
	}
}
