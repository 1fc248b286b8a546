package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/config"
	"github.com/temcen/signalrank/internal/database"
	"github.com/temcen/signalrank/internal/messaging"
	"github.com/temcen/signalrank/internal/profile"
	"github.com/temcen/signalrank/internal/ranking"
	"github.com/temcen/signalrank/internal/repository"
	"github.com/temcen/signalrank/internal/signals"
)

type Services struct {
	Auth      *AuthService
	Health    *HealthService
	RateLimit *RateLimitService
	Ranking   *RankingService
	Entities  *EntityService
	Seasonal  *SeasonalRefresher
	Engine    *ranking.Engine
	Publisher *messaging.RankingPublisher // nil when kafka is disabled
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, reg prometheus.Registerer) (*Services, error) {
	entityStore := repository.NewEntityStore(db.PG, logger)
	interactionStore := repository.NewInteractionStore(db.PG, logger)
	catalogStore := repository.NewCatalogStore(db.PG, logger)
	cache := repository.NewRankingCache(db.Redis, cfg.Ranking.CacheTTL, logger)

	var history HistoryLoader = interactionStore
	if cfg.History.Backend == "neo4j" && db.Neo4j != nil {
		history = repository.NewGraphHistory(db.Neo4j, logger)
	}

	seasonalSource := signals.NewSeasonalSource(nil)
	engine, err := ranking.NewEngine(
		signals.Standard(SignalOptions(cfg), seasonalSource),
		logger,
		ranking.WithMetrics(ranking.NewMetrics(reg)),
	)
	if err != nil {
		return nil, err
	}

	var (
		publisher      *messaging.RankingPublisher
		eventPublisher EventPublisher
		breakerState   BreakerStater
	)
	if cfg.Kafka.Enabled {
		publisher = messaging.NewRankingPublisher(&cfg.Kafka, logger)
		eventPublisher = publisher
		breakerState = publisher
	}

	return &Services{
		Auth:      NewAuthService(&cfg.Auth, logger, db.Redis),
		Health:    NewHealthService(db, breakerState, reg, logger),
		RateLimit: NewRateLimitService(&cfg.Auth.RateLimit, logger, db.Redis),
		Ranking: NewRankingService(
			entityStore, history, catalogStore, engine, cache, seasonalSource, eventPublisher, cfg, logger,
		),
		Entities:  NewEntityService(entityStore, history, cache, &cfg.History, logger),
		Seasonal:  NewSeasonalRefresher(interactionStore, seasonalSource, cfg.Ranking.Seasonal, logger),
		Engine:    engine,
		Publisher: publisher,
	}, nil
}

func (s *Services) Close() error {
	if s.Publisher != nil {
		return s.Publisher.Close()
	}
	return nil
}

// HistoryOptions converts the history section into decay options.
func HistoryOptions(cfg *config.HistoryConfig) profile.Options {
	opts := profile.DefaultOptions()
	if cfg.HalfLife > 0 {
		opts.HalfLife = cfg.HalfLife
	}
	if len(cfg.KindWeights) > 0 {
		weights := make(map[string]float64, len(profile.DefaultKindWeights)+len(cfg.KindWeights))
		for k, w := range profile.DefaultKindWeights {
			weights[k] = w
		}
		for k, w := range cfg.KindWeights {
			weights[k] = w
		}
		opts.KindWeights = weights
	}
	return opts
}

// SignalOptions configures the built-in signal sources.
func SignalOptions(cfg *config.Config) signals.Options {
	opts := signals.DefaultOptions()
	opts.History = HistoryOptions(&cfg.History)
	if cfg.Ranking.EngagementBlend > 0 {
		opts.EngagementBlend = cfg.Ranking.EngagementBlend
	}
	for occasion, factors := range cfg.Ranking.Occasions {
		opts.Occasions[occasion] = factors
	}
	return opts
}
