package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/temcen/signalrank/pkg/models"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	History    HistoryConfig    `mapstructure:"history"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Security   SecurityConfig   `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Cache RedisInstanceConfig `mapstructure:"cache"`
}

type RedisInstanceConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Neo4jConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		RankingEvents string `mapstructure:"ranking_events"`
	} `mapstructure:"topics"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker guarding event publishing.
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type AuthConfig struct {
	JWTSecret string          `mapstructure:"jwt_secret"`
	Issuer    string          `mapstructure:"issuer"`
	TokenTTL  time.Duration   `mapstructure:"token_ttl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Default int           `mapstructure:"default"`
	Premium int           `mapstructure:"premium"`
	Window  time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RankingConfig holds deployment-wide ranking defaults. Requests may override
// every field except the signal source tuning.
type RankingConfig struct {
	Weights            map[string]float64                `mapstructure:"weights"`
	MinScoreThreshold  float64                           `mapstructure:"min_score_threshold"`
	MaxRecommendations int                               `mapstructure:"max_recommendations"`
	MaxPerGroup        int                               `mapstructure:"max_per_group"` // 0 disables the quota
	BoundedOutput      bool                              `mapstructure:"bounded_output"`
	TieBreakers        []string                          `mapstructure:"tie_breakers"`
	MaxRationales      int                               `mapstructure:"max_rationales"`
	InStockOnly        bool                              `mapstructure:"in_stock_only"`
	ContextualFactors  map[string]models.MultiplierRange `mapstructure:"contextual_factors"`
	EngagementBlend    float64                           `mapstructure:"engagement_blend"`
	Occasions          map[string]map[string]float64     `mapstructure:"occasions"`
	Seasonal           SeasonalConfig                    `mapstructure:"seasonal"`
	CacheTTL           time.Duration                     `mapstructure:"cache_ttl"`
	TimeBucket         time.Duration                     `mapstructure:"time_bucket"`
	CandidateLimit     int                               `mapstructure:"candidate_limit"`
}

type SeasonalConfig struct {
	PeakFactor      float64       `mapstructure:"peak_factor"`
	MinSamples      int           `mapstructure:"min_samples"`
	Lookback        time.Duration `mapstructure:"lookback"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type HistoryConfig struct {
	Backend          string             `mapstructure:"backend"` // postgres or neo4j
	HalfLife         time.Duration      `mapstructure:"half_life"`
	Lookback         time.Duration      `mapstructure:"lookback"`
	Limit            int                `mapstructure:"limit"`
	KindWeights      map[string]float64 `mapstructure:"kind_weights"`
	ExtractionWeight float64            `mapstructure:"extraction_weight"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Set defaults
	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// RankingDefaults converts the ranking section into the engine's per-call configuration.
func (c *Config) RankingDefaults() models.RankingConfig {
	r := c.Ranking
	cfg := models.DefaultRankingConfig()

	for name, w := range r.Weights {
		cfg.Weights[name] = w
	}
	for name, rng := range r.ContextualFactors {
		cfg.ContextualFactors[name] = rng
	}
	cfg.MinScoreThreshold = r.MinScoreThreshold
	if r.MaxRecommendations > 0 {
		cfg.MaxRecommendations = r.MaxRecommendations
	}
	if r.MaxPerGroup > 0 {
		quota := r.MaxPerGroup
		cfg.MaxPerGroup = &quota
	}
	cfg.BoundedOutput = r.BoundedOutput
	if len(r.TieBreakers) > 0 {
		cfg.TieBreakers = make([]models.TieBreaker, len(r.TieBreakers))
		for i, tb := range r.TieBreakers {
			cfg.TieBreakers[i] = models.TieBreaker(tb)
		}
	}
	if r.MaxRationales > 0 {
		cfg.MaxRationales = r.MaxRationales
	}
	cfg.Constraints.InStockOnly = r.InStockOnly

	return cfg
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.cache.url", "localhost:6379")
	viper.SetDefault("redis.cache.max_retries", 3)
	viper.SetDefault("redis.cache.pool_size", 10)
	viper.SetDefault("redis.cache.timeout", "5s")

	// Kafka defaults
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topics.ranking_events", "ranking.generated")
	viper.SetDefault("kafka.breaker.max_requests", 1)
	viper.SetDefault("kafka.breaker.interval", "1m")
	viper.SetDefault("kafka.breaker.timeout", "30s")
	viper.SetDefault("kafka.breaker.failure_threshold", 5)

	// Auth defaults
	viper.SetDefault("auth.issuer", "github.com/temcen/signalrank")
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.rate_limit.default", 1000)
	viper.SetDefault("auth.rate_limit.premium", 10000)
	viper.SetDefault("auth.rate_limit.window", "1h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Ranking defaults
	viper.SetDefault("ranking.weights", map[string]float64{
		"preference": 0.4,
		"history":    0.3,
		"engagement": 0.2,
		"budget":     0.1,
	})
	viper.SetDefault("ranking.min_score_threshold", 0.0)
	viper.SetDefault("ranking.max_recommendations", models.DefaultMaxRecommendations)
	viper.SetDefault("ranking.max_per_group", 3)
	viper.SetDefault("ranking.bounded_output", true)
	viper.SetDefault("ranking.tie_breakers", []string{"freshness", "quality"})
	viper.SetDefault("ranking.max_rationales", models.DefaultMaxRationales)
	viper.SetDefault("ranking.in_stock_only", true)
	viper.SetDefault("ranking.engagement_blend", 0.6)
	viper.SetDefault("ranking.seasonal.peak_factor", 1.5)
	viper.SetDefault("ranking.seasonal.min_samples", 12)
	viper.SetDefault("ranking.seasonal.lookback", "8760h")
	viper.SetDefault("ranking.seasonal.refresh_interval", "6h")
	viper.SetDefault("ranking.cache_ttl", "15m")
	viper.SetDefault("ranking.time_bucket", "1h")
	viper.SetDefault("ranking.candidate_limit", 500)

	// History defaults
	viper.SetDefault("history.backend", "postgres")
	viper.SetDefault("history.half_life", "720h")
	viper.SetDefault("history.lookback", "8760h")
	viper.SetDefault("history.limit", 1000)
	viper.SetDefault("history.extraction_weight", 0.5)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
