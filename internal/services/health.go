package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Pinger reports the reachability of each backend by name.
type Pinger interface {
	Ping(ctx context.Context) map[string]error
}

// BreakerStater exposes a circuit breaker state.
type BreakerStater interface {
	State() string
}

var criticalBackends = map[string]bool{
	"postgresql": true,
}

type HealthService struct {
	backends  Pinger
	publisher BreakerStater
	logger    *logrus.Logger

	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
	Latency     time.Duration     `json:"latency,omitempty"`
}

// NewHealthService builds the health checker. publisher may be nil when event
// publishing is disabled.
func NewHealthService(backends Pinger, publisher BreakerStater, reg prometheus.Registerer, logger *logrus.Logger) *HealthService {
	hs := &HealthService{
		backends:  backends,
		publisher: publisher,
		logger:    logger,
	}

	hs.healthCheckStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"})

	hs.lastHealthCheck = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_timestamp",
		Help: "Timestamp of last health check",
	}, []string{"service"})

	if reg != nil {
		hs.healthCheckStatus = registerGauge(reg, hs.healthCheckStatus, logger)
		hs.lastHealthCheck = registerGauge(reg, hs.lastHealthCheck, logger)
	}

	return hs
}

func registerGauge(reg prometheus.Registerer, g *prometheus.GaugeVec, logger *logrus.Logger) *prometheus.GaugeVec {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("Failed to register health metric")
	}
	return g
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	started := time.Now()
	status := &HealthStatus{
		Timestamp: started,
		Services:  make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	results := map[string]error{}
	if s.backends != nil {
		results = s.backends.Ping(ctx)
	}
	if s.publisher != nil {
		if state := s.publisher.State(); state == "open" {
			results["kafka"] = fmt.Errorf("circuit breaker %s", state)
		} else {
			results["kafka"] = nil
		}
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		err := results[name]
		if err == nil {
			status.Services[name] = "healthy"
			s.updateHealthMetrics(name, true)
			continue
		}

		status.Services[name] = "unhealthy"
		s.updateHealthMetrics(name, false)
		if criticalBackends[name] {
			status.Critical = append(status.Critical, name)
			s.logger.WithError(err).Errorf("Critical service %s is unhealthy", name)
		} else {
			status.NonCritical = append(status.NonCritical, name)
			s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", name)
		}
	}

	switch {
	case len(status.Critical) > 0:
		status.Status = "unhealthy"
	case len(status.NonCritical) > 0:
		status.Status = "degraded"
	default:
		status.Status = "healthy"
	}
	status.Latency = time.Since(started)

	return status
}

func (s *HealthService) updateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}
