package remote

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/updater/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/updater/internal/infrastructure/resilience"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Stats actions
const (
	ActionSet     = "set"
	ActionSetFail = "set_fail"
	ActionDelete  = "delete"
	ActionReset   = "reset"
)

type statsEvent struct {
	Platform      string `json:"platform"`
	Action        string `json:"action"`
	DeviceID      string `json:"device_id"`
	VersionName   string `json:"version_name"`
	VersionBuild  string `json:"version_build"`
	VersionCode   string `json:"version_code"`
	VersionOS     string `json:"version_os"`
	PluginVersion string `json:"plugin_version"`
	AppID         string `json:"app_id"`
}

// ReporterConfig configures the stats reporter
type ReporterConfig struct {
	Endpoint string
	Device   Device
	// RPS caps events per second; events over budget are dropped. Zero is unlimited.
	RPS float64
}

// Reporter posts lifecycle events to the stats endpoint. Send never blocks
// on the network and never reports failure to the caller.
type Reporter struct {
	client   *Client
	cfg      ReporterConfig
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	inflight sync.WaitGroup
}

// NewReporter creates a reporter. An empty endpoint disables reporting.
func NewReporter(client *Client, cfg ReporterConfig, logger *zap.Logger, metrics *monitoring.Metrics) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &Reporter{
		client:  client,
		cfg:     cfg,
		limiter: limiter,
		breaker: resilience.New("stats", resilience.Settings{
			FailureThreshold: 3,
			Cooldown:         5 * time.Minute,
		}),
		logger:  logger.Named("stats"),
		metrics: metrics,
	}
}

// Send dispatches one event on a detached goroutine
func (r *Reporter) Send(ctx context.Context, action, versionName string) {
	if r == nil || r.cfg.Endpoint == "" {
		return
	}
	if !r.limiter.Allow() {
		r.metrics.RecordStats(monitoring.ResultDropped)
		r.logger.Debug("Stats event dropped", zap.String("action", action))
		return
	}

	d := r.cfg.Device
	event := statsEvent{
		Platform:      d.Platform,
		Action:        action,
		DeviceID:      d.DeviceID,
		VersionName:   versionName,
		VersionBuild:  d.VersionBuild,
		VersionCode:   d.VersionCode,
		VersionOS:     d.VersionOS,
		PluginVersion: d.pluginVersion(),
		AppID:         d.AppID,
	}
	detached := context.WithoutCancel(ctx)

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		err := r.breaker.Execute(func() error {
			return r.client.PostJSON(detached, r.cfg.Endpoint, event, nil)
		})
		if err != nil {
			r.metrics.RecordStats(monitoring.ResultFailure)
			r.logger.Warn("Stats send failed", zap.String("action", action), zap.Error(err))
			return
		}
		r.metrics.RecordStats(monitoring.ResultSuccess)
		r.logger.Info("Stats sent",
			zap.String("action", action),
			zap.String("version", versionName))
	}()
}

// Wait blocks until every dispatched event has finished. Used at shutdown.
func (r *Reporter) Wait() {
	if r == nil {
		return
	}
	r.inflight.Wait()
}
