package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	buildInfo *prometheus.GaugeVec
}

// Attach registers process-level metrics and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "auth",
		Name:      "build_info",
		Help:      "Build and environment information for the running service.",
	}, []string{"service", "environment"})

	if err := prometheus.Register(buildInfo); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("register build info metric: %w", err)
		}
		buildInfo = already.ExistingCollector.(*prometheus.GaugeVec)
	}
	buildInfo.WithLabelValues(cfg.App.Name, cfg.App.Env).Set(1)

	return &Provider{
		buildInfo: buildInfo,
	}, nil
}
