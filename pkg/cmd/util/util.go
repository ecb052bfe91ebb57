// Package util holds the setup steps shared by the commands.
package util

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/sync/errgroup"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/client/api"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/client/web"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/config"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/utils"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the logger configured by the log flags and makes it the default
func SetupLogger() (*log.Logger, error) {
	logger, err := NewLogger(config.LogLevel)
	if err != nil {
		return nil, err
	}
	log.ResetDefault(logger)
	return logger, nil
}

// NewLogger creates a logger for level using the configured format and filter
func NewLogger(level string) (*log.Logger, error) {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if config.LogFilter != "" {
		filter, err := log.WithFilter(config.LogFilter)
		if err != nil {
			return nil, fmt.Errorf("invalid log filter: %w", err)
		}
		opts = append(opts, filter)
	}
	switch config.LogFormat {
	case "json":
		return log.New(os.Stderr, ParseLogLevel(level, log.InfoLevel), opts...), nil
	default:
		return log.DevLogger(os.Stderr, ParseLogLevel(level, log.DebugLevel), opts...), nil
	}
}

// SetupTelemetry starts the exporters and runtime metrics if telemetry is
// enabled. Failures are logged, the returned value may be nil.
func SetupTelemetry(ctx context.Context) *config.Telemetry {
	if !config.EnableTelemetry {
		return nil
	}
	log.Info("Enabling telemetry", log.String("endpoint", config.TelemetryEndpoint))
	telemetry, err := config.SetupTelemetry(ctx)
	if err != nil {
		log.Warn("Could not setup telemetry", log.ErrorField(err))
		return nil
	}
	err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
	if err != nil {
		log.Warn("Could not start runtime metrics", log.ErrorField(err))
	}
	return telemetry
}

func parseDuration(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn("Invalid duration value, using default",
			log.String("value", value), log.Duration("default", def))
		return def
	}
	return d
}

func RequestTimeout() time.Duration {
	return parseDuration(config.RequestTimeout, api.DefaultTimeout)
}

func PollInterval() time.Duration {
	return parseDuration(config.PollInterval, 30*time.Second)
}

// WaitForRequiredServices waits until the configured database and nats server
// accept connections.
func WaitForRequiredServices(ctx context.Context) error {
	timeout := parseDuration(config.WaitForServices, 60*time.Second)
	addrs := []string{}
	if addr := utils.ExtractFromDBURL(config.DB); config.DB != "" && addr != "" {
		addrs = append(addrs, addr)
	}
	if addr := utils.ExtractFromNatsURL(config.NatsURL); config.NatsURL != "" && addr != "" {
		addrs = append(addrs, addr)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range addrs {
		g.Go(func() error {
			return utils.WaitForTCP(gctx, addr, timeout)
		})
	}
	log.Debug("Waiting for connection checks to return", log.Any("addrs", addrs))
	if err := g.Wait(); err != nil {
		return fmt.Errorf("required services not ready: %w", err)
	}
	log.Debug("Required services are available")
	return nil
}

var (
	storeOnce sync.Once
	store     *config.SettingsStore
)

// SettingsStore returns the store for the configured settings file
func SettingsStore() *config.SettingsStore {
	storeOnce.Do(func() {
		path := config.SettingsFile
		if path == "" {
			path = config.DefaultSettingsFile()
		}
		store = config.NewSettingsStore(path, config.APIURL)
	})
	return store
}

func NewAPIClient() *api.Client {
	return api.New(api.WithTimeout(RequestTimeout()))
}

// NewWebClient connects to the web api, which defaults to the api url of the settings
func NewWebClient() (*web.Client, error) {
	base := config.WebURL
	if base == "" {
		base = SettingsStore().Get().APIURL
	}
	return web.New(base,
		web.WithHTTPClient(api.NewHTTPClient(RequestTimeout())))
}
