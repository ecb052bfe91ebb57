// Package api talks to the setup optimization API used during setup tests.
package api

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

type (
	Option func(*Client)
	Client struct {
		httpClient *http.Client
		timeout    time.Duration
		tracer     trace.Tracer
		l          *log.Logger
	}
)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the default client. The timeout option is ignored then.
func WithHTTPClient(cli *http.Client) Option {
	return func(c *Client) {
		c.httpClient = cli
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.l = l
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		timeout: DefaultTimeout,
		l:       log.Default().Named("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(c.timeout)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("auriga")
	}
	return c
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// NextSetup requests the next setup to be tested.
// The base url is passed per call since the driver settings may change at runtime.
func (c *Client) NextSetup(ctx context.Context, base string) (
	ret *model.SetupInfo, err error,
) {
	ctx, span := c.tracer.Start(ctx, "api.NextSetup")
	defer func() { endSpan(span, err) }()

	target, err := Endpoint(base, "api", "v1", "setup", "next")
	if err != nil {
		return nil, err
	}
	c.l.Debug("requesting next setup", log.String("url", target))
	var info model.SetupInfo
	if err = DoJSON(ctx, c.httpClient, "next setup", http.MethodGet, target,
		nil, &info); err != nil {
		return nil, err
	}
	if info.ID <= 0 {
		return nil, ErrInvalidSetup
	}
	span.SetAttributes(attribute.Int("setup.id", info.ID))
	return &info, nil
}

// SubmitTelemetry posts the report of a completed test lap.
func (c *Client) SubmitTelemetry(
	ctx context.Context,
	base string,
	report *model.LapReport,
) (ret *model.TelemetryResponse, err error) {
	ctx, span := c.tracer.Start(ctx, "api.SubmitTelemetry",
		trace.WithAttributes(attribute.Int("setup.id", report.SetupID)))
	defer func() { endSpan(span, err) }()

	target, err := Endpoint(base, "api", "v1", "telemetry")
	if err != nil {
		return nil, err
	}
	c.l.Debug("submitting telemetry",
		log.String("url", target),
		log.Int("setupId", report.SetupID),
		log.Float64("lapTime", report.LapTime))
	var resp model.TelemetryResponse
	if err = DoJSON(ctx, c.httpClient, "submit telemetry", http.MethodPost, target,
		report, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
