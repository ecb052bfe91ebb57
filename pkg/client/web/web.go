// Package web is the client for the dashboard endpoints of the optimization API.
package web

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/client/api"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/utils/cache"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/utils/cache/loadercache"
)

const DefaultPageSize = 10

type (
	Option func(*Client)
	Client struct {
		base       string
		httpClient *http.Client
		cacheTTL   time.Duration
		cars       cache.Cache[struct{}, []string]
		tracks     cache.Cache[string, []string]
		l          *log.Logger
	}
)

func WithHTTPClient(cli *http.Client) Option {
	return func(c *Client) {
		c.httpClient = cli
	}
}

// WithCacheTTL sets how long car and track lists are cached (0: no caching)
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.l = l
	}
}

func New(base string, opts ...Option) (*Client, error) {
	if _, err := api.Endpoint(base); err != nil {
		return nil, err
	}
	c := &Client{
		base:     base,
		cacheTTL: time.Minute,
		l:        log.Default().Named("web"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = api.NewHTTPClient(api.DefaultTimeout)
	}
	c.cars = cache.Passthrough(c.loadCars)
	c.tracks = cache.Passthrough(c.fetchTracks)
	if c.cacheTTL > 0 {
		c.cars = loadercache.New(
			loadercache.WithExpiration[struct{}, []string](c.cacheTTL),
			loadercache.WithLogger[struct{}, []string](c.l),
			loadercache.WithLoader[struct{}, []string](c.loadCars))
		c.tracks = loadercache.New(
			loadercache.WithExpiration[string, []string](c.cacheTTL),
			loadercache.WithLogger[string, []string](c.l),
			loadercache.WithLoader[string, []string](c.fetchTracks))
	}
	return c, nil
}

// Cars returns the ids of all cars which have setups
func (c *Client) Cars(ctx context.Context) ([]string, error) {
	ret, err := c.cars.Get(ctx, struct{}{})
	if err != nil {
		return nil, err
	}
	return *ret, nil
}

// Tracks returns the ids of the tracks with setups for carID
func (c *Client) Tracks(ctx context.Context, carID string) ([]string, error) {
	ret, err := c.tracks.Get(ctx, carID)
	if err != nil {
		return nil, err
	}
	return *ret, nil
}

// Setups returns one page of setups for car and track, newest first
func (c *Client) Setups(
	ctx context.Context,
	carID, trackID string,
	page, pageSize int,
) (*model.SetupPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	q := url.Values{}
	q.Set("car_id", carID)
	q.Set("track_id", trackID)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	var ret model.SetupPage
	if err := c.get(ctx, "setups", q, &ret, "api", "web", "setups"); err != nil {
		return nil, err
	}
	return &ret, nil
}

// Setup returns a setup with its telemetry results
func (c *Client) Setup(ctx context.Context, id int) (*model.Setup, error) {
	var ret model.Setup
	if err := c.get(ctx, "setup", nil, &ret,
		"api", "web", "setup", strconv.Itoa(id)); err != nil {
		return nil, err
	}
	return &ret, nil
}

// Performance returns the lap time and score series of tested setups
func (c *Client) Performance(
	ctx context.Context,
	carID, trackID string,
) (*model.PerformanceSeries, error) {
	q := url.Values{}
	q.Set("car_id", carID)
	q.Set("track_id", trackID)
	var ret model.PerformanceSeries
	if err := c.get(ctx, "performance", q, &ret, "api", "web", "performance"); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (c *Client) OptimizationStatus(ctx context.Context) (*model.OptimizationStatus, error) {
	var ret model.OptimizationStatus
	if err := c.get(ctx, "optimization status", nil, &ret,
		"api", "web", "optimization", "status"); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (c *Client) StartOptimization(
	ctx context.Context,
	carID, trackID string,
) (*model.OptimizationResult, error) {
	return c.post(ctx, "start optimization",
		model.StartOptimizationRequest{CarID: carID, TrackID: trackID},
		"api", "v1", "optimization", "start")
}

func (c *Client) StopOptimization(ctx context.Context) (*model.OptimizationResult, error) {
	return c.post(ctx, "stop optimization", struct{}{},
		"api", "v1", "optimization", "stop")
}

// InvalidateLists drops cached car and track lists
func (c *Client) InvalidateLists(ctx context.Context) {
	c.cars.InvalidateAll(ctx)
	c.tracks.InvalidateAll(ctx)
}

func (c *Client) loadCars(ctx context.Context, _ struct{}) (*[]string, error) {
	return c.fetchCars(ctx)
}

func (c *Client) fetchCars(ctx context.Context) (*[]string, error) {
	ret := []string{}
	if err := c.get(ctx, "cars", nil, &ret, "api", "web", "cars"); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (c *Client) fetchTracks(ctx context.Context, carID string) (*[]string, error) {
	q := url.Values{}
	q.Set("car_id", carID)
	ret := []string{}
	if err := c.get(ctx, "tracks", q, &ret, "api", "web", "tracks"); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (c *Client) get(
	ctx context.Context,
	op string,
	q url.Values,
	out any,
	elem ...string,
) error {
	target, err := api.Endpoint(c.base, elem...)
	if err != nil {
		return err
	}
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	c.l.Debug("fetching", log.String("op", op), log.String("url", target))
	return api.DoJSON(ctx, c.httpClient, op, http.MethodGet, target, nil, out)
}

func (c *Client) post(
	ctx context.Context,
	op string,
	in any,
	elem ...string,
) (*model.OptimizationResult, error) {
	target, err := api.Endpoint(c.base, elem...)
	if err != nil {
		return nil, err
	}
	var ret model.OptimizationResult
	if err := api.DoJSON(ctx, c.httpClient, op, http.MethodPost, target,
		in, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}
