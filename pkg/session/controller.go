// Package session runs the setup test lifecycle.
//
// A test moves through the states IDLE, REQUESTING, ACTIVE and REPORTING.
// Ticks, commands and the completions of the outbound api calls are events
// consumed by a single loop (see Controller.Run), which owns all session state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/client/api"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/config"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/utils"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/utils/broadcast"
)

var (
	ErrBusy       = errors.New("setup test already running")
	ErrNotRunning = errors.New("no setup test to stop")
	ErrStopped    = errors.New("session controller not running")
)

const (
	DefaultGameName  = "IRacing"
	DefaultQueueSize = 256
)

type (
	// SetupAPI is the part of the optimization api used during setup tests
	SetupAPI interface {
		NextSetup(ctx context.Context, base string) (*model.SetupInfo, error)
		SubmitTelemetry(ctx context.Context, base string, report *model.LapReport) (
			*model.TelemetryResponse, error)
	}
	SettingsProvider func() config.Settings

	// ReportObserver is notified about every submission attempt.
	// It is called outside of the event loop.
	ReportObserver interface {
		ReportDone(ctx context.Context, report *model.LapReport,
			resp *model.TelemetryResponse, err error)
	}
	Option func(*Controller)
)

type Controller struct {
	api          SetupAPI
	settings     SettingsProvider
	observer     ReportObserver
	gameName     string
	abortOnMove  bool
	queueSize    int
	printTicks   bool
	now          func() time.Time
	events       chan event
	statusSource chan model.SessionStatus
	bcst         broadcast.Server[model.SessionStatus]
	running      chan struct{} // closed when Run returns
	status       atomic.Pointer[model.SessionStatus]
	metrics      *metrics
	l            *log.Logger

	// owned by the event loop
	ctx     context.Context
	state   model.SessionState
	epoch   uint64
	carID   string
	trackID string
	sess    session
}

func WithAPI(arg SetupAPI) Option {
	return func(c *Controller) {
		c.api = arg
	}
}

func WithSettings(arg SettingsProvider) Option {
	return func(c *Controller) {
		c.settings = arg
	}
}

func WithReportObserver(arg ReportObserver) Option {
	return func(c *Controller) {
		c.observer = arg
	}
}

// WithGameName restricts tick processing to the given game (empty: any game)
func WithGameName(arg string) Option {
	return func(c *Controller) {
		c.gameName = arg
	}
}

// WithAbortOnContextChange controls whether a car or track change aborts a
// requesting or active test.
func WithAbortOnContextChange(arg bool) Option {
	return func(c *Controller) {
		c.abortOnMove = arg
	}
}

// WithQueueSize sets the number of events buffered for the loop.
// Ticks arriving at a full queue are dropped.
func WithQueueSize(arg int) Option {
	return func(c *Controller) {
		c.queueSize = arg
	}
}

func WithPrintTicks(arg bool) Option {
	return func(c *Controller) {
		c.printTicks = arg
	}
}

func WithClock(arg func() time.Time) Option {
	return func(c *Controller) {
		c.now = arg
	}
}

func WithLogger(arg *log.Logger) Option {
	return func(c *Controller) {
		c.l = arg
	}
}

func NewController(opts ...Option) *Controller {
	c := &Controller{
		settings:    config.DefaultSettings,
		gameName:    DefaultGameName,
		abortOnMove: true,
		queueSize:   DefaultQueueSize,
		now:         time.Now,
		running:     make(chan struct{}),
		l:           log.Default().Named("session"),
		state:       model.StateIdle,
		sess:        newSession(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.api == nil {
		c.api = api.New()
	}
	c.events = make(chan event, c.queueSize)
	c.statusSource = make(chan model.SessionStatus, 64)
	c.bcst = broadcast.NewServer("session-status", c.statusSource,
		broadcast.WithBufferSize[model.SessionStatus](16),
		broadcast.WithLogger[model.SessionStatus](c.l))
	c.metrics = newMetrics(c.l)
	c.status.Store(c.snapshot(""))
	return c
}

// Run processes events until ctx is done. It must be called exactly once.
func (c *Controller) Run(ctx context.Context) {
	c.ctx = ctx
	defer func() {
		close(c.running)
		c.bcst.Close()
	}()
	c.l.Info("session controller started",
		log.String("game", c.gameName), log.Bool("abortOnContextChange", c.abortOnMove))
	for {
		select {
		case <-ctx.Done():
			c.l.Info("session controller stopped")
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// Tick delivers the latest vehicle state. It never blocks.
func (c *Controller) Tick(d *model.GameData) bool {
	select {
	case c.events <- tickEvent{data: d}:
		return true
	default:
		c.metrics.dropped.Add(context.Background(), 1)
		return false
	}
}

// StartTest requests a new setup test. A nil result means the request for the
// next setup is on its way.
func (c *Controller) StartTest(ctx context.Context) error {
	return c.command(ctx, func(reply chan error) event { return startEvent{reply: reply} })
}

// StopTest aborts a requesting or active test.
func (c *Controller) StopTest(ctx context.Context) error {
	return c.command(ctx, func(reply chan error) event { return stopEvent{reply: reply} })
}

// Flush waits until all events queued so far are processed.
func (c *Controller) Flush(ctx context.Context) error {
	return c.command(ctx, func(reply chan error) event { return flushEvent{reply: reply} })
}

// Status returns the latest published status
func (c *Controller) Status() model.SessionStatus {
	return *c.status.Load()
}

// Subscribe returns a channel receiving every status change.
func (c *Controller) Subscribe() <-chan model.SessionStatus {
	return c.bcst.Subscribe()
}

func (c *Controller) Unsubscribe(ch <-chan model.SessionStatus) {
	c.bcst.CancelSubscription(ch)
}

func (c *Controller) command(ctx context.Context, mk func(chan error) event) error {
	reply := make(chan error, 1)
	select {
	case c.events <- mk(reply):
	case <-c.running:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-c.running:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers a completion to the loop. It gives up once the loop is gone.
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.running:
	}
}

func (c *Controller) handle(ev event) {
	switch e := ev.(type) {
	case tickEvent:
		c.handleTick(e.data)
	case startEvent:
		e.reply <- c.handleStart()
	case stopEvent:
		e.reply <- c.handleStop()
	case flushEvent:
		e.reply <- nil
	case setupResult:
		c.handleSetupResult(&e)
	case reportResult:
		c.handleReportResult(&e)
	}
}

func (c *Controller) handleTick(d *model.GameData) {
	c.metrics.ticks.Add(c.ctx, 1)
	if c.printTicks {
		c.l.Debug("tick", log.Any("data", d))
	}
	if d == nil || !d.GameRunning {
		return
	}
	if c.gameName != "" && d.GameName != c.gameName {
		return
	}
	if d.CarID != c.carID || d.TrackID != c.trackID {
		c.contextChanged(d.CarID, d.TrackID)
	}
	if c.state != model.StateActive {
		return
	}
	c.sess.sample(d)
	if d.LastLapTime > 0 && !c.sess.lapCompleted {
		c.sess.lapCompleted = true
		c.sess.lapTime = d.LastLapTime
		c.startReport()
	}
}

func (c *Controller) contextChanged(carID, trackID string) {
	switch c.state {
	case model.StateIdle:
		c.l.Debug("car/track changed",
			log.String("car", carID), log.String("track", trackID))
		c.carID, c.trackID = carID, trackID
		c.reset("")
	case model.StateRequesting, model.StateActive:
		if !c.abortOnMove || carID == "" || trackID == "" {
			return
		}
		c.l.Info("car/track changed, aborting setup test",
			log.String("car", carID), log.String("track", trackID),
			log.Int("setupId", c.sess.setupID))
		c.carID, c.trackID = carID, trackID
		c.reset("car/track changed, setup test aborted")
	case model.StateReporting:
		// the ids are picked up once the report is done
	}
}

func (c *Controller) handleStart() error {
	if c.state != model.StateIdle {
		c.publish(fmt.Sprintf("setup test already running (%s)", c.state))
		return ErrBusy
	}
	base := c.settings().APIURL
	if _, err := api.Endpoint(base); err != nil {
		c.publish("api url not configured")
		return err
	}
	c.epoch++
	c.sess = newSession()
	c.sess.base = base
	c.transition(model.StateRequesting, "requesting next setup")

	epoch := c.epoch
	go func() {
		setup, err := c.api.NextSetup(c.ctx, base)
		c.post(setupResult{epoch: epoch, setup: setup, err: err})
	}()
	return nil
}

func (c *Controller) handleStop() error {
	switch c.state {
	case model.StateRequesting, model.StateActive:
		c.reset("setup test stopped")
		return nil
	case model.StateIdle, model.StateReporting:
	}
	c.publish("no setup test to stop")
	return ErrNotRunning
}

func (c *Controller) handleSetupResult(r *setupResult) {
	if r.epoch != c.epoch || c.state != model.StateRequesting {
		c.l.Debug("ignoring stale setup result", log.Uint64("epoch", r.epoch))
		return
	}
	if r.err != nil {
		c.l.Warn("requesting setup failed", log.ErrorField(r.err))
		c.reset(fmt.Sprintf("requesting setup failed: %v", r.err))
		return
	}
	if r.setup == nil || r.setup.ID <= 0 {
		c.l.Warn("api returned no usable setup")
		c.reset(fmt.Sprintf("requesting setup failed: %v", api.ErrInvalidSetup))
		return
	}
	c.sess.setupID = r.setup.ID
	c.transition(model.StateActive, fmt.Sprintf("testing setup #%d", r.setup.ID))
}

func (c *Controller) startReport() {
	s := c.settings()
	report := c.sess.report(s.Ratings(), s.DriverNotes)
	report.CarID, report.TrackID = c.carID, c.trackID
	base := c.sess.base
	c.transition(model.StateReporting,
		fmt.Sprintf("lap completed (%.3fs), submitting", report.LapTime))

	epoch := c.epoch
	go func() {
		resp, err := c.api.SubmitTelemetry(c.ctx, base, report)
		// the session is done with the report, observers must not delay it
		c.post(reportResult{epoch: epoch, resp: resp, err: err})
		if c.observer != nil {
			c.observer.ReportDone(c.ctx, report, resp, err)
		}
	}()
}

func (c *Controller) handleReportResult(r *reportResult) {
	if r.epoch != c.epoch || c.state != model.StateReporting {
		c.l.Debug("ignoring stale report result", log.Uint64("epoch", r.epoch))
		return
	}
	if r.err != nil {
		c.metrics.submissions.Add(c.ctx, 1, outcomeFailed)
		c.l.Warn("submitting telemetry failed",
			log.Int("setupId", c.sess.setupID), log.ErrorField(r.err))
		c.reset(fmt.Sprintf("submitting lap failed: %v", r.err))
		return
	}
	c.metrics.submissions.Add(c.ctx, 1, outcomeSent)
	c.l.Info("telemetry submitted",
		log.Int("setupId", c.sess.setupID),
		log.Int("telemetryId", r.resp.TelemetryID),
		log.Float64("score", r.resp.Score))
	c.reset("lap submitted, score " + utils.FormatFixed(r.resp.Score, 2))
}

// reset returns to IDLE, discarding the session. Completions of calls which
// are still in flight are ignored afterwards.
func (c *Controller) reset(msg string) {
	c.epoch++
	c.sess = newSession()
	c.transition(model.StateIdle, msg)
}

func (c *Controller) transition(to model.SessionState, msg string) {
	if c.state != to {
		c.metrics.transitions.Add(c.ctx, 1, stateAttr(to))
		c.l.Debug("transition",
			log.String("from", string(c.state)), log.String("to", string(to)))
	}
	c.state = to
	c.publish(msg)
}

func (c *Controller) publish(msg string) {
	st := c.snapshot(msg)
	c.status.Store(st)
	if msg != "" {
		c.l.Info(msg, log.String("state", string(st.State)), log.Int("setupId", st.SetupID))
	}
	select {
	case c.statusSource <- *st:
	default:
		c.l.Warn("status queue full, dropping status")
	}
}

func (c *Controller) snapshot(msg string) *model.SessionStatus {
	active := c.state == model.StateActive || c.state == model.StateReporting
	setupID := model.NoSetup
	if active {
		setupID = c.sess.setupID
	}
	return &model.SessionStatus{
		State:     c.state,
		SetupID:   setupID,
		IsTesting: active,
		CarID:     c.carID,
		TrackID:   c.trackID,
		Message:   msg,
		Timestamp: c.now(),
	}
}
