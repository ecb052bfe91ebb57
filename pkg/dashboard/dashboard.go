// Package dashboard renders the optimization dashboard to a terminal.
//
// Every screen is a fetch followed by a render. Failed fetches are rendered as
// inline error rows, the screens themselves never fail.
package dashboard

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

const (
	DefaultPageSize     = 10
	RecentPageSize      = 5
	DefaultPollInterval = 30 * time.Second
)

var ErrNoSelection = errors.New("select a car and a track")

// Client is the web api used by the dashboard
type Client interface {
	Cars(ctx context.Context) ([]string, error)
	Tracks(ctx context.Context, carID string) ([]string, error)
	Setups(ctx context.Context, carID, trackID string, page, pageSize int) (
		*model.SetupPage, error)
	Setup(ctx context.Context, id int) (*model.Setup, error)
	Performance(ctx context.Context, carID, trackID string) (*model.PerformanceSeries, error)
	OptimizationStatus(ctx context.Context) (*model.OptimizationStatus, error)
	StartOptimization(ctx context.Context, carID, trackID string) (
		*model.OptimizationResult, error)
	StopOptimization(ctx context.Context) (*model.OptimizationResult, error)
}

// ListInvalidator is implemented by clients which cache car and track lists
type ListInvalidator interface {
	InvalidateLists(ctx context.Context)
}

// Filter is the car/track selection of the setups screen
type Filter struct {
	CarID   string
	TrackID string
}

func (f Filter) complete() bool {
	return f.CarID != "" && f.TrackID != ""
}

// Controls tells which optimization controls are usable
type Controls struct {
	StartEnabled bool
	StopEnabled  bool
}

type (
	Option    func(*Dashboard)
	Dashboard struct {
		cli      Client
		out      io.Writer
		outMu    sync.Mutex
		pageSize int
		interval time.Duration
		seq      Sequencer
		l        *log.Logger

		stateMu sync.Mutex
		filter  Filter
		page    int
		pages   Pagination
	}
)

func WithPageSize(arg int) Option {
	return func(d *Dashboard) {
		d.pageSize = arg
	}
}

func WithPollInterval(arg time.Duration) Option {
	return func(d *Dashboard) {
		d.interval = arg
	}
}

func WithLogger(arg *log.Logger) Option {
	return func(d *Dashboard) {
		d.l = arg
	}
}

func New(cli Client, out io.Writer, opts ...Option) *Dashboard {
	d := &Dashboard{
		cli:      cli,
		out:      out,
		pageSize: DefaultPageSize,
		interval: DefaultPollInterval,
		page:     1,
		l:        log.Default().Named("dashboard"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Filter returns the current selection and page
func (d *Dashboard) Filter() (Filter, int) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.filter, d.page
}

// render writes the output of fn as one block
func (d *Dashboard) render(fn func(w io.Writer)) {
	var buf bytes.Buffer
	fn(&buf)
	d.outMu.Lock()
	defer d.outMu.Unlock()
	if _, err := d.out.Write(buf.Bytes()); err != nil {
		d.l.Warn("could not write output", log.ErrorField(err))
	}
}

// renderCurrent renders only if t still belongs to the latest request
func (d *Dashboard) renderCurrent(t Ticket, fn func(w io.Writer)) bool {
	var buf bytes.Buffer
	fn(&buf)
	d.outMu.Lock()
	defer d.outMu.Unlock()
	if !d.seq.Current(t) {
		d.l.Debug("dropping superseded result", log.Uint64("ticket", uint64(t)))
		return false
	}
	if _, err := d.out.Write(buf.Bytes()); err != nil {
		d.l.Warn("could not write output", log.ErrorField(err))
	}
	return true
}

func (d *Dashboard) ShowCars(ctx context.Context) {
	cars, err := d.cli.Cars(ctx)
	d.render(func(w io.Writer) {
		if err != nil {
			errorRow(w, "cars", err)
			return
		}
		renderList(w, "cars", cars)
	})
}

func (d *Dashboard) ShowTracks(ctx context.Context, carID string) {
	tracks, err := d.cli.Tracks(ctx, carID)
	d.render(func(w io.Writer) {
		if err != nil {
			errorRow(w, "tracks", err)
			return
		}
		renderList(w, "tracks", tracks)
	})
}

// ShowSetups selects f, resets to the first page and renders setups and
// performance series.
func (d *Dashboard) ShowSetups(ctx context.Context, f Filter) error {
	if !f.complete() {
		return ErrNoSelection
	}
	d.stateMu.Lock()
	d.filter = f
	d.page = 1
	d.stateMu.Unlock()
	d.loadSetups(ctx, 1)
	d.loadPerformance(ctx, f)
	return nil
}

// GotoPage refetches page for the current selection
func (d *Dashboard) GotoPage(ctx context.Context, page int) error {
	d.stateMu.Lock()
	f := d.filter
	pages := d.pages
	d.stateMu.Unlock()
	if !f.complete() {
		return ErrNoSelection
	}
	if pages.TotalPages > 0 && !pages.Valid(page) {
		return fmt.Errorf("page %d out of range 1..%d", page, pages.TotalPages)
	}
	d.loadSetups(ctx, page)
	return nil
}

// Refresh reloads the current page and the performance series. Cached car
// and track lists of the client are dropped.
func (d *Dashboard) Refresh(ctx context.Context) error {
	if inv, ok := d.cli.(ListInvalidator); ok {
		inv.InvalidateLists(ctx)
	}
	f, page := d.Filter()
	if !f.complete() {
		return ErrNoSelection
	}
	d.loadSetups(ctx, page)
	d.loadPerformance(ctx, f)
	return nil
}

func (d *Dashboard) loadSetups(ctx context.Context, page int) {
	t := d.seq.Issue()
	d.stateMu.Lock()
	f := d.filter
	d.stateMu.Unlock()

	res, err := d.cli.Setups(ctx, f.CarID, f.TrackID, page, d.pageSize)
	var p Pagination
	if err == nil {
		p = Paginate(res.Total, d.pageSize, page)
	}
	rendered := d.renderCurrent(t, func(w io.Writer) {
		fmt.Fprintf(w, "setups for %s @ %s\n", f.CarID, f.TrackID)
		if err != nil {
			errorRow(w, "setups", err)
			return
		}
		renderSetups(w, res, p)
	})
	if rendered && err == nil {
		d.stateMu.Lock()
		d.page = p.Current
		d.pages = p
		d.stateMu.Unlock()
	}
}

func (d *Dashboard) loadPerformance(ctx context.Context, f Filter) {
	perf, err := d.cli.Performance(ctx, f.CarID, f.TrackID)
	d.render(func(w io.Writer) {
		fmt.Fprintln(w, "performance")
		if err != nil {
			errorRow(w, "performance", err)
			return
		}
		renderPerformance(w, perf)
	})
}

func (d *Dashboard) ShowSetup(ctx context.Context, id int) {
	s, err := d.cli.Setup(ctx, id)
	d.render(func(w io.Writer) {
		if err != nil {
			errorRow(w, fmt.Sprintf("setup #%d", id), err)
			return
		}
		renderSetupDetails(w, s)
	})
}

// Landing renders the optimization status and the recent setups of the
// running optimization. The returned controls reflect the fetched status.
func (d *Dashboard) Landing(ctx context.Context) Controls {
	st, err := d.cli.OptimizationStatus(ctx)
	controls := Controls{StartEnabled: true}
	var recent *model.SetupPage
	var recentErr error
	if err == nil && st.IsActive {
		controls = Controls{StopEnabled: true}
		recent, recentErr = d.cli.Setups(ctx, st.CarID, st.TrackID, 1, RecentPageSize)
	}
	d.render(func(w io.Writer) {
		fmt.Fprintf(w, "--- %s ---\n", time.Now().Format(DateLayout))
		if err != nil {
			errorRow(w, "optimization status", err)
		} else {
			renderStatus(w, st)
		}
		renderControls(w, controls)
		fmt.Fprintln(w, "recent setups")
		switch {
		case err != nil:
			errorRow(w, "recent setups", err)
		case !st.IsActive:
			fmt.Fprintln(w, "no optimization running")
		case recentErr != nil:
			errorRow(w, "recent setups", recentErr)
		default:
			renderRecentSetups(w, recent)
		}
	})
	return controls
}

// Watch renders the landing screen immediately and then every poll interval
// until ctx is done.
func (d *Dashboard) Watch(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	d.Landing(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Landing(ctx)
		}
	}
}

func (d *Dashboard) StartOptimization(ctx context.Context, f Filter) error {
	if !f.complete() {
		d.render(func(w io.Writer) { fmt.Fprintln(w, "! "+ErrNoSelection.Error()) })
		return ErrNoSelection
	}
	res, err := d.cli.StartOptimization(ctx, f.CarID, f.TrackID)
	return d.optimizationResult(ctx, "start", res, err)
}

func (d *Dashboard) StopOptimization(ctx context.Context) error {
	res, err := d.cli.StopOptimization(ctx)
	return d.optimizationResult(ctx, "stop", res, err)
}

func (d *Dashboard) optimizationResult(
	ctx context.Context,
	op string,
	res *model.OptimizationResult,
	err error,
) error {
	if err == nil && !res.Success {
		err = fmt.Errorf("%s optimization: %s", op, res.Error)
	}
	d.render(func(w io.Writer) {
		if err != nil {
			fmt.Fprintf(w, "! %v\n", err)
			return
		}
		fmt.Fprintf(w, "optimization %s: %s\n", lastWord(op), res.Message)
	})
	if err != nil {
		return err
	}
	d.Landing(ctx)
	return nil
}

func lastWord(op string) string {
	if op == "stop" {
		return "stopped"
	}
	return "started"
}

// Browse reads page navigation commands from in until it is exhausted or
// "q" is read: "n" next page, "p" previous page, "r" refresh, a number
// selects that page. Fetches run in the background, only the result of the
// latest command is rendered.
func (d *Dashboard) Browse(ctx context.Context, in io.Reader) {
	var wg sync.WaitGroup
	defer wg.Wait()
	run := func(fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				d.render(func(w io.Writer) { fmt.Fprintf(w, "! %v\n", err) })
			}
		}()
	}
	_, page := d.Filter()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		target := page
		switch cmd {
		case "":
			continue
		case "q":
			return
		case "r":
			run(d.Refresh)
			continue
		case "n":
			target = page + 1
		case "p":
			target = page - 1
		default:
			n, err := strconv.Atoi(cmd)
			if err != nil {
				d.render(func(w io.Writer) { fmt.Fprintf(w, "! unknown command %q\n", cmd) })
				continue
			}
			target = n
		}
		if !d.selectable(target) {
			d.render(func(w io.Writer) { fmt.Fprintf(w, "! page %d not available\n", target) })
			continue
		}
		page = target
		run(func(ctx context.Context) error { return d.GotoPage(ctx, target) })
	}
}

func (d *Dashboard) selectable(page int) bool {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.pages.TotalPages == 0 || d.pages.Valid(page)
}
