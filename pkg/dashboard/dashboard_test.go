//nolint:funlen // ok for tests
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

type fakeClient struct {
	mu          sync.Mutex
	total       int
	setupsErr   error
	perfErr     error
	status      *model.OptimizationStatus
	statusErr   error
	startResult *model.OptimizationResult
	gates       map[int]chan struct{} // page -> released when closed
	calls       []setupsCall
	statusCalls int
	invalidated int
}

func (f *fakeClient) InvalidateLists(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

type setupsCall struct {
	car, track     string
	page, pageSize int
}

func (f *fakeClient) Cars(ctx context.Context) ([]string, error) {
	return []string{"ferrari_296", "porsche_992"}, nil
}

func (f *fakeClient) Tracks(ctx context.Context, carID string) ([]string, error) {
	return nil, errors.New("status 400: unknown car")
}

func (f *fakeClient) Setups(
	ctx context.Context, carID, trackID string, page, pageSize int,
) (*model.SetupPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, setupsCall{carID, trackID, page, pageSize})
	gate := f.gates[page]
	err := f.setupsErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &model.SetupPage{
		Setups: []model.Setup{{
			SetupInfo: model.SetupInfo{
				ID: page * 100, CarID: carID, TrackID: trackID,
				Status: "tested", Source: "optimizer",
			},
			Score: null.From(7.5),
			TelemetryResults: []model.TelemetryResult{
				{LapTime: null.From(125.456)},
			},
		}},
		Total:    f.total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (f *fakeClient) Setup(ctx context.Context, id int) (*model.Setup, error) {
	return &model.Setup{
		SetupInfo: model.SetupInfo{
			ID: id, CarID: "ferrari_296", TrackID: "monza",
			SetupParameters: map[string]any{
				"rear_wing": map[string]any{"value": 4.0, "unit": "deg"},
			},
		},
		TelemetryResults: []model.TelemetryResult{{
			LapTime:       null.From(95.5),
			TelemetryData: map[string]any{"traction": 8.0},
			DriverNotes:   "loose on exit",
		}},
	}, nil
}

func (f *fakeClient) Performance(
	ctx context.Context, carID, trackID string,
) (*model.PerformanceSeries, error) {
	if f.perfErr != nil {
		return nil, f.perfErr
	}
	return &model.PerformanceSeries{
		SetupIDs: []int{1, 2},
		LapTimes: []float64{95.5, 94.25},
		Scores:   []float64{6, 7.5},
	}, nil
}

func (f *fakeClient) OptimizationStatus(ctx context.Context) (*model.OptimizationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.status == nil {
		return &model.OptimizationStatus{}, nil
	}
	return f.status, nil
}

func (f *fakeClient) StartOptimization(
	ctx context.Context, carID, trackID string,
) (*model.OptimizationResult, error) {
	return f.startResult, nil
}

func (f *fakeClient) StopOptimization(ctx context.Context) (*model.OptimizationResult, error) {
	return &model.OptimizationResult{Success: true, Message: "session stopped"}, nil
}

func (f *fakeClient) setupCalls() []setupsCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]setupsCall{}, f.calls...)
}

// syncBuffer is written from background fetches
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var testFilter = Filter{CarID: "ferrari_296", TrackID: "monza"}

func TestDashboard_Lists(t *testing.T) {
	out := &syncBuffer{}
	d := New(&fakeClient{}, out)
	d.ShowCars(context.Background())
	d.ShowTracks(context.Background(), "unknown")
	assert.Equal(t,
		"1) ferrari_296\n2) porsche_992\n! error loading tracks: status 400: unknown car\n",
		out.String())
}

func TestDashboard_ShowSetups(t *testing.T) {
	cli := &fakeClient{total: 47}
	out := &syncBuffer{}
	d := New(cli, out)

	assert.ErrorIs(t, d.ShowSetups(context.Background(), Filter{CarID: "x"}), ErrNoSelection)

	require.NoError(t, d.ShowSetups(context.Background(), testFilter))
	got := out.String()
	assert.Contains(t, got, "setups for ferrari_296 @ monza")
	assert.Contains(t, got, "02:05.456")
	assert.Contains(t, got, "7.50")
	assert.Contains(t, got, "page 1/5    [1] 2 ... 5 >")
	assert.Contains(t, got, "01:34.250")

	require.NoError(t, d.GotoPage(context.Background(), 4))
	f, page := d.Filter()
	assert.Equal(t, testFilter, f)
	assert.Equal(t, 4, page)
	assert.Contains(t, out.String(), "page 4/5  < 1 ... 3 [4] 5 >")

	assert.Error(t, d.GotoPage(context.Background(), 6))
	assert.Equal(t, []setupsCall{
		{"ferrari_296", "monza", 1, DefaultPageSize},
		{"ferrari_296", "monza", 4, DefaultPageSize},
	}, cli.setupCalls())
}

func TestDashboard_InlineErrors(t *testing.T) {
	cli := &fakeClient{
		total:     47,
		setupsErr: errors.New("status 500: boom"),
		perfErr:   errors.New("timeout"),
	}
	out := &syncBuffer{}
	d := New(cli, out)
	require.NoError(t, d.ShowSetups(context.Background(), testFilter))
	got := out.String()
	assert.Contains(t, got, "! error loading setups: status 500: boom")
	assert.Contains(t, got, "! error loading performance: timeout")
	_, page := d.Filter()
	assert.Equal(t, 1, page)
}

func TestDashboard_LastRequestWins(t *testing.T) {
	gate := make(chan struct{})
	cli := &fakeClient{total: 47, gates: map[int]chan struct{}{2: gate}}
	out := &syncBuffer{}
	d := New(cli, out, WithPageSize(10))
	require.NoError(t, d.ShowSetups(context.Background(), testFilter))

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, d.GotoPage(context.Background(), 2))
	}()
	assert.Eventually(t, func() bool { return len(cli.setupCalls()) == 2 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, d.GotoPage(context.Background(), 3))
	close(gate)
	<-done

	got := out.String()
	assert.Contains(t, got, "300 ")
	assert.NotContains(t, got, "200 ", "superseded page must not be rendered")
	_, page := d.Filter()
	assert.Equal(t, 3, page)
}

func TestDashboard_Landing(t *testing.T) {
	tests := []struct {
		name    string
		cli     *fakeClient
		want    Controls
		wantOut []string
	}{
		{
			name: "no optimization",
			cli:  &fakeClient{},
			want: Controls{StartEnabled: true},
			wantOut: []string{
				"controls: start enabled, stop disabled",
				"no optimization running",
			},
		},
		{
			name: "optimization running",
			cli: &fakeClient{total: 3, status: &model.OptimizationStatus{
				IsActive: true, CarID: "ferrari_296", TrackID: "monza",
				TrialsCompleted: 12, BestScore: null.From(8.25),
			}},
			want: Controls{StopEnabled: true},
			wantOut: []string{
				"optimization running",
				"8.25",
				"controls: start disabled, stop enabled",
				"100 ",
			},
		},
		{
			name: "status unavailable",
			cli:  &fakeClient{statusErr: errors.New("connection refused")},
			want: Controls{StartEnabled: true},
			wantOut: []string{
				"! error loading optimization status: connection refused",
				"! error loading recent setups: connection refused",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &syncBuffer{}
			d := New(tt.cli, out)
			assert.Equal(t, tt.want, d.Landing(context.Background()))
			for _, w := range tt.wantOut {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}

func TestDashboard_Optimization(t *testing.T) {
	cli := &fakeClient{startResult: &model.OptimizationResult{
		Success: false, Error: "already running",
	}}
	out := &syncBuffer{}
	d := New(cli, out)

	err := d.StartOptimization(context.Background(), testFilter)
	assert.EqualError(t, err, "start optimization: already running")
	assert.Contains(t, out.String(), "! start optimization: already running")

	assert.ErrorIs(t, d.StartOptimization(context.Background(), Filter{}), ErrNoSelection)

	require.NoError(t, d.StopOptimization(context.Background()))
	assert.Contains(t, out.String(), "optimization stopped: session stopped")
	assert.Contains(t, out.String(), "controls: start enabled, stop disabled")
}

func TestDashboard_ShowSetup(t *testing.T) {
	out := &syncBuffer{}
	d := New(&fakeClient{}, out)
	d.ShowSetup(context.Background(), 42)
	got := out.String()
	for _, w := range []string{
		"setup #42", "01:35.500", "8/10", "-/10", "Rear Wing", "deg",
		"driver notes: loose on exit", "weather:",
	} {
		assert.Contains(t, got, w)
	}
}

func TestDashboard_Browse(t *testing.T) {
	cli := &fakeClient{total: 47}
	out := &syncBuffer{}
	d := New(cli, out)
	require.NoError(t, d.ShowSetups(context.Background(), testFilter))

	d.Browse(context.Background(), strings.NewReader("p\nn\nx\n9\nq\n2\n"))

	got := out.String()
	assert.Contains(t, got, "! page 0 not available")
	assert.Contains(t, got, `! unknown command "x"`)
	assert.Contains(t, got, "! page 9 not available")
	pages := []int{}
	for _, c := range cli.setupCalls() {
		pages = append(pages, c.page)
	}
	assert.Equal(t, []int{1, 2}, pages, "input after q is ignored")
}

func TestDashboard_Watch(t *testing.T) {
	cli := &fakeClient{}
	d := New(cli, &syncBuffer{}, WithPollInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Watch(ctx)
	}()
	assert.Eventually(t, func() bool {
		cli.mu.Lock()
		defer cli.mu.Unlock()
		return cli.statusCalls >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestDashboard_RefreshInvalidatesLists(t *testing.T) {
	cli := &fakeClient{total: 47}
	d := New(cli, &syncBuffer{})
	require.NoError(t, d.ShowSetups(context.Background(), testFilter))

	d.Browse(context.Background(), strings.NewReader("r\nq\n"))

	cli.mu.Lock()
	defer cli.mu.Unlock()
	assert.Equal(t, 1, cli.invalidated)
	require.Len(t, cli.calls, 2)
	assert.Equal(t, 1, cli.calls[1].page, "refresh keeps the current page")
}
