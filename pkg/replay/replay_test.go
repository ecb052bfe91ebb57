package replay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

const recording = `# recorded at monza
{"gameRunning":true,"gameName":"IRacing","carId":"mx5","trackId":"spa","lastLapTime":0}

{"gameRunning":true,"gameName":"IRacing","carId":"mx5","trackId":"spa","lastLapTime":0,"tyreWearFrontLeft":2.5}
not json
{"gameRunning":true,"gameName":"IRacing","carId":"mx5","trackId":"spa","lastLapTime":95.5}
`

type collector struct {
	got []model.GameData
}

func (c *collector) Send(_ context.Context, d *model.GameData) error {
	c.got = append(c.got, *d)
	return nil
}

func TestReplayer_Run(t *testing.T) {
	c := &collector{}
	stats, err := New(c, WithRate(0)).Run(context.Background(), strings.NewReader(recording))
	require.NoError(t, err)
	assert.Equal(t, Stats{Sent: 3, Skipped: 1}, stats)
	require.Len(t, c.got, 3)
	wear, ok := c.got[1].TyreWearFrontLeft.Get()
	assert.True(t, ok)
	assert.InDelta(t, 2.5, wear, 0)
	assert.InDelta(t, 95.5, c.got[2].LastLapTime, 0)
}

func TestReplayer_Rate(t *testing.T) {
	c := &collector{}
	start := time.Now()
	_, err := New(c, WithRate(50)).Run(context.Background(), strings.NewReader(recording))
	require.NoError(t, err)
	// 3 ticks at 20ms each
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestReplayer_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := New(&collector{}, WithRate(1)).Run(ctx, strings.NewReader(recording))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.Sent)
}

func TestReplayer_SinkErrors(t *testing.T) {
	calls := 0
	rejecting := TickerSink(func(*model.GameData) bool {
		calls++
		return calls != 2
	})
	stats, err := New(rejecting, WithRate(0)).Run(context.Background(), strings.NewReader(recording))
	require.NoError(t, err)
	assert.Equal(t, Stats{Sent: 2, Skipped: 1, Rejected: 1}, stats)

	failing := SinkFunc(func(context.Context, *model.GameData) error {
		return errors.New("connection closed")
	})
	_, err = New(failing, WithRate(0)).Run(context.Background(), strings.NewReader(recording))
	assert.ErrorContains(t, err, "line 2: connection closed")
}

func TestReplayer_Interval(t *testing.T) {
	tests := []struct {
		name string
		rate int
		want time.Duration
	}{
		{name: "as fast as possible", rate: 0, want: 0},
		{name: "negative", rate: -5, want: 0},
		{name: "default", rate: DefaultRate, want: 100 * time.Millisecond},
		{name: "max", rate: MaxRate, want: 100 * time.Microsecond},
		{name: "capped", rate: 2_000_000_000, want: 100 * time.Microsecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(&collector{}, WithRate(tt.rate)).interval())
			if tt.rate < 0 || tt.rate > MaxRate {
				assert.Error(t, ValidateRate(tt.rate))
			} else {
				assert.NoError(t, ValidateRate(tt.rate))
			}
		})
	}
}

func TestReplayer_HugeRateDoesNotPanic(t *testing.T) {
	c := &collector{}
	stats, err := New(c, WithRate(2_000_000_000)).
		Run(context.Background(), strings.NewReader(recording))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Sent)
}
