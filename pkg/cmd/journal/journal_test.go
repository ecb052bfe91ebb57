package journal

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/journal"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
	"github.com/aurigaai/auriga-setup-agent-go/testsupport/testdb"
)

func TestRenderEntries(t *testing.T) {
	var out bytes.Buffer
	renderEntries(&out, nil)
	assert.Equal(t, "no entries\n", out.String())

	out.Reset()
	renderEntries(&out, []*journal.Entry{
		{
			SetupID: 7, CarID: "mx5", TrackID: "spa", LapTime: 125.456,
			Outcome: journal.OutcomeSent, Score: null.From(7.5), RecordStamp: time.Now(),
		},
		{
			SetupID: 8, CarID: "mx5", TrackID: "spa", LapTime: 0,
			Outcome: journal.OutcomeFailed, Error: "status 500", RecordStamp: time.Now(),
		},
	})
	got := out.String()
	assert.Contains(t, got, "02:05.456")
	assert.Contains(t, got, "7.50")
	assert.Contains(t, got, "failed")
	assert.Contains(t, got, "status 500")
}

func TestParseCutoff(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		arg     string
		want    time.Time
		wantErr bool
	}{
		{name: "age", arg: "48h", want: now.Add(-48 * time.Hour)},
		{name: "zero age", arg: "0s", want: now},
		{name: "date", arg: "2024-05-01", want: time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)},
		{name: "negative age", arg: "-1h", wantErr: true},
		{name: "garbage", arg: "last week", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCutoff(tt.arg, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestListAndPrune(t *testing.T) {
	pool := testdb.InitTestDb(t)
	ctx := context.Background()
	for _, id := range []int{7, 8, 7} {
		e, err := journal.NewEntry(&model.LapReport{SetupID: id, CarID: "mx5", TrackID: "spa"},
			&model.TelemetryResponse{Success: true, Score: 6.25}, nil)
		require.NoError(t, err)
		require.NoError(t, journal.Create(ctx, pool, e))
	}
	t.Cleanup(func() { setupID, limit = 0, 20 })

	var out bytes.Buffer
	setupID = 7
	require.NoError(t, listEntries(ctx, pool, &out))
	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("mx5")))

	out.Reset()
	setupID, limit = 0, 1
	require.NoError(t, listEntries(ctx, pool, &out))
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("mx5")))

	out.Reset()
	require.NoError(t, pruneEntries(ctx, pool, time.Now().Add(-time.Hour), &out))
	assert.Contains(t, out.String(), "deleted 0 entries")

	out.Reset()
	require.NoError(t, pruneEntries(ctx, pool, time.Now().Add(time.Hour), &out))
	assert.Contains(t, out.String(), "deleted 3 entries")
}
