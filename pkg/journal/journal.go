// Package journal keeps a local record of every lap submission attempt.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"

	DefaultWriteTimeout = 5 * time.Second
)

// Entry is one submission attempt
type Entry struct {
	ID          uuid.UUID
	SetupID     int
	CarID       string
	TrackID     string
	LapTime     float64
	Outcome     Outcome
	Score       null.Val[float64]
	TelemetryID null.Val[int]
	Error       string
	Payload     string // submitted json
	RecordStamp time.Time
}

// NewEntry describes the outcome of submitting report
func NewEntry(report *model.LapReport, resp *model.TelemetryResponse, err error) (
	*Entry, error,
) {
	payload, mErr := json.Marshal(report)
	if mErr != nil {
		return nil, mErr
	}
	id, uErr := uuid.NewV7()
	if uErr != nil {
		return nil, uErr
	}
	e := &Entry{
		ID:      id,
		SetupID: report.SetupID,
		CarID:   report.CarID,
		TrackID: report.TrackID,
		LapTime: report.LapTime,
		Outcome: OutcomeSent,
		Payload: string(payload),
	}
	switch {
	case err != nil:
		e.Outcome = OutcomeFailed
		e.Error = err.Error()
	case resp != nil:
		e.Score = null.From(resp.Score)
		e.TelemetryID = null.From(resp.TelemetryID)
	}
	return e, nil
}

const selector = `
select id, setup_id, car_id, track_id, lap_time, outcome, score, telemetry_id,
	error, payload, record_stamp
from lap_report`

func Create(ctx context.Context, conn Querier, e *Entry) error {
	row := conn.QueryRow(ctx, `
	insert into lap_report (id, setup_id, car_id, track_id, lap_time, outcome,
		score, telemetry_id, error, payload)
	values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	returning record_stamp
	`, e.ID, e.SetupID, e.CarID, e.TrackID, e.LapTime, string(e.Outcome),
		valuePtr(e.Score), valuePtr(e.TelemetryID), e.Error, e.Payload)
	return row.Scan(&e.RecordStamp)
}

// LoadRecent returns the latest limit entries, newest first
func LoadRecent(ctx context.Context, conn Querier, limit int) ([]*Entry, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s order by record_stamp desc, id desc limit $1", selector), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanEntry)
}

// LoadBySetup returns all attempts for setupID, oldest first
func LoadBySetup(ctx context.Context, conn Querier, setupID int) ([]*Entry, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where setup_id=$1 order by record_stamp asc, id asc", selector), setupID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanEntry)
}

// DeleteBefore removes entries older than t, returns number of rows deleted.
func DeleteBefore(ctx context.Context, conn Querier, t time.Time) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from lap_report where record_stamp < $1", t)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func scanEntry(row pgx.CollectableRow) (*Entry, error) {
	var e Entry
	var outcome string
	var score *float64
	var telemetryID *int
	if err := row.Scan(&e.ID, &e.SetupID, &e.CarID, &e.TrackID, &e.LapTime, &outcome,
		&score, &telemetryID, &e.Error, &e.Payload, &e.RecordStamp); err != nil {
		return nil, err
	}
	e.Outcome = Outcome(outcome)
	e.Score = fromPtr(score)
	e.TelemetryID = fromPtr(telemetryID)
	return &e, nil
}

func valuePtr[T any](v null.Val[T]) *T {
	if x, ok := v.Get(); ok {
		return &x
	}
	return nil
}

func fromPtr[T any](p *T) null.Val[T] {
	if p == nil {
		return null.Val[T]{}
	}
	return null.From(*p)
}

type (
	Option  func(*Journal)
	Journal struct {
		conn    Querier
		timeout time.Duration
		l       *log.Logger
	}
)

func WithWriteTimeout(arg time.Duration) Option {
	return func(j *Journal) {
		j.timeout = arg
	}
}

func WithLogger(arg *log.Logger) Option {
	return func(j *Journal) {
		j.l = arg
	}
}

// New creates a Journal writing to conn
func New(conn Querier, opts ...Option) *Journal {
	ret := &Journal{
		conn:    conn,
		timeout: DefaultWriteTimeout,
		l:       log.Default().Named("journal"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// ReportDone records a submission attempt. Failures are logged only, the
// journal must never affect a setup test.
func (j *Journal) ReportDone(
	ctx context.Context,
	report *model.LapReport,
	resp *model.TelemetryResponse,
	err error,
) {
	e, eErr := NewEntry(report, resp, err)
	if eErr != nil {
		j.l.Warn("could not create journal entry", log.ErrorField(eErr))
		return
	}
	// the report is written even if ctx was canceled in the meantime
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.timeout)
	defer cancel()
	if wErr := Create(wctx, j.conn, e); wErr != nil {
		j.l.Warn("could not write journal entry",
			log.Int("setupId", e.SetupID), log.ErrorField(wErr))
		return
	}
	j.l.Debug("journal entry written",
		log.String("id", e.ID.String()), log.String("outcome", string(e.Outcome)))
}

func (j *Journal) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	return LoadRecent(ctx, j.conn, limit)
}
