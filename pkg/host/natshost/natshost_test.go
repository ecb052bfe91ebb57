//nolint:funlen // ok for tests
package natshost

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/host"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/host/hosttest"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
	"github.com/aurigaai/auriga-setup-agent-go/testsupport/tcnats"
)

var natsURL string

func TestMain(m *testing.M) {
	if url := os.Getenv("TESTNATS_URL"); url != "" {
		natsURL = url
		os.Exit(m.Run())
	}
	c, err := tcnats.SetupNats(context.Background())
	if err != nil {
		panic(err)
	}
	natsURL = c.URL
	code := m.Run()
	//nolint:errcheck // test cleanup
	c.Terminate(context.Background())
	os.Exit(code)
}

func connect(t *testing.T) *nats.Conn {
	t.Helper()
	conn, err := nats.Connect(natsURL)
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	return conn
}

func newSurface(t *testing.T, a host.Agent) (*Surface, *nats.Conn) {
	t.Helper()
	s, err := New(connect(t), a, WithPrefix("test."+t.Name()))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, connect(t)
}

func TestSurface_Tick(t *testing.T) {
	a := hosttest.NewAgent()
	s, client := newSurface(t, a)

	data, _ := json.Marshal(model.GameData{GameRunning: true, CarID: "ferrari_296", TrackID: "monza"})
	require.NoError(t, client.Publish(s.Subject("tick"), data))
	require.NoError(t, client.Publish(s.Subject("tick"), []byte("not json")))
	require.NoError(t, client.Flush())

	assert.Eventually(t, func() bool { return len(a.Ticks()) == 1 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, "monza", a.Ticks()[0].TrackID)
}

func TestSurface_Commands(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		startErr error
		want     host.CommandResult
	}{
		{
			name:    "start",
			subject: "cmd.start",
			want: host.CommandResult{
				Command: host.CmdStartSetupTest, OK: true,
				Status: model.SessionStatus{
					State: model.StateActive, SetupID: 42, IsTesting: true,
					Message: "testing setup",
				},
			},
		},
		{
			name:     "start rejected",
			subject:  "cmd.start",
			startErr: errors.New("setup test already running"),
			want: host.CommandResult{
				Command: host.CmdStartSetupTest, Error: "setup test already running",
				Status: model.SessionStatus{State: model.StateIdle, SetupID: model.NoSetup},
			},
		},
		{
			name:    "stop",
			subject: "cmd.stop",
			want: host.CommandResult{
				Command: host.CmdStopSetupTest, OK: true,
				Status: model.SessionStatus{
					State: model.StateIdle, SetupID: model.NoSetup,
					Message: "setup test stopped",
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := hosttest.NewAgent()
			a.StartErr = tt.startErr
			s, client := newSurface(t, a)
			msg, err := client.Request(s.Subject(tt.subject), nil, 2*time.Second)
			require.NoError(t, err)
			var got host.CommandResult
			require.NoError(t, json.Unmarshal(msg.Data, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSurface_Publish(t *testing.T) {
	s, client := newSurface(t, hosttest.NewAgent())
	sub, err := client.SubscribeSync(s.Subject(">"))
	require.NoError(t, err)
	require.NoError(t, client.Flush())

	require.NoError(t, s.Publish(model.SessionStatus{
		State: model.StateActive, SetupID: 7, IsTesting: true, Message: "testing setup #7",
	}))
	require.NoError(t, s.Publish(model.SessionStatus{
		State: model.StateIdle, SetupID: model.NoSetup,
	}))

	got := map[string][]string{}
	for range 7 {
		msg, err := sub.NextMsg(2 * time.Second)
		require.NoError(t, err)
		got[msg.Subject] = append(got[msg.Subject], string(msg.Data))
	}
	assert.Equal(t, []string{"7", "-1"}, got[s.Subject("prop.CurrentSetupId")])
	assert.Equal(t, []string{"true", "false"}, got[s.Subject("prop.IsTestingSetup")])
	assert.Equal(t, []string{"testing setup #7"}, got[s.Subject("message")])
	require.Len(t, got[s.Subject("status")], 2)
	var st model.SessionStatus
	require.NoError(t, json.Unmarshal([]byte(got[s.Subject("status")][1]), &st))
	assert.Equal(t, model.StateIdle, st.State)
}
