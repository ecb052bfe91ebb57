// Package natshost exposes the session controller on NATS subjects.
//
// Subjects (relative to the prefix):
//
//	tick                  GameData json, fire and forget
//	cmd.start, cmd.stop   request/reply, answered with a host.CommandResult
//	prop.CurrentSetupId   published on every status change
//	prop.IsTestingSetup   published on every status change
//	message               status message, only if present
//	status                complete status as json
package natshost

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/host"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

const (
	DefaultPrefix         = "auriga"
	DefaultCommandTimeout = 5 * time.Second
)

type (
	Option  func(*Surface)
	Surface struct {
		conn           *nats.Conn
		agent          host.Agent
		prefix         string
		commandTimeout time.Duration
		printTicks     bool
		subs           []*nats.Subscription
		mu             sync.Mutex
		l              *log.Logger
	}
)

func WithPrefix(arg string) Option {
	return func(s *Surface) {
		s.prefix = arg
	}
}

func WithCommandTimeout(arg time.Duration) Option {
	return func(s *Surface) {
		s.commandTimeout = arg
	}
}

func WithPrintTicks(arg bool) Option {
	return func(s *Surface) {
		s.printTicks = arg
	}
}

func WithLogger(arg *log.Logger) Option {
	return func(s *Surface) {
		s.l = arg
	}
}

func New(conn *nats.Conn, agent host.Agent, opts ...Option) (*Surface, error) {
	ret := &Surface{
		conn:           conn,
		agent:          agent,
		prefix:         DefaultPrefix,
		commandTimeout: DefaultCommandTimeout,
		l:              log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if err := ret.setupSubscriptions(); err != nil {
		ret.Close()
		return nil, err
	}
	return ret, nil
}

// Subject returns the full subject name for suffix
func (s *Surface) Subject(suffix string) string {
	return s.prefix + "." + suffix
}

func (s *Surface) setupSubscriptions() error {
	handlers := map[string]nats.MsgHandler{
		"tick":      s.onTick,
		"cmd.start": s.onCommand(host.CmdStartSetupTest),
		"cmd.stop":  s.onCommand(host.CmdStopSetupTest),
	}
	for suffix, h := range handlers {
		sub, err := s.conn.Subscribe(s.Subject(suffix), h)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.subs = append(s.subs, sub)
		s.mu.Unlock()
	}
	// make sure the server knows about the subscriptions before anyone publishes
	return s.conn.Flush()
}

func (s *Surface) onTick(msg *nats.Msg) {
	var d model.GameData
	if err := json.Unmarshal(msg.Data, &d); err != nil {
		s.l.Warn("invalid tick payload", log.ErrorField(err))
		return
	}
	if s.printTicks {
		s.l.Debug("tick", log.ByteString("payload", msg.Data))
	}
	if !s.agent.Tick(&d) {
		s.l.Debug("tick dropped")
	}
}

func (s *Surface) onCommand(name string) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), s.commandTimeout)
		defer cancel()
		res := host.Execute(ctx, s.agent, name)
		s.l.Debug("command executed",
			log.String("command", name), log.Bool("ok", res.OK), log.String("error", res.Error))
		if msg.Reply == "" {
			return
		}
		data, err := json.Marshal(res)
		if err != nil {
			s.l.Error("could not marshal command result", log.ErrorField(err))
			return
		}
		if err := msg.Respond(data); err != nil {
			s.l.Warn("could not respond to command", log.ErrorField(err))
		}
	}
}

// Publish sends the properties, the message and the full status of st
func (s *Surface) Publish(st model.SessionStatus) error {
	props := host.PropertiesOf(st)
	if err := s.conn.Publish(s.Subject("prop."+host.PropCurrentSetupID),
		[]byte(strconv.Itoa(props.CurrentSetupID))); err != nil {
		return err
	}
	if err := s.conn.Publish(s.Subject("prop."+host.PropIsTestingSetup),
		[]byte(strconv.FormatBool(props.IsTestingSetup))); err != nil {
		return err
	}
	if st.Message != "" {
		if err := s.conn.Publish(s.Subject("message"), []byte(st.Message)); err != nil {
			return err
		}
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.conn.Publish(s.Subject("status"), data)
}

// Close removes the subscriptions. The connection is owned by the caller.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.l.Debug("unsubscribe", log.String("subject", sub.Subject), log.ErrorField(err))
		}
	}
	s.subs = nil
}
