// Package host contains what the host surfaces share: the view of the session
// controller they drive and the exposed properties and commands.
package host

import (
	"context"
	"errors"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

const (
	CmdStartSetupTest = "StartSetupTest"
	CmdStopSetupTest  = "StopSetupTest"

	PropCurrentSetupID = "CurrentSetupId"
	PropIsTestingSetup = "IsTestingSetup"
)

var ErrUnknownCommand = errors.New("unknown command")

// Agent is the part of the session controller a host surface talks to
type Agent interface {
	Tick(d *model.GameData) bool
	StartTest(ctx context.Context) error
	StopTest(ctx context.Context) error
	Status() model.SessionStatus
	Subscribe() <-chan model.SessionStatus
	Unsubscribe(ch <-chan model.SessionStatus)
}

// Surface receives the status snapshots of the session
type Surface interface {
	Publish(st model.SessionStatus) error
}

// Properties are the values a host can read at any time
//
//nolint:tagliatelle // host property names
type Properties struct {
	CurrentSetupID int  `json:"CurrentSetupId"`
	IsTestingSetup bool `json:"IsTestingSetup"`
}

func PropertiesOf(st model.SessionStatus) Properties {
	return Properties{CurrentSetupID: st.SetupID, IsTestingSetup: st.IsTesting}
}

// CommandResult acknowledges a host command
type CommandResult struct {
	Command string              `json:"command"`
	OK      bool                `json:"ok"`
	Error   string              `json:"error,omitempty"`
	Status  model.SessionStatus `json:"status"`
}

// Execute runs the named command against a
func Execute(ctx context.Context, a Agent, name string) CommandResult {
	var err error
	switch name {
	case CmdStartSetupTest:
		err = a.StartTest(ctx)
	case CmdStopSetupTest:
		err = a.StopTest(ctx)
	default:
		err = ErrUnknownCommand
	}
	ret := CommandResult{Command: name, OK: err == nil, Status: a.Status()}
	if err != nil {
		ret.Error = err.Error()
	}
	return ret
}

// Forward publishes every status of a to the surfaces until ctx is done.
// The current status is published first.
func Forward(ctx context.Context, a Agent, surfaces ...Surface) {
	l := log.Default().Named("host")
	ch := a.Subscribe()
	defer a.Unsubscribe(ch)
	publish := func(st model.SessionStatus) {
		for _, s := range surfaces {
			if err := s.Publish(st); err != nil {
				l.Warn("could not publish status", log.ErrorField(err))
			}
		}
	}
	publish(a.Status())
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			publish(st)
		}
	}
}
