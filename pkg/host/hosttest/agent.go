// Package hosttest provides an in-memory host.Agent for surface tests.
package hosttest

import (
	"context"
	"sync"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

// Agent records ticks and commands. StartErr/StopErr are returned by the
// commands, a successful start moves the status to an active test of SetupID.
type Agent struct {
	mu       sync.Mutex
	ticks    []model.GameData
	status   model.SessionStatus
	subs     []chan model.SessionStatus
	StartErr error
	StopErr  error
	SetupID  int
}

func NewAgent() *Agent {
	return &Agent{
		status:  model.SessionStatus{State: model.StateIdle, SetupID: model.NoSetup},
		SetupID: 42,
	}
}

func (a *Agent) Tick(d *model.GameData) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ticks = append(a.ticks, *d)
	return true
}

func (a *Agent) Ticks() []model.GameData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.GameData{}, a.ticks...)
}

func (a *Agent) StartTest(ctx context.Context) error {
	if a.StartErr != nil {
		return a.StartErr
	}
	a.Emit(model.SessionStatus{
		State: model.StateActive, SetupID: a.SetupID, IsTesting: true,
		Message: "testing setup",
	})
	return nil
}

func (a *Agent) StopTest(ctx context.Context) error {
	if a.StopErr != nil {
		return a.StopErr
	}
	a.Emit(model.SessionStatus{
		State: model.StateIdle, SetupID: model.NoSetup, Message: "setup test stopped",
	})
	return nil
}

func (a *Agent) Status() model.SessionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Emit sets the current status and sends it to all subscribers
func (a *Agent) Emit(st model.SessionStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = st
	for _, ch := range a.subs {
		select {
		case ch <- st:
		default:
		}
	}
}

func (a *Agent) Subscribe() <-chan model.SessionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	ch := make(chan model.SessionStatus, 16)
	a.subs = append(a.subs, ch)
	return ch
}

func (a *Agent) Unsubscribe(ch <-chan model.SessionStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, c := range a.subs {
		if c == ch {
			close(c)
			a.subs = append(a.subs[:i], a.subs[i+1:]...)
			return
		}
	}
}

// Subscribers returns the number of active subscriptions
func (a *Agent) Subscribers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.subs)
}
