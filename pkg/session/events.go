package session

import "github.com/aurigaai/auriga-setup-agent-go/pkg/model"

// events processed by the loop of the Controller
type (
	event interface {
		isEvent()
	}
	tickEvent struct {
		data *model.GameData
	}
	startEvent struct {
		reply chan error
	}
	stopEvent struct {
		reply chan error
	}
	// answered once all events queued before it are processed
	flushEvent struct {
		reply chan error
	}
	// completion of GET setup/next
	setupResult struct {
		epoch uint64
		setup *model.SetupInfo
		err   error
	}
	// completion of POST telemetry
	reportResult struct {
		epoch uint64
		resp  *model.TelemetryResponse
		err   error
	}
)

func (tickEvent) isEvent()    {}
func (startEvent) isEvent()   {}
func (stopEvent) isEvent()    {}
func (flushEvent) isEvent()   {}
func (setupResult) isEvent()  {}
func (reportResult) isEvent() {}
