package model

import "time"

type SessionState string

const (
	StateIdle       SessionState = "IDLE"
	StateRequesting SessionState = "REQUESTING"
	StateActive     SessionState = "ACTIVE"
	StateReporting  SessionState = "REPORTING"
)

// NoSetup is the setup id reported while no setup test is running
const NoSetup = -1

// SessionStatus is published on every transition of the setup test session
type SessionStatus struct {
	State     SessionState `json:"state"`
	SetupID   int          `json:"setupId"`
	IsTesting bool         `json:"isTesting"`
	CarID     string       `json:"carId"`
	TrackID   string       `json:"trackId"`
	Message   string       `json:"message,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
