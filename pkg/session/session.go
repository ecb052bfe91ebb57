package session

import (
	"github.com/aarondl/opt/omit"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

// session holds the data of one setup test attempt.
// It is owned by the event loop of the Controller.
type session struct {
	base         string // api url captured at start
	setupID      int
	lapCompleted bool
	lapTime      float64
	tires        model.TireSample
	weather      model.WeatherSample
}

func newSession() session {
	return session{setupID: model.NoSetup}
}

// sample overwrites the buffers with the latest readings (last write wins).
// Wear values missing in d keep their previous value.
func (s *session) sample(d *model.GameData) {
	s.tires.AvgTempFL = d.TyreTempFrontLeft
	s.tires.AvgTempFR = d.TyreTempFrontRight
	s.tires.AvgTempRL = d.TyreTempRearLeft
	s.tires.AvgTempRR = d.TyreTempRearRight
	if v, ok := d.TyreWearFrontLeft.Get(); ok {
		s.tires.WearFL = omit.From(v)
	}
	if v, ok := d.TyreWearFrontRight.Get(); ok {
		s.tires.WearFR = omit.From(v)
	}
	if v, ok := d.TyreWearRearLeft.Get(); ok {
		s.tires.WearRL = omit.From(v)
	}
	if v, ok := d.TyreWearRearRight.Get(); ok {
		s.tires.WearRR = omit.From(v)
	}
	s.weather.TrackTemp = d.TrackTemperature
	s.weather.AirTemp = d.AirTemperature
}

func (s *session) report(ratings model.Ratings, notes string) *model.LapReport {
	return &model.LapReport{
		SetupID:     s.setupID,
		LapTime:     s.lapTime,
		Tires:       s.tires,
		Weather:     s.weather,
		Ratings:     ratings,
		DriverNotes: notes,
	}
}
