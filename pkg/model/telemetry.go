package model

import (
	"encoding/json"

	"github.com/aarondl/opt/null"
	"github.com/aarondl/opt/omit"
)

// TireSample holds the latest tire readings of a test lap.
// Wear values stay unset when the game does not provide them.
type TireSample struct {
	AvgTempFL float64
	AvgTempFR float64
	AvgTempRL float64
	AvgTempRR float64
	WearFL    omit.Val[float64]
	WearFR    omit.Val[float64]
	WearRL    omit.Val[float64]
	WearRR    omit.Val[float64]
}

type WeatherSample struct {
	TrackTemp float64
	AirTemp   float64
}

// Ratings are the subjective driver ratings (1..10) sent along with each lap
type Ratings struct {
	CarStability         int
	CornerEntryStability int
	CornerExitStability  int
	Traction             int
	BrakingStability     int
}

// LapReport is the aggregated result of one completed test lap.
// CarID and TrackID are kept for local bookkeeping, they are not submitted.
type LapReport struct {
	SetupID     int
	CarID       string
	TrackID     string
	LapTime     float64
	Tires       TireSample
	Weather     WeatherSample
	Ratings     Ratings
	DriverNotes string
}

//nolint:tagliatelle // api compatibility
type (
	lapReportWire struct {
		SetupID           int               `json:"setup_id"`
		LapTime           float64           `json:"lap_time"`
		TelemetryData     telemetryDataWire `json:"telemetry_data"`
		WeatherConditions weatherWire       `json:"weather_conditions"`
		DriverNotes       string            `json:"driver_notes"`
	}
	telemetryDataWire struct {
		LapTime              float64  `json:"lap_time"`
		AvgTempFL            float64  `json:"tire_avg_temp_fl"`
		AvgTempFR            float64  `json:"tire_avg_temp_fr"`
		AvgTempRL            float64  `json:"tire_avg_temp_rl"`
		AvgTempRR            float64  `json:"tire_avg_temp_rr"`
		WearFL               *float64 `json:"tire_wear_fl,omitempty"`
		WearFR               *float64 `json:"tire_wear_fr,omitempty"`
		WearRL               *float64 `json:"tire_wear_rl,omitempty"`
		WearRR               *float64 `json:"tire_wear_rr,omitempty"`
		CarStability         int      `json:"car_stability,omitempty"`
		CornerEntryStability int      `json:"corner_entry_stability,omitempty"`
		CornerExitStability  int      `json:"corner_exit_stability,omitempty"`
		Traction             int      `json:"traction,omitempty"`
		BrakingStability     int      `json:"braking_stability,omitempty"`
	}
	weatherWire struct {
		TrackTemp float64 `json:"track_temp"`
		AirTemp   float64 `json:"air_temp"`
	}
)

// MarshalJSON produces the payload expected by POST /api/v1/telemetry
func (r LapReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(lapReportWire{
		SetupID: r.SetupID,
		LapTime: r.LapTime,
		TelemetryData: telemetryDataWire{
			LapTime:              r.LapTime,
			AvgTempFL:            r.Tires.AvgTempFL,
			AvgTempFR:            r.Tires.AvgTempFR,
			AvgTempRL:            r.Tires.AvgTempRL,
			AvgTempRR:            r.Tires.AvgTempRR,
			WearFL:               optPtr(r.Tires.WearFL),
			WearFR:               optPtr(r.Tires.WearFR),
			WearRL:               optPtr(r.Tires.WearRL),
			WearRR:               optPtr(r.Tires.WearRR),
			CarStability:         r.Ratings.CarStability,
			CornerEntryStability: r.Ratings.CornerEntryStability,
			CornerExitStability:  r.Ratings.CornerExitStability,
			Traction:             r.Ratings.Traction,
			BrakingStability:     r.Ratings.BrakingStability,
		},
		WeatherConditions: weatherWire{
			TrackTemp: r.Weather.TrackTemp,
			AirTemp:   r.Weather.AirTemp,
		},
		DriverNotes: r.DriverNotes,
	})
}

func optPtr(v omit.Val[float64]) *float64 {
	if f, ok := v.Get(); ok {
		return &f
	}
	return nil
}

//nolint:tagliatelle // api compatibility
type TelemetryResponse struct {
	Success     bool          `json:"success"`
	TelemetryID int           `json:"telemetry_id"`
	Score       float64       `json:"score"`
	NextSetupID null.Val[int] `json:"next_setup_id"`
}
