package model

import "github.com/aarondl/opt/null"

// SetupInfo is the setup assigned by the optimization api for the next test
//
//nolint:tagliatelle // api compatibility
type SetupInfo struct {
	ID              int            `json:"id"`
	CarID           string         `json:"car_id"`
	TrackID         string         `json:"track_id"`
	SetupParameters map[string]any `json:"setup_parameters"`
	GenerationTime  string         `json:"generation_time"`
	Status          string         `json:"status"`
	Source          string         `json:"source"`
	FilePath        string         `json:"file_path,omitempty"`
}

// Setup is a setup as listed by the dashboard web api
//
//nolint:tagliatelle // api compatibility
type Setup struct {
	SetupInfo
	Score            null.Val[float64] `json:"score"`
	TelemetryResults []TelemetryResult `json:"telemetry_results,omitempty"`
}

//nolint:tagliatelle // api compatibility
type TelemetryResult struct {
	ID                int               `json:"id"`
	LapTime           null.Val[float64] `json:"lap_time"`
	TelemetryData     map[string]any    `json:"telemetry_data"`
	SubmissionTime    string            `json:"submission_time"`
	WeatherConditions map[string]any    `json:"weather_conditions"`
	DriverNotes       string            `json:"driver_notes"`
}

//nolint:tagliatelle // api compatibility
type SetupPage struct {
	Setups   []Setup `json:"setups"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// PerformanceSeries holds parallel slices, index i belongs to SetupIDs[i]
//
//nolint:tagliatelle // api compatibility
type PerformanceSeries struct {
	SetupIDs []int     `json:"setup_ids"`
	LapTimes []float64 `json:"lap_times"`
	Scores   []float64 `json:"scores"`
}
