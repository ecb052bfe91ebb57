package model

import "github.com/aarondl/opt/null"

// GameData is the vehicle state delivered with every tick.
// Field names follow the normalized game data of the host.
type GameData struct {
	GameRunning bool    `json:"gameRunning"`
	GameName    string  `json:"gameName"`
	CarID       string  `json:"carId"`
	TrackID     string  `json:"trackId"`
	LastLapTime float64 `json:"lastLapTime"`

	TyreTempFrontLeft  float64 `json:"tyreTempFrontLeft"`
	TyreTempFrontRight float64 `json:"tyreTempFrontRight"`
	TyreTempRearLeft   float64 `json:"tyreTempRearLeft"`
	TyreTempRearRight  float64 `json:"tyreTempRearRight"`

	// not every car/game provides wear data
	TyreWearFrontLeft  null.Val[float64] `json:"tyreWearFrontLeft"`
	TyreWearFrontRight null.Val[float64] `json:"tyreWearFrontRight"`
	TyreWearRearLeft   null.Val[float64] `json:"tyreWearRearLeft"`
	TyreWearRearRight  null.Val[float64] `json:"tyreWearRearRight"`

	TrackTemperature float64 `json:"trackTemperature"`
	AirTemperature   float64 `json:"airTemperature"`
}
