package model

import "github.com/aarondl/opt/null"

//nolint:tagliatelle // api compatibility
type OptimizationStatus struct {
	IsActive        bool              `json:"is_active"`
	SessionID       null.Val[int]     `json:"session_id"`
	CarID           string            `json:"car_id"`
	TrackID         string            `json:"track_id"`
	StartTime       string            `json:"start_time"`
	TrialsCompleted int               `json:"trials_completed"`
	TrialsPending   int               `json:"trials_pending"`
	BestScore       null.Val[float64] `json:"best_score"`
	BestSetupID     null.Val[int]     `json:"best_setup_id"`
}

//nolint:tagliatelle // api compatibility
type StartOptimizationRequest struct {
	CarID   string `json:"car_id"`
	TrackID string `json:"track_id"`
}

//nolint:tagliatelle // api compatibility
type OptimizationResult struct {
	Success   bool          `json:"success"`
	SessionID null.Val[int] `json:"session_id"`
	Message   string        `json:"message"`
	Error     string        `json:"error"`
}
