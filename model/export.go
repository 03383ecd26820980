package model

import "time"

// ExportError is a per-post failure recorded in summary.json
type ExportError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// ExportSummary describes the outcome of one export run
type ExportSummary struct {
	TotalPosts int           `json:"totalPosts"`
	Processed  int           `json:"processed"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Errors     []ExportError `json:"errors"`
}

// ExportCompleted is published once an export archive has been written
type ExportCompleted struct {
	RunID      string        `json:"runId"`
	Kind       string        `json:"kind"`
	Start      string        `json:"start"`
	End        string        `json:"end"`
	Summary    ExportSummary `json:"summary"`
	Duration   float64       `json:"durationSeconds"`
	FinishedAt time.Time     `json:"finishedAt"`
}
