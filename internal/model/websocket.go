package model

// WebSocket message types
const (
	WSMessageTypeJob  = "job"
	WSMessageTypePing = "ping"
	WSMessageTypePong = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSJobMessage carries a job snapshot after each persist
type WSJobMessage struct {
	Type  string     `json:"type"`
	JobID string     `json:"jobId"`
	Job   *JobRecord `json:"job"`
}
