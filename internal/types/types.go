package types

import "time"

type Event struct {
	Type    string         `json:"type"`
	Ts      time.Time      `json:"timestamp"`
	Payload map[string]any `json:"payload,omitempty"`
}

type Session struct {
	ID          string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
	Status      string    `json:"status"` // created, active, ended
	WorkerToken string    `json:"worker_token,omitempty"`

	LastUtterance   string     `json:"last_utterance,omitempty"`
	LastUtteranceAt *time.Time `json:"last_utterance_at,omitempty"`
}
