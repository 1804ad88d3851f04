package model

import "time"

// Override is a human correction pinned to one serial. Every correction of the
// same serial is stored as a new version that supersedes the previous one.
type Override struct {
	Outcome `yaml:",inline"`

	ID         string    `json:"id,omitempty" yaml:"id,omitempty"`
	Serial     string    `json:"serial" yaml:"serial"`
	Version    int       `json:"version,omitempty" yaml:"version,omitempty"`
	Supersedes string    `json:"supersedes,omitempty" yaml:"supersedes,omitempty"`
	ChatID     string    `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// ChatEntry holds the most recent serial a chat submitted and what was
// predicted for it. A later correction from the chat applies to LastSerial.
type ChatEntry struct {
	Outcome `yaml:",inline"`

	ChatID     string    `json:"chat_id" yaml:"chat_id"`
	LastSerial string    `json:"last_serial" yaml:"last_serial"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}
