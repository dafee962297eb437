package domain

import "time"

// ConversationEntry is a persisted message of a project's history.
type ConversationEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Project is the durable state of a modeling session. The SCAD text is the
// source of truth; the scene is rebuilt from it on every run.
type Project struct {
	ID        string              `json:"id"`
	SCAD      string              `json:"scad"`
	STL       string              `json:"stl,omitempty"`
	History   []ConversationEntry `json:"history,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Clone returns a copy that shares nothing mutable with p.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.History = append([]ConversationEntry(nil), p.History...)
	return &out
}
