// Package audit keeps an in-memory trail of security-relevant server
// actions: token exchange, knowledge base reloads, snapshots and rejected
// requests.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action types for audit events
type Action string

const (
	ActionIssueToken Action = "issue_token"
	ActionReload     Action = "reload"
	ActionSnapshot   Action = "snapshot"
	ActionAuth       Action = "auth"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceKnowledgeBase ResourceType = "knowledge_base"
	ResourceToken         ResourceType = "token"
	ResourceEndpoint      ResourceType = "endpoint"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// DefaultBufferSize is the number of events kept when no size is given.
const DefaultBufferSize = 1000

// Event represents a single audit log entry
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Subject      string         `json:"subject,omitempty"`
	Role         string         `json:"role,omitempty"`
	Action       Action         `json:"action"`
	ResourceType ResourceType   `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Status       Status         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Filter represents filtering criteria for audit events. Zero fields match
// everything.
type Filter struct {
	Subject      string
	Action       Action
	ResourceType ResourceType
	Status       Status
	StartTime    *time.Time
	EndTime      *time.Time
}

// Matches reports whether e passes every set criterion.
func (f *Filter) Matches(e *Event) bool {
	if f == nil {
		return true
	}
	switch {
	case f.Subject != "" && e.Subject != f.Subject:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.ResourceType != "" && e.ResourceType != f.ResourceType:
		return false
	case f.Status != "" && e.Status != f.Status:
		return false
	case f.StartTime != nil && e.Timestamp.Before(*f.StartTime):
		return false
	case f.EndTime != nil && e.Timestamp.After(*f.EndTime):
		return false
	}
	return true
}

// Logger is the interface for audit logging implementations.
type Logger interface {
	Log(event *Event) error
	GetEventCount() int64
}

// AuditLogger manages audit log events with a circular buffer
type AuditLogger struct {
	events     []*Event
	bufferSize int
	index      int
	count      int
	total      int64
	mu         sync.RWMutex
}

// NewAuditLogger creates a logger keeping the last bufferSize events.
func NewAuditLogger(bufferSize int) *AuditLogger {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &AuditLogger{
		events:     make([]*Event, bufferSize),
		bufferSize: bufferSize,
	}
}

// Log records an audit event, overwriting the oldest once the buffer is full.
func (l *AuditLogger) Log(event *Event) error {
	if event == nil {
		return fmt.Errorf("audit: nil event")
	}
	if event.Action == "" {
		return fmt.Errorf("audit: event action is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Status == "" {
		event.Status = StatusSuccess
	}

	l.events[l.index] = event
	l.index = (l.index + 1) % l.bufferSize
	if l.count < l.bufferSize {
		l.count++
	}
	l.total++
	return nil
}

// GetEvents returns stored events matching filter, oldest first.
func (l *AuditLogger) GetEvents(filter *Filter) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Event, 0, l.count)
	for i := 0; i < l.count; i++ {
		idx := (l.index - l.count + i + l.bufferSize) % l.bufferSize
		if event := l.events[idx]; event != nil && filter.Matches(event) {
			result = append(result, event)
		}
	}
	return result
}

// GetRecentEvents returns the N most recent events, newest first.
func (l *AuditLogger) GetRecentEvents(n int) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > l.count {
		n = l.count
	}
	result := make([]*Event, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.index - 1 - i + l.bufferSize) % l.bufferSize
		if l.events[idx] != nil {
			result = append(result, l.events[idx])
		}
	}
	return result
}

// GetEventCount returns the number of events currently stored.
func (l *AuditLogger) GetEventCount() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(l.count)
}

// TotalLogged counts every event ever logged, including overwritten ones.
func (l *AuditLogger) TotalLogged() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Clear removes all events from the logger
func (l *AuditLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = make([]*Event, l.bufferSize)
	l.index = 0
	l.count = 0
}

// NewEvent creates a successful event.
func NewEvent(subject, role string, action Action, resourceType ResourceType, resourceID string) *Event {
	return &Event{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		Subject:      subject,
		Role:         role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       StatusSuccess,
	}
}

// NewFailedEvent creates a failed event carrying err's message.
func NewFailedEvent(subject string, action Action, resourceType ResourceType, err error) *Event {
	e := &Event{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		Subject:      subject,
		Action:       action,
		ResourceType: resourceType,
		Status:       StatusFailure,
	}
	if err != nil {
		e.ErrorMessage = err.Error()
	}
	return e
}

// String returns a human-readable representation of an event
func (e *Event) String() string {
	subject := e.Subject
	if subject == "" {
		subject = "anonymous"
	}
	s := fmt.Sprintf("[%s] %s %s %s", e.Timestamp.Format(time.RFC3339), subject, e.Action, e.ResourceType)
	if e.ResourceID != "" {
		s += " " + e.ResourceID
	}
	s += fmt.Sprintf(" (status: %s)", e.Status)
	if e.ErrorMessage != "" {
		s += ": " + e.ErrorMessage
	}
	return s
}
