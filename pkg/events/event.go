// Package events journals what peers do inside the honeypot: connections,
// credential submissions, shell commands and disconnects.
package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the type of an event.
type Kind string

const (
	KindConnect    Kind = "connect"
	KindLogin      Kind = "login"
	KindCommand    Kind = "command"
	KindDisconnect Kind = "disconnect"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindConnect, KindLogin, KindCommand, KindDisconnect:
		return true
	default:
		return false
	}
}

// Event is a single journal entry. Fields that do not apply to a kind are
// left empty.
type Event struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID  string    `json:"session_id" gorm:"index;size:36;not null"`
	Time       time.Time `json:"time" gorm:"column:occurred_at;index;not null"`
	Kind       Kind      `json:"kind" gorm:"index;size:16;not null"`
	RemoteAddr string    `json:"remote_addr,omitempty" gorm:"size:64"`

	// login. Peer-supplied fields are unbounded text: they are as long as
	// the line limit allows.
	Username string `json:"username,omitempty" gorm:"type:text"`
	Password string `json:"password,omitempty" gorm:"type:text"`
	Success  bool   `json:"success"`

	// command
	Command string `json:"command,omitempty" gorm:"type:text"`
	Line    string `json:"line,omitempty" gorm:"type:text"`
	Path    string `json:"path,omitempty" gorm:"type:text"`

	// disconnect
	Reason     string `json:"reason,omitempty" gorm:"size:255"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// TableName sets the table name used by the SQL backends.
func (Event) TableName() string {
	return "events"
}

// prepare fills in the identifier and timestamp when the producer left them
// empty. Times are stored in UTC. NUL bytes in peer-supplied fields are
// written as the text \x00, which PostgreSQL text columns accept.
func (e *Event) prepare() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.Time = e.Time.UTC()

	for _, f := range []*string{&e.Username, &e.Password, &e.Command, &e.Line, &e.Path} {
		*f = escapeNUL(*f)
	}
}

func escapeNUL(s string) string {
	if !strings.Contains(s, "\x00") {
		return s
	}
	return strings.ReplaceAll(s, "\x00", `\x00`)
}

// Filter narrows a List call. Zero values match everything.
type Filter struct {
	Kind      Kind
	SessionID string
	Since     time.Time
	Limit     int
}

// DefaultListLimit is applied when Filter.Limit is not positive.
const DefaultListLimit = 100

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func (f Filter) match(e *Event) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	return true
}

// Recorder accepts events. Sessions only need this half of a Store.
type Recorder interface {
	Record(ctx context.Context, e *Event) error
}

// Store persists events.
//
// List returns matching events newest first. Purge removes every event and
// reports how many were deleted.
type Store interface {
	Recorder
	List(ctx context.Context, f Filter) ([]Event, error)
	Purge(ctx context.Context) (int, error)
	Healthcheck(ctx context.Context) error
	Close() error
}

var (
	// ErrUnknownStoreType is returned by New for an unsupported store type.
	ErrUnknownStoreType = errors.New("unknown event store type")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("event store closed")
)
