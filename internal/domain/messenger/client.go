package messenger

import (
	"context"
	"fmt"
)

// State is the lifecycle of a messaging transport session.
type State string

const (
	StateAuthenticating State = "AUTHENTICATING"
	StateReady          State = "READY"
)

// Group is a resolved destination chat.
type Group struct {
	ID    int64
	Title string
}

// Client defines the messaging transport used to deliver license alerts.
// This decouples the notification pipeline from the specific bot library.
type Client interface {
	// Ready is closed once the transport may be used.
	Ready() <-chan struct{}
	State() State
	FindGroup(ctx context.Context, name string) (Group, error)
	Send(ctx context.Context, group Group, text string) error
}

// GroupNotFoundError is returned when the configured destination cannot be resolved.
type GroupNotFoundError struct {
	Name string
}

func (e *GroupNotFoundError) Error() string {
	return fmt.Sprintf("group not found: %s", e.Name)
}

// SendError reports a single message the transport failed to deliver.
type SendError struct {
	Destination string
	Err         error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send message to %s: %v", e.Destination, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
