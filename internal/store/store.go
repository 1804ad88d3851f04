// Package store persists overrides and per-chat history.
//
// Two maps live behind one Store: serial -> override outcome, and
// chat ID -> last submitted serial. Every write is durable before the call
// returns.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/wingo/internal/model"
)

// ErrNotFound is returned when a serial or chat has no entry.
var ErrNotFound = errors.New("not found")

// OverrideParams holds parameters for recording a correction.
type OverrideParams struct {
	Serial string
	model.Outcome
	ChatID string // chat that sent the correction, informational
}

// ChatParams holds parameters for recording a chat's latest serial.
type ChatParams struct {
	ChatID string
	Serial string
	model.Outcome
}

// ListParams holds parameters for listing overrides.
type ListParams struct {
	Prefix string
	Limit  int
}

// Store defines the override and chat history storage interface.
type Store interface {
	// GetOverride returns the current override for serial, or ErrNotFound.
	GetOverride(ctx context.Context, serial string) (*model.Override, error)

	// PutOverride stores a correction for serial, replacing any previous one.
	PutOverride(ctx context.Context, p OverrideParams) (*model.Override, error)

	// ListOverrides lists current overrides, one per serial.
	ListOverrides(ctx context.Context, p ListParams) ([]model.Override, error)

	// GetChat returns the chat's latest serial, or ErrNotFound.
	GetChat(ctx context.Context, chatID string) (*model.ChatEntry, error)

	// PutChat records serial as the chat's latest submission.
	PutChat(ctx context.Context, p ChatParams) (*model.ChatEntry, error)

	// Close closes the store.
	Close() error
}

// Backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string // sqlite database file, or file backend directory
	DSN     string // postgres connection string
	Format  string // file backend document format: json or yaml
	Logger  *zap.Logger
}

// Open creates the backing storage if it does not exist and loads it
// otherwise.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		return NewSQLiteStore(opts.Path)
	case BackendPostgres:
		return NewPostgresStore(opts.DSN)
	case BackendFile:
		return NewFileStore(opts.Path, opts.Format, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q (valid: sqlite, postgres, file)", opts.Backend)
	}
}

func validateOverride(p OverrideParams) error {
	if p.Serial == "" {
		return errors.New("serial is required")
	}
	return validateOutcome(p.Outcome)
}

func validateChat(p ChatParams) error {
	if p.ChatID == "" {
		return errors.New("chat id is required")
	}
	if p.Serial == "" {
		return errors.New("serial is required")
	}
	return validateOutcome(p.Outcome)
}

func validateOutcome(o model.Outcome) error {
	if !model.ValidColors[o.Color] {
		return fmt.Errorf("invalid color %q", o.Color)
	}
	if !model.ValidSizes[o.Size] {
		return fmt.Errorf("invalid size %q", o.Size)
	}
	return nil
}
