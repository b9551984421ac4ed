// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists users, conversation threads, agent settings and the
// interaction log. Every backend satisfies the same Store contract.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for missing records and for records owned by another user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key (user email) already exists.
	ErrConflict = errors.New("already exists")
	// ErrClosed is returned by Ping after Close.
	ErrClosed = errors.New("store closed")
)

// Store is the persistence contract shared by the memory, sqlite and badger backends.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListThreads returns the user's threads, most recently updated first.
	ListThreads(ctx context.Context, userID string) ([]Thread, error)
	CreateThread(ctx context.Context, userID string) (*Thread, error)
	GetThread(ctx context.Context, userID, id string) (*Thread, error)
	// UpdateThread replaces the history and bumps UpdatedAt. nil history is stored as empty.
	UpdateThread(ctx context.Context, userID, id string, history []HistoryItem) (*Thread, error)
	// AppendHistory atomically appends one exchange and bumps UpdatedAt.
	AppendHistory(ctx context.Context, userID, id string, item HistoryItem) (*Thread, error)
	DeleteThread(ctx context.Context, userID, id string) error

	// GetSettings returns ErrNotFound when the user never saved settings.
	GetSettings(ctx context.Context, userID string) (*Settings, error)
	PutSettings(ctx context.Context, s *Settings) error

	LogInteraction(ctx context.Context, in Interaction) error
	// ListInteractions returns up to limit entries, newest first.
	ListInteractions(ctx context.Context, limit int) ([]Interaction, error)
	// ListUserInteractions is ListInteractions restricted to one user.
	ListUserInteractions(ctx context.Context, userID string, limit int) ([]Interaction, error)

	Ping(ctx context.Context) error
	Close() error
}

// User is an account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// File is an attachment sent with a query.
type File struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// HistoryItem is one question/answer exchange.
type HistoryItem struct {
	Query    string    `json:"query"`
	Files    []File    `json:"files"`
	Response string    `json:"response"`
	Date     time.Time `json:"date"`
}

// Thread is a conversation owned by one user.
type Thread struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId,omitempty"`
	History   []HistoryItem `json:"history"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Interaction is one entry of the generate audit trail.
type Interaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	IP        string    `json:"ip"`
	Question  string    `json:"question"`
	Sent      bool      `json:"sent"`
	Timestamp time.Time `json:"timestamp"`
}

// normalizeHistory guarantees non-nil slices so JSON renders [] rather than null.
func normalizeHistory(h []HistoryItem) []HistoryItem {
	out := make([]HistoryItem, len(h))
	for i, item := range h {
		files := make([]File, len(item.Files))
		copy(files, item.Files)
		item.Files = files
		out[i] = item
	}
	return out
}

func cloneThread(t *Thread) *Thread {
	c := *t
	c.History = normalizeHistory(t.History)
	return &c
}
