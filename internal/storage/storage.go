// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"outage_bot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	UpsertChat(ctx context.Context, chatID int64) error
	ListChats(ctx context.Context) ([]model.Chat, error)
	ChatExists(ctx context.Context, chatID int64) (bool, error)

	AddKeyword(ctx context.Context, chatID int64, keyword string) (bool, error)
	DeleteKeyword(ctx context.Context, chatID int64, keyword string) (bool, error)
	DeleteKeywordByID(ctx context.Context, chatID, id int64) (string, error)
	ListKeywords(ctx context.Context, chatID int64) ([]model.Keyword, error)

	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	HasSent(ctx context.Context, chatID int64, versionKey, fingerprint string) (bool, error)
	MarkSent(ctx context.Context, chatID int64, versionKey, fingerprint, title string) error
	Stats(ctx context.Context) (model.Stats, error)

	Backup(ctx context.Context, path string) error
	Close() error
}
