// Package storage defines persistence for keywords, lexicon records and postings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/jobnorm/internal/models"
)

// ErrNotFound is returned, wrapped with the requested id, when a record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines keyword, lexicon and posting persistence operations.
type Storage interface {
	// Keyword operations. The empty keyword is implicit and never stored.
	AddKeywords(ctx context.Context, keywords []string) (int, error)
	ListKeywords(ctx context.Context) ([]string, error)

	// Lexicon snapshot: the records and the keyword set they were computed against.
	SaveLexicon(ctx context.Context, keywords []string, entries []models.LexiconEntry) error
	LoadLexicon(ctx context.Context) ([]string, []models.LexiconEntry, error)

	// Posting operations
	CreatePosting(ctx context.Context, p *models.Posting) error
	BatchCreatePostings(ctx context.Context, ps []*models.Posting) error
	GetPosting(ctx context.Context, id string) (*models.Posting, error)
	ListPostings(ctx context.Context, offset, limit int) ([]*models.Posting, error)
	DeletePosting(ctx context.Context, id string) error

	// Stats
	CountPostings(ctx context.Context) (int64, error)
	CountKeywords(ctx context.Context) (int64, error)
	CountWords(ctx context.Context) (int64, error)

	Close() error
}
