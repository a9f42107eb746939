// Package jobstore keeps a local history of submitted transcription jobs.
//
// The remote service only lists jobs that still exist; the history keeps the
// source path or URL of every job the CLI submitted so it can be found
// again after the job is deleted or the file is renamed. Records are msgpack
// encoded under the "job:" key prefix.
package jobstore

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when no record exists for an id.
var ErrNotFound = errors.New("jobstore: not found")

const keyPrefix = "job:"

// Record is one submitted job.
type Record struct {
	ID        string    `msgpack:"id" json:"id"`
	Source    string    `msgpack:"source" json:"source"`
	FileID    string    `msgpack:"file_id,omitempty" json:"file_id,omitempty"`
	Model     string    `msgpack:"model" json:"model"`
	Status    string    `msgpack:"status" json:"status"`
	Error     string    `msgpack:"error,omitempty" json:"error,omitempty"`
	CreatedAt time.Time `msgpack:"created_at" json:"created_at"`
	UpdatedAt time.Time `msgpack:"updated_at" json:"updated_at"`
}

// Store is a job history.
type Store interface {
	// Put inserts or replaces the record with r.ID.
	Put(ctx context.Context, r *Record) error

	// Get returns ErrNotFound when the id is unknown.
	Get(ctx context.Context, id string) (*Record, error)

	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error

	// List returns records newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*Record, error)

	Close() error
}

func recordKey(id string) []byte {
	return []byte(keyPrefix + id)
}

func encode(r *Record) ([]byte, error) {
	if r.ID == "" {
		return nil, errors.New("jobstore: record id is required")
	}
	return msgpack.Marshal(r)
}

func decode(b []byte) (*Record, error) {
	var r Record
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// sortNewest orders records by CreatedAt descending, then ID, and truncates
// to limit.
func sortNewest(recs []*Record, limit int) []*Record {
	slices.SortFunc(recs, func(a, b *Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}
