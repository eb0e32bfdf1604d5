// Package store holds job records and registered faces.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/autovideo/api/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// JobStore persists job records. Implementations never hand out memory that the
// caller can mutate behind the store's back.
type JobStore interface {
	Save(ctx context.Context, job *model.JobRecord) error
	Get(ctx context.Context, id string) (*model.JobRecord, error)
	List(ctx context.Context) ([]*model.JobRecord, error)
	Update(ctx context.Context, job *model.JobRecord) error
	Clear(ctx context.Context) error
}

// sortRecent orders jobs newest first. Jobs created at the same instant keep a
// deterministic order by id.
func sortRecent(jobs []*model.JobRecord) {
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i], jobs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
