package metadata

import "context"

// Backend persists records keyed by artifact path.
//
// Update applies fn to the current record of path (empty when absent) and
// persists the result as one read-modify-write; concurrent updates of
// different keys on the same artifact must all survive.
type Backend interface {
	Load(ctx context.Context, path string) (Record, bool, error)
	Update(ctx context.Context, path string, fn func(Record) error) error
	Migrate(ctx context.Context, from, to string) error
	Close() error
}
