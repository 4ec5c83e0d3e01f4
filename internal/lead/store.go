package lead

import "context"

// Store defines lead operations used by the API.
type Store interface {
	Create(ctx context.Context, l Lead) (Lead, error)
	Get(ctx context.Context, id string) (Lead, error)

	// List returns up to limit leads with Sequence > afterSeq, oldest first,
	// plus the last sequence seen for cursor pagination.
	List(ctx context.Context, limit int, afterSeq uint64) ([]Lead, uint64, error)

	// SetPitchGenerated flags that a pitch was produced for the lead.
	// Callers treat failures as best-effort.
	SetPitchGenerated(ctx context.Context, id string) error
}
