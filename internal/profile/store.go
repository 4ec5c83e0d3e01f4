package profile

import "context"

// Store defines profile operations used by the API.
type Store interface {
	Create(ctx context.Context, p Profile) (Profile, error)
	Get(ctx context.Context, id string) (Profile, error)

	// ConditionalDecrement subtracts delta from the profile's credits only if
	// the stored value still equals expected, and returns the number of rows
	// affected (0 or 1). A zero result means a concurrent writer got there
	// first; callers decide whether that matters.
	ConditionalDecrement(ctx context.Context, id string, expected, delta int64) (int64, error)

	// ResetFreeCredits sets every non-Pro profile's credits to amount and
	// returns how many profiles were touched.
	ResetFreeCredits(ctx context.Context, amount int64) (int64, error)
}
