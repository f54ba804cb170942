package service

// BestEffort is the result of an operation whose failure is tolerated.
// A failed attempt is logged by the service and reported with Applied false;
// callers never receive an error from it.
//
// Operations whose failure the caller must see return (T, error) instead.
type BestEffort[T any] struct {
	Value   T
	Applied bool
}

func applied[T any](v T) BestEffort[T] {
	return BestEffort[T]{Value: v, Applied: true}
}
