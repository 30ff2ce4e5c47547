package magnet

import "errors"

// Domain errors for world and solver operations.
var (
	// ErrInvalidParams indicates a solver parameter outside its valid range.
	ErrInvalidParams = errors.New("magnet: invalid solver parameters")

	// ErrStaleHandle indicates a body or pole handle whose slot was freed.
	ErrStaleHandle = errors.New("magnet: stale or unknown handle")

	// ErrInvalidPole indicates a pole with an out-of-range attribute.
	ErrInvalidPole = errors.New("magnet: invalid pole")

	// ErrInvalidBody indicates a body with non-positive mass or inertia.
	ErrInvalidBody = errors.New("magnet: invalid body")
)
