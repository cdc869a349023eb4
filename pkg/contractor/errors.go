package contractor

import "errors"

var (
	// ErrVertexNotFound is returned when a vertex that must be in the index is missing.
	ErrVertexNotFound = errors.New("vertex not found in index")
	// ErrScoreboardDesync is returned when a vertex popped from the priority queue has no score.
	ErrScoreboardDesync = errors.New("priority queue and scoreboard out of sync")
	// ErrInvalidShortcut is returned for a shortcut whose edges do not meet or are unknown.
	ErrInvalidShortcut = errors.New("invalid shortcut")
)
