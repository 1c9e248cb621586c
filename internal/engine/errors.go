package engine

import "errors"

var (
	// ErrUnauthorized indicates the authorization gate denied the move.
	ErrUnauthorized = errors.New("actor not authorized for this transition")

	// ErrInvalidStage indicates the target stage is not in the stage graph.
	ErrInvalidStage = errors.New("unknown target stage")

	// ErrNoNextStage indicates the unit's current stage is terminal for
	// automatic advancement.
	ErrNoNextStage = errors.New("no next stage")

	// ErrUnknownRole indicates the actor's role is not recognized.
	ErrUnknownRole = errors.New("unknown role")

	// ErrUnknownVendor indicates a vendor identifier outside the catalog.
	ErrUnknownVendor = errors.New("unknown vendor")

	// ErrInvalidPriority indicates an unrecognized priority flag.
	ErrInvalidPriority = errors.New("unknown priority flag")

	// ErrInvalidNoteCategory indicates an unrecognized note category.
	ErrInvalidNoteCategory = errors.New("unknown note category")
)
