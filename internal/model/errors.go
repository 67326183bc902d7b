package model

import "github.com/rotisserie/eris"

// Error kinds. Only ErrMalformedInput aborts an evaluation; the rest are
// contained to the requirement or question they occur in.
var (
	ErrMissingCapability    = eris.New("missing capability")
	ErrTypeMismatch         = eris.New("type mismatch")
	ErrMalformedRequirement = eris.New("malformed requirement")
	ErrAIProvider           = eris.New("ai provider failure")
	ErrMalformedInput       = eris.New("malformed input")
)
