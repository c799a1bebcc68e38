package domain

import "errors"

// Sentinel errors shared by the board model, the sync layer and the dev server.
var (
	ErrInvalidDimension       = errors.New("domain: invalid dimension")
	ErrSnapshotLengthMismatch = errors.New("domain: snapshot length mismatch")
	ErrUnknownColorCode       = errors.New("domain: unknown color code")
	ErrOutOfBounds            = errors.New("domain: out of bounds")
	ErrMalformedUpdate        = errors.New("domain: malformed update")
	ErrNetwork                = errors.New("domain: network error")
	ErrHTTPStatus             = errors.New("domain: unexpected http status")
	ErrCooldown               = errors.New("domain: cooldown active")
	ErrNoIdentity             = errors.New("domain: no identity")
)
