// internal/lobby/errors.go
package lobby

import (
	"errors"
	"strings"
)

// Error taxonomy for registry operations. Handlers map these onto HTTP
// statuses; the websocket layer maps them onto error events or close codes.
var (
	// ErrNotFound: the named lobby or player does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNameConflict: duplicate lobby name, or duplicate player name within
	// a lobby (case-sensitive).
	ErrNameConflict = errors.New("name conflict")

	// ErrForbidden: host-only action attempted without a valid host token.
	ErrForbidden = errors.New("forbidden")

	// ErrPreconditionFailed: operation not valid in the lobby's current state
	// (start without quorum/readiness, join while a game runs, lobby full).
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrRateLimited: action arrived faster than the allowed minimum
	// interval. Never surfaced to clients; such actions are silently dropped.
	ErrRateLimited = errors.New("rate limited")

	// ErrPlayerRemoved: the player was removed from the lobby and may not
	// reconnect under that name.
	ErrPlayerRemoved = errors.New("player removed")

	// ErrInvalidName: name fails validation (empty, too long, or reserved).
	ErrInvalidName = errors.New("invalid name")
)

// reservedNames may not be used as lobby or player names.
var reservedNames = map[string]bool{
	"admin":  true,
	"host":   true,
	"server": true,
	"bot":    true,
}

// ValidateName checks a lobby or player name: non-blank, at most 20
// characters, not a reserved word (case-insensitive).
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > 20 {
		return ErrInvalidName
	}
	if reservedNames[strings.ToLower(name)] {
		return ErrInvalidName
	}
	return nil
}
