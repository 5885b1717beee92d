// Package shared holds the error taxonomy common to the matching engine packages.
package shared

import "errors"

var (
	// ErrPhaseNotOpen indicates apply/cancel attempted outside the OPEN phase.
	ErrPhaseNotOpen = errors.New("matching: application window is not open")
	// ErrAlreadyApplied indicates a live application already exists for the round.
	ErrAlreadyApplied = errors.New("matching: already applied for this round")
	// ErrNoActiveApplication indicates cancel without a live application.
	ErrNoActiveApplication = errors.New("matching: no active application")
	// ErrCooldownActive indicates reapplication before the cancel cooldown elapsed.
	ErrCooldownActive = errors.New("matching: reapplication cooldown active")
	// ErrInsufficientStars indicates the star balance cannot cover the apply cost.
	ErrInsufficientStars = errors.New("matching: insufficient stars")
	// ErrNoActiveRound indicates no round is configured for the requested instant.
	ErrNoActiveRound = errors.New("matching: no active round")
	// ErrPairingNotYetRun indicates a result was requested before pairing executed.
	ErrPairingNotYetRun = errors.New("matching: pairing has not run for this round")
	// ErrInvalidPeriod indicates a round whose timestamps fail validation.
	ErrInvalidPeriod = errors.New("matching: invalid round configuration")
	// ErrTransient indicates a storage failure that survived the internal retry.
	// It must never be interpreted as any of the business errors above.
	ErrTransient = errors.New("matching: transient storage failure")
)
