package access

import (
	"errors"

	"ledgerkit/slot"
)

// ErrPaused is returned by the unpaused gate while the service is paused.
var ErrPaused = errors.New("access: contract paused")

const fieldPausedFlag = 0x01

// Pause is a service-wide pause flag, default false. Setting it is typically
// gated by owner or role.
type Pause struct {
	root slot.Slot
}

// NewPause creates a pause flag rooted at the given slot.
func NewPause(root slot.Slot) *Pause {
	return &Pause{root: root}
}

// Paused reports the current flag value.
func (p *Pause) Paused() (bool, error) {
	var paused bool
	ok, err := p.root.Field(fieldPausedFlag).Read(&paused)
	if err != nil || !ok {
		return false, err
	}
	return paused, nil
}

// Set updates the flag.
func (p *Pause) Set(paused bool) error {
	return p.root.Field(fieldPausedFlag).Write(paused)
}

// RequireUnpaused fails with ErrPaused while the flag is set.
func (p *Pause) RequireUnpaused() error {
	paused, err := p.Paused()
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}

// Gate adapts RequireUnpaused into a hook usable with any argument type.
func Gate[A any](p *Pause) func(A) error {
	return func(A) error { return p.RequireUnpaused() }
}
