// Package access provides the owner, role, and pause primitives that hook
// pipelines typically enforce.
package access

import (
	"errors"
	"fmt"

	"ledgerkit/events"
	"ledgerkit/slot"
	"ledgerkit/types"
)

var (
	// ErrNotOwner is returned when a gate requires the current owner and the
	// caller is someone else (or ownership has been renounced).
	ErrNotOwner = errors.New("access: caller is not the owner")
	// ErrNotProposed is returned when acceptance is attempted by an account
	// other than the proposed owner.
	ErrNotProposed = errors.New("access: caller is not the proposed owner")
)

const (
	fieldCurrentOwner  = 0x01
	fieldProposedOwner = 0x02
)

// Owner tracks a single privileged account with two-phase transfer. The
// two-phase handoff exists to prevent irrecoverable loss of control from a
// mistyped or inaccessible target; a one-step transfer is deliberately not
// offered.
type Owner struct {
	root    slot.Slot
	emitter events.Emitter
}

// NewOwner creates an owner component rooted at the given slot.
func NewOwner(root slot.Slot) *Owner {
	return &Owner{root: root, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (o *Owner) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		o.emitter = events.NoopEmitter{}
		return
	}
	o.emitter = emitter
}

// Init sets the initial owner. It fails if an owner is already set.
func (o *Owner) Init(owner types.Address) error {
	cur := o.root.Field(fieldCurrentOwner)
	exists, err := cur.Exists()
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("access: owner already initialized")
	}
	return cur.Write(owner)
}

// Current returns the current owner, if any.
func (o *Owner) Current() (types.Address, bool, error) {
	var owner types.Address
	ok, err := o.root.Field(fieldCurrentOwner).Read(&owner)
	return owner, ok, err
}

// Proposed returns the proposed owner, if any.
func (o *Owner) Proposed() (types.Address, bool, error) {
	var proposed types.Address
	ok, err := o.root.Field(fieldProposedOwner).Read(&proposed)
	return proposed, ok, err
}

// RequireOwner fails with ErrNotOwner unless caller is the current owner.
func (o *Owner) RequireOwner(caller types.Address) error {
	owner, ok, err := o.Current()
	if err != nil {
		return err
	}
	if !ok || owner != caller {
		return ErrNotOwner
	}
	return nil
}

// Propose records newOwner as the proposed owner, or clears the proposal when
// newOwner is nil. Only the current owner may propose.
func (o *Owner) Propose(caller types.Address, newOwner *types.Address) error {
	if err := o.RequireOwner(caller); err != nil {
		return err
	}
	proposed := o.root.Field(fieldProposedOwner)
	if newOwner == nil {
		if err := proposed.Remove(); err != nil {
			return err
		}
		o.emitter.Emit(ProposeOwner{Current: caller})
		return nil
	}
	if err := proposed.Write(*newOwner); err != nil {
		return err
	}
	o.emitter.Emit(ProposeOwner{Current: caller, Proposed: newOwner})
	return nil
}

// Accept atomically swaps the proposed owner into current owner and clears
// the proposal. Only the proposed owner may accept.
func (o *Owner) Accept(caller types.Address) error {
	proposed, ok, err := o.Proposed()
	if err != nil {
		return err
	}
	if !ok || proposed != caller {
		return ErrNotProposed
	}
	old, _, err := o.Current()
	if err != nil {
		return err
	}
	if err := o.root.Field(fieldCurrentOwner).Write(caller); err != nil {
		return err
	}
	if err := o.root.Field(fieldProposedOwner).Remove(); err != nil {
		return err
	}
	o.emitter.Emit(TransferOwner{Old: old, New: caller})
	return nil
}

// Renounce clears the current owner. Irreversible: gates requiring an owner
// fail forever after. Only the current owner may renounce.
func (o *Owner) Renounce(caller types.Address) error {
	if err := o.RequireOwner(caller); err != nil {
		return err
	}
	if err := o.root.Field(fieldCurrentOwner).Remove(); err != nil {
		return err
	}
	if err := o.root.Field(fieldProposedOwner).Remove(); err != nil {
		return err
	}
	o.emitter.Emit(TransferOwner{Old: caller})
	return nil
}
