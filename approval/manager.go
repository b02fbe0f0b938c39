// Package approval queues encoded actions for execution once a pluggable
// approval policy is satisfied. Typical use is a multisig of role holders
// guarding privileged ledger operations.
package approval

import (
	"encoding/binary"
	"errors"
	"fmt"

	"ledgerkit/slot"
	"ledgerkit/types"
)

var (
	// ErrRequestNotFound is returned when a request id has no pending
	// request.
	ErrRequestNotFound = errors.New("approval: request not found")
	// ErrUnauthorized wraps a configuration's authorization rejection.
	ErrUnauthorized = errors.New("approval: account not authorized")
	// ErrNotApproved wraps a configuration's execution-eligibility
	// rejection.
	ErrNotApproved = errors.New("approval: request not approved")
	// ErrNotRemovable wraps a configuration's removal rejection.
	ErrNotRemovable = errors.New("approval: request not removable")
)

const (
	fieldNextRequestID = 0x01
	fieldRequests      = 0x02
)

// Request pairs an encoded action with its approval state.
type Request[S any] struct {
	Action []byte
	State  S
}

// Configuration defines the operating parameters for a Manager and performs
// approvals.
type Configuration[S any] interface {
	// IsAccountAuthorized reports whether the account may create, approve,
	// execute, or remove requests.
	IsAccountAuthorized(account types.Address, r *Request[S]) error
	// TryApprove mutates the request state in place to record the account's
	// approval.
	TryApprove(account types.Address, r *Request[S]) error
	// IsApprovedForExecution reports whether the request has reached full
	// approval.
	IsApprovedForExecution(r *Request[S]) error
	// IsRemovable reports whether the request may be removed.
	IsRemovable(r *Request[S]) error
}

// Executor runs an approved encoded action and returns its result.
type Executor func(action []byte) ([]byte, error)

// Manager is a collection of pending action requests. Requests are deleted
// after execution; a stored counter keeps ids unique.
type Manager[S any] struct {
	root   slot.Slot
	config Configuration[S]
	exec   Executor
}

// NewManager creates a manager rooted at the given slot.
func NewManager[S any](root slot.Slot, config Configuration[S], exec Executor) *Manager[S] {
	return &Manager[S]{root: root, config: config, exec: exec}
}

func (m *Manager[S]) requestSlot(id uint32) slot.Slot {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], id)
	return m.root.Field(fieldRequests).Sub(key[:])
}

// Get returns a pending request by id.
func (m *Manager[S]) Get(id uint32) (*Request[S], bool, error) {
	req := new(Request[S])
	ok, err := m.requestSlot(id).Read(req)
	if err != nil || !ok {
		return nil, false, err
	}
	return req, true, nil
}

// Create stores a new request with the given initial approval state and
// returns its id.
func (m *Manager[S]) Create(caller types.Address, action []byte, state S) (uint32, error) {
	req := &Request[S]{Action: action, State: state}
	if err := m.config.IsAccountAuthorized(caller, req); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	var id uint32
	if _, err := m.root.Field(fieldNextRequestID).Read(&id); err != nil {
		return 0, err
	}
	if err := m.root.Field(fieldNextRequestID).Write(id + 1); err != nil {
		return 0, err
	}
	if err := m.requestSlot(id).Write(req); err != nil {
		return 0, err
	}
	return id, nil
}

// Approve records the caller's approval on the request.
func (m *Manager[S]) Approve(caller types.Address, id uint32) error {
	req, ok, err := m.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRequestNotFound
	}
	if err := m.config.IsAccountAuthorized(caller, req); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if err := m.config.TryApprove(caller, req); err != nil {
		return err
	}
	return m.requestSlot(id).Write(req)
}

// IsApprovedForExecution reports whether the request would execute if an
// authorized account initiated it.
func (m *Manager[S]) IsApprovedForExecution(id uint32) error {
	req, ok, err := m.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRequestNotFound
	}
	if err := m.config.IsApprovedForExecution(req); err != nil {
		return fmt.Errorf("%w: %v", ErrNotApproved, err)
	}
	return nil
}

// Execute runs an approved request and removes it from the collection.
func (m *Manager[S]) Execute(caller types.Address, id uint32) ([]byte, error) {
	req, ok, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRequestNotFound
	}
	if err := m.config.IsApprovedForExecution(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotApproved, err)
	}
	if err := m.config.IsAccountAuthorized(caller, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	result, err := m.exec(req.Action)
	if err != nil {
		return nil, err
	}
	return result, m.requestSlot(id).Remove()
}

// Remove deletes a pending request without executing it.
func (m *Manager[S]) Remove(caller types.Address, id uint32) error {
	req, ok, err := m.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRequestNotFound
	}
	if err := m.config.IsRemovable(req); err != nil {
		return fmt.Errorf("%w: %v", ErrNotRemovable, err)
	}
	if err := m.config.IsAccountAuthorized(caller, req); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return m.requestSlot(id).Remove()
}
