package access

import (
	"errors"
	"sort"

	"ledgerkit/slot"
	"ledgerkit/types"
)

// ErrMissingRole is returned by a role gate when the caller does not hold the
// required role.
var ErrMissingRole = errors.New("access: caller is missing required role")

const fieldRoleMembers = 0x01

// Roles is a many-to-many registry of account-role memberships. There is no
// role hierarchy; multiple independent roles compose by requiring each
// explicitly.
type Roles struct {
	root slot.Slot
}

// NewRoles creates a role registry rooted at the given slot.
func NewRoles(root slot.Slot) *Roles {
	return &Roles{root: root}
}

func (r *Roles) membersSlot(role string) slot.Slot {
	return r.root.Field(fieldRoleMembers).Sub([]byte(role))
}

func (r *Roles) loadMembers(role string) ([]types.Address, error) {
	var members []types.Address
	if _, err := r.membersSlot(role).Read(&members); err != nil {
		return nil, err
	}
	return members, nil
}

// Grant adds the account to the role. Idempotent.
func (r *Roles) Grant(role string, account types.Address) error {
	members, err := r.loadMembers(role)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m == account {
			return nil
		}
	}
	members = append(members, account)
	sort.Slice(members, func(i, j int) bool {
		return string(members[i][:]) < string(members[j][:])
	})
	return r.membersSlot(role).Write(members)
}

// Revoke removes the account from the role. Idempotent.
func (r *Roles) Revoke(role string, account types.Address) error {
	members, err := r.loadMembers(role)
	if err != nil {
		return err
	}
	kept := members[:0]
	for _, m := range members {
		if m != account {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(members) {
		return nil
	}
	if len(kept) == 0 {
		return r.membersSlot(role).Remove()
	}
	return r.membersSlot(role).Write(kept)
}

// Has reports whether the account holds the role.
func (r *Roles) Has(role string, account types.Address) (bool, error) {
	members, err := r.loadMembers(role)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m == account {
			return true, nil
		}
	}
	return false, nil
}

// Members returns the accounts holding the role, sorted by address bytes.
func (r *Roles) Members(role string) ([]types.Address, error) {
	return r.loadMembers(role)
}

// Require fails with ErrMissingRole unless the caller holds the role.
func (r *Roles) Require(role string, caller types.Address) error {
	ok, err := r.Has(role, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMissingRole
	}
	return nil
}
