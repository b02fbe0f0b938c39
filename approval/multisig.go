package approval

import (
	"fmt"

	"ledgerkit/access"
	"ledgerkit/types"
)

// MultisigState accumulates the accounts that approved a request.
type MultisigState struct {
	ApprovedBy []types.Address
}

// MultisigConfig approves a request once a threshold of role holders have
// signed it. Role membership is re-validated at execution eligibility time,
// so revoking a signer's role invalidates their standing approval.
type MultisigConfig struct {
	roles     *access.Roles
	role      string
	threshold int
}

// NewMultisigConfig creates a threshold policy over holders of role.
func NewMultisigConfig(roles *access.Roles, role string, threshold int) *MultisigConfig {
	return &MultisigConfig{roles: roles, role: role, threshold: threshold}
}

// IsAccountAuthorized implements the Configuration interface.
func (c *MultisigConfig) IsAccountAuthorized(account types.Address, _ *Request[MultisigState]) error {
	ok, err := c.roles.Has(c.role, account)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account is missing %q role", c.role)
	}
	return nil
}

// TryApprove implements the Configuration interface.
func (c *MultisigConfig) TryApprove(account types.Address, r *Request[MultisigState]) error {
	for _, a := range r.State.ApprovedBy {
		if a == account {
			return fmt.Errorf("already approved by account")
		}
	}
	r.State.ApprovedBy = append(r.State.ApprovedBy, account)
	return nil
}

// IsApprovedForExecution implements the Configuration interface. Only
// approvals from accounts that still hold the role count toward the
// threshold.
func (c *MultisigConfig) IsApprovedForExecution(r *Request[MultisigState]) error {
	valid := 0
	for _, a := range r.State.ApprovedBy {
		ok, err := c.roles.Has(c.role, a)
		if err != nil {
			return err
		}
		if ok {
			valid++
		}
	}
	if valid < c.threshold {
		return fmt.Errorf("insufficient signatures: %d of %d", valid, c.threshold)
	}
	return nil
}

// IsRemovable implements the Configuration interface. Requests are removable
// at any time by an authorized account.
func (c *MultisigConfig) IsRemovable(*Request[MultisigState]) error { return nil }
