package nonfungible

import (
	"github.com/ethereum/go-ethereum/rlp"

	"ledgerkit/host"
	"ledgerkit/types"
)

// ApproveMethod is the logical operation invoked on an approval target when
// the approval carries a message.
const ApproveMethod = "on_approve"

// ApprovePayload is the argument payload delivered to an approval target.
type ApprovePayload struct {
	TokenID    TokenID
	Owner      types.Address
	ApprovalID uint32
	Msg        string
}

// Approve grants the target account a fresh approval id for the token. Only
// the owner may approve. The returned id supersedes any id previously granted
// to the same account; presenting a superseded id in a transfer is rejected.
// When the approval carries a message and a scheduler is configured, the
// target is notified asynchronously; there is no compensation leg.
func (r *Registry) ApproveAccount(a Approve) (uint32, error) {
	var approvalID uint32
	err := r.approveHooks.Run(a, func() error {
		token, err := r.loadToken(a.TokenID)
		if err != nil {
			return err
		}
		if token.Owner != a.Caller {
			return ErrNotTokenOwner
		}
		approvals, err := r.loadApprovals(a.TokenID)
		if err != nil {
			return err
		}
		approvalID = approvals.NextID
		approvals.NextID++
		replaced := false
		for i := range approvals.Entries {
			if approvals.Entries[i].Account == a.Account {
				approvals.Entries[i].ID = approvalID
				replaced = true
				break
			}
		}
		if !replaced {
			approvals.Entries = append(approvals.Entries, approvalEntry{Account: a.Account, ID: approvalID})
		}
		if err := r.approvalsSlot(a.TokenID).Write(approvals); err != nil {
			return err
		}
		r.emitter.Emit(ApproveEvent{
			TokenID:    a.TokenID,
			Owner:      a.Caller,
			Account:    a.Account,
			ApprovalID: approvalID,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	if a.Msg != "" && r.sched != nil {
		args, err := rlp.EncodeToBytes(&ApprovePayload{
			TokenID:    a.TokenID,
			Owner:      a.Caller,
			ApprovalID: approvalID,
			Msg:        a.Msg,
		})
		if err == nil {
			r.sched.Schedule(host.Call{
				Target: a.Account,
				Method: ApproveMethod,
				Args:   args,
			}, nil)
		}
	}
	return approvalID, nil
}

// Revoke clears the approval entry for one account. Owner-only. The approval
// id counter is not rolled back.
func (r *Registry) Revoke(id TokenID, caller, account types.Address) error {
	token, err := r.loadToken(id)
	if err != nil {
		return err
	}
	if token.Owner != caller {
		return ErrNotTokenOwner
	}
	approvals, err := r.loadApprovals(id)
	if err != nil {
		return err
	}
	kept := approvals.Entries[:0]
	for _, e := range approvals.Entries {
		if e.Account != account {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(approvals.Entries) {
		return nil
	}
	approvals.Entries = kept
	if err := r.approvalsSlot(id).Write(approvals); err != nil {
		return err
	}
	r.emitter.Emit(RevokeEvent{TokenID: id, Owner: caller, Account: &account})
	return nil
}

// RevokeAll clears every approval entry for the token. Owner-only. The
// approval id counter is not rolled back.
func (r *Registry) RevokeAll(id TokenID, caller types.Address) error {
	token, err := r.loadToken(id)
	if err != nil {
		return err
	}
	if token.Owner != caller {
		return ErrNotTokenOwner
	}
	approvals, err := r.loadApprovals(id)
	if err != nil {
		return err
	}
	if len(approvals.Entries) == 0 {
		return nil
	}
	approvals.Entries = nil
	if err := r.approvalsSlot(id).Write(approvals); err != nil {
		return err
	}
	r.emitter.Emit(RevokeEvent{TokenID: id, Owner: caller})
	return nil
}
