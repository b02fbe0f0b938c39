// Package nonfungible implements a token registry mapping token identifiers
// to a single owner, optional metadata, and per-token approvals, with
// enumeration indices kept consistent on every mutation. Transfers follow the
// same optimistic notify protocol as the fungible ledger, except the outcome
// is binary: the receiver accepts the token or the transfer is reverted.
package nonfungible

import (
	"errors"
	"fmt"
	"log/slog"

	"ledgerkit/deposit"
	"ledgerkit/events"
	"ledgerkit/hook"
	"ledgerkit/host"
	"ledgerkit/slot"
	"ledgerkit/types"
)

var (
	// ErrTokenExists is returned by Mint when the token id is in use.
	ErrTokenExists = errors.New("nonfungible: token already exists")
	// ErrTokenNotFound is returned when a token id maps to no owner.
	ErrTokenNotFound = errors.New("nonfungible: token not found")
	// ErrNotOwnerOrApproved is returned when a transfer is attempted by an
	// account that is neither the owner nor the holder of the currently
	// valid approval.
	ErrNotOwnerOrApproved = errors.New("nonfungible: sender is not owner or approved")
	// ErrNotTokenOwner is returned when an owner-only operation (approve,
	// revoke) is attempted by another account.
	ErrNotTokenOwner = errors.New("nonfungible: caller does not own token")
	// ErrSameSenderReceiver is returned when a transfer targets the current
	// owner.
	ErrSameSenderReceiver = errors.New("nonfungible: receiver already owns token")
)

const (
	fieldTokens      = 0x01
	fieldApprovals   = 0x02
	fieldAllTokens   = 0x03
	fieldOwnerTokens = 0x04
)

// TokenID identifies one token within the registry.
type TokenID string

// Token is the stored per-token record.
type Token struct {
	Owner    types.Address
	Metadata string
}

type approvalEntry struct {
	Account types.Address
	ID      uint32
}

// tokenApprovals keeps the live approval entries plus the next approval id.
// The counter is token-scoped, monotonically increasing, and never reused,
// even across revocation and transfer.
type tokenApprovals struct {
	NextID  uint32
	Entries []approvalEntry
}

// Mint describes a token creation.
type Mint struct {
	TokenID  TokenID
	Receiver types.Address
	Metadata string
	Memo     string
}

// Transfer describes a token ownership change.
type Transfer struct {
	TokenID  TokenID
	Sender   types.Address
	Receiver types.Address
	// ApprovalID must exactly match the sender's currently valid approval
	// when the sender is not the owner. Stale ids are rejected.
	ApprovalID *uint32
	Memo       string
	// Revert marks the compensating leg of a transfer-and-notify.
	Revert bool
}

// Approve describes an approval grant.
type Approve struct {
	TokenID TokenID
	Caller  types.Address
	Account types.Address
	Msg     string
}

// Registry is the non-fungible state machine.
type Registry struct {
	root     slot.Slot
	deposits *deposit.Vault
	emitter  events.Emitter
	sched    host.Scheduler
	log      *slog.Logger

	mintHooks     hook.Pipeline[Mint]
	transferHooks hook.Pipeline[Transfer]
	approveHooks  hook.Pipeline[Approve]
}

// NewRegistry creates a registry rooted at the given slot. Storage growth is
// charged against the accounts vault.
func NewRegistry(root slot.Slot, deposits *deposit.Vault) *Registry {
	return &Registry{
		root:     root,
		deposits: deposits,
		emitter:  events.NoopEmitter{},
		log:      slog.Default(),
	}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetScheduler configures the host call scheduler used by the notify
// operations.
func (r *Registry) SetScheduler(sched host.Scheduler) { r.sched = sched }

// SetLogger overrides the logger used for compensation outcomes.
func (r *Registry) SetLogger(log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	r.log = log
}

// MintHooks exposes the pipeline wrapped around mints.
func (r *Registry) MintHooks() *hook.Pipeline[Mint] { return &r.mintHooks }

// TransferHooks exposes the pipeline wrapped around transfers.
func (r *Registry) TransferHooks() *hook.Pipeline[Transfer] { return &r.transferHooks }

// ApproveHooks exposes the pipeline wrapped around approvals.
func (r *Registry) ApproveHooks() *hook.Pipeline[Approve] { return &r.approveHooks }

func (r *Registry) tokenSlot(id TokenID) slot.Slot {
	return r.root.Field(fieldTokens).Sub([]byte(id))
}

func (r *Registry) approvalsSlot(id TokenID) slot.Slot {
	return r.root.Field(fieldApprovals).Sub([]byte(id))
}

func (r *Registry) allTokensSlot() slot.Slot {
	return r.root.Field(fieldAllTokens)
}

func (r *Registry) ownerTokensSlot(owner types.Address) slot.Slot {
	return r.root.Field(fieldOwnerTokens).Sub(owner.Bytes())
}

func (r *Registry) loadToken(id TokenID) (*Token, error) {
	token := new(Token)
	ok, err := r.tokenSlot(id).Read(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, id)
	}
	return token, nil
}

func (r *Registry) loadApprovals(id TokenID) (*tokenApprovals, error) {
	approvals := &tokenApprovals{NextID: 1}
	ok, err := r.approvalsSlot(id).Read(approvals)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &tokenApprovals{NextID: 1}, nil
	}
	return approvals, nil
}

// OwnerOf returns the current owner of the token.
func (r *Registry) OwnerOf(id TokenID) (types.Address, error) {
	token, err := r.loadToken(id)
	if err != nil {
		return types.Address{}, err
	}
	return token.Owner, nil
}

// Metadata returns the token's metadata string.
func (r *Registry) Metadata(id TokenID) (string, error) {
	token, err := r.loadToken(id)
	if err != nil {
		return "", err
	}
	return token.Metadata, nil
}

// ApprovalIDFor returns the live approval id granted to account for the
// token, if any.
func (r *Registry) ApprovalIDFor(id TokenID, account types.Address) (uint32, bool, error) {
	approvals, err := r.loadApprovals(id)
	if err != nil {
		return 0, false, err
	}
	for _, e := range approvals.Entries {
		if e.Account == account {
			return e.ID, true, nil
		}
	}
	return 0, false, nil
}

// TokensByOwner returns the token ids currently owned by the account.
func (r *Registry) TokensByOwner(owner types.Address) ([]TokenID, error) {
	var tokens []TokenID
	if _, err := r.ownerTokensSlot(owner).Read(&tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// AllTokens returns a finite page of live token ids starting at index from.
// A zero limit means the rest of the list. Removals compact the list by
// swap-remove, so the order is index order, not mint order.
func (r *Registry) AllTokens(from, limit uint64) ([]TokenID, error) {
	var tokens []TokenID
	if _, err := r.allTokensSlot().Read(&tokens); err != nil {
		return nil, err
	}
	if from >= uint64(len(tokens)) {
		return nil, nil
	}
	page := tokens[from:]
	if limit > 0 && limit < uint64(len(page)) {
		page = page[:limit]
	}
	return page, nil
}

func (r *Registry) addToOwnerIndex(owner types.Address, id TokenID) error {
	tokens, err := r.TokensByOwner(owner)
	if err != nil {
		return err
	}
	return r.ownerTokensSlot(owner).Write(append(tokens, id))
}

func (r *Registry) removeFromOwnerIndex(owner types.Address, id TokenID) error {
	tokens, err := r.TokensByOwner(owner)
	if err != nil {
		return err
	}
	kept := tokens[:0]
	for _, t := range tokens {
		if t != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return r.ownerTokensSlot(owner).Remove()
	}
	return r.ownerTokensSlot(owner).Write(kept)
}

// mintStorageBytes bounds the bytes a mint adds: the token record, its slot
// in both enumeration indices, and the approvals record it will grow into.
func (r *Registry) mintStorageBytes(m Mint) (int64, error) {
	tokenSize, err := r.tokenSlot(m.TokenID).StoredSize(&Token{Owner: m.Receiver, Metadata: m.Metadata})
	if err != nil {
		return 0, err
	}
	indexEntry := uint64(len(m.TokenID)) + 8
	approvalsBound := uint64(slot.KeySize) + 64
	return int64(tokenSize + 2*indexEntry + approvalsBound), nil
}

// Mint creates the token, charging the receiver's storage deposit before any
// record is written.
func (r *Registry) Mint(m Mint) error {
	return r.mintHooks.Run(m, func() error {
		exists, err := r.tokenSlot(m.TokenID).Exists()
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrTokenExists, m.TokenID)
		}
		charge, err := r.mintStorageBytes(m)
		if err != nil {
			return err
		}
		if err := r.deposits.Charge(m.Receiver, charge); err != nil {
			return err
		}
		if err := r.tokenSlot(m.TokenID).Write(&Token{Owner: m.Receiver, Metadata: m.Metadata}); err != nil {
			return err
		}
		var all []TokenID
		if _, err := r.allTokensSlot().Read(&all); err != nil {
			return err
		}
		if err := r.allTokensSlot().Write(append(all, m.TokenID)); err != nil {
			return err
		}
		if err := r.addToOwnerIndex(m.Receiver, m.TokenID); err != nil {
			return err
		}
		r.emitter.Emit(MintEvent{TokenID: m.TokenID, Owner: m.Receiver, Memo: m.Memo})
		return nil
	})
}

// authorize resolves whether the transfer sender may move the token: the
// current owner always may; any other account needs the currently valid
// approval with an exactly matching id.
func (r *Registry) authorize(t Transfer, token *Token) error {
	if t.Sender == token.Owner {
		return nil
	}
	id, ok, err := r.ApprovalIDFor(t.TokenID, t.Sender)
	if err != nil {
		return err
	}
	if !ok || t.ApprovalID == nil || *t.ApprovalID != id {
		return ErrNotOwnerOrApproved
	}
	return nil
}

// Transfer moves the token to the receiver, clears all approvals for it, and
// updates both enumeration indices.
func (r *Registry) Transfer(t Transfer) error {
	return r.transferHooks.Run(t, func() error {
		token, err := r.loadToken(t.TokenID)
		if err != nil {
			return err
		}
		if token.Owner == t.Receiver {
			return ErrSameSenderReceiver
		}
		if err := r.authorize(t, token); err != nil {
			return err
		}
		return r.transferUnchecked(t, token)
	})
}

// transferUnchecked performs the ownership swap with no authorization check,
// no hook invocation. Used by Transfer and by the notify revert leg.
func (r *Registry) transferUnchecked(t Transfer, token *Token) error {
	previous := token.Owner
	// Invalidate every outstanding approval; the id counter is preserved so
	// ids are never reused.
	approvals, err := r.loadApprovals(t.TokenID)
	if err != nil {
		return err
	}
	approvals.Entries = nil
	if err := r.approvalsSlot(t.TokenID).Write(approvals); err != nil {
		return err
	}
	token.Owner = t.Receiver
	if err := r.tokenSlot(t.TokenID).Write(token); err != nil {
		return err
	}
	if err := r.removeFromOwnerIndex(previous, t.TokenID); err != nil {
		return err
	}
	if err := r.addToOwnerIndex(t.Receiver, t.TokenID); err != nil {
		return err
	}
	r.emitter.Emit(TransferEvent{
		TokenID:  t.TokenID,
		Sender:   previous,
		Receiver: t.Receiver,
		Memo:     t.Memo,
		Revert:   t.Revert,
	})
	return nil
}

// Burn removes the token entirely, releasing its storage charge. Owner-only.
func (r *Registry) Burn(id TokenID, caller types.Address, memo string) error {
	token, err := r.loadToken(id)
	if err != nil {
		return err
	}
	if token.Owner != caller {
		return ErrNotTokenOwner
	}
	release, err := r.mintStorageBytes(Mint{TokenID: id, Receiver: token.Owner, Metadata: token.Metadata})
	if err != nil {
		return err
	}
	if err := r.tokenSlot(id).Remove(); err != nil {
		return err
	}
	if err := r.approvalsSlot(id).Remove(); err != nil {
		return err
	}
	var all []TokenID
	if _, err := r.allTokensSlot().Read(&all); err != nil {
		return err
	}
	for i, t := range all {
		if t == id {
			all[i] = all[len(all)-1]
			all = all[:len(all)-1]
			break
		}
	}
	if err := r.allTokensSlot().Write(all); err != nil {
		return err
	}
	if err := r.removeFromOwnerIndex(token.Owner, id); err != nil {
		return err
	}
	// Release may fail only if the record vanished; the burn stands.
	if err := r.deposits.Charge(token.Owner, -release); err != nil && !errors.Is(err, deposit.ErrNotRegistered) {
		return err
	}
	r.emitter.Emit(BurnEvent{TokenID: id, Owner: token.Owner, Memo: memo})
	return nil
}

// Name implements the deposit.Hold interface.
func (r *Registry) Name() string { return "nonfungible" }

// HoldsValue implements the deposit.Hold interface: the account holds value
// while it owns any token.
func (r *Registry) HoldsValue(account types.Address) (bool, error) {
	tokens, err := r.TokensByOwner(account)
	if err != nil {
		return false, err
	}
	return len(tokens) > 0, nil
}
