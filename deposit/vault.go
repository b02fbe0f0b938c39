// Package deposit implements storage-deposit accounting: every account that
// causes the service to store persistent bytes must keep a prepaid balance
// proportional to the bytes it uses. State growth is charged before the
// corresponding write commits; callers roll the mutation back when the charge
// fails.
package deposit

import (
	"errors"
	"fmt"
	"math/big"

	"ledgerkit/events"
	"ledgerkit/slot"
	"ledgerkit/types"
)

var (
	// ErrNotRegistered is returned when an account has no storage record.
	ErrNotRegistered = errors.New("deposit: account not registered")
	// ErrZeroDeposit is returned when a first deposit carries no payment.
	ErrZeroDeposit = errors.New("deposit: registration requires a positive deposit")
	// ErrInsufficientAvailable is returned when a withdrawal exceeds the
	// balance not locked by current storage usage.
	ErrInsufficientAvailable = errors.New("deposit: insufficient available balance")
	// ErrInsufficientStorageBalance is returned when a charge would push the
	// required minimum above the prepaid balance.
	ErrInsufficientStorageBalance = errors.New("deposit: insufficient storage balance")
	// ErrNonZeroBalance is returned by a non-forced unregister while some
	// registered hold still reports value for the account.
	ErrNonZeroBalance = errors.New("deposit: account still holds value")
)

const fieldAccounts = 0x01

// Record is the per-account storage accounting state.
type Record struct {
	BytesUsed uint64
	Balance   *big.Int
}

// Hold is a registered callback a ledger satisfies so that non-forced
// unregistration can refuse while the account still holds value there. The
// consulted set is explicit and enumerable.
type Hold interface {
	// Name identifies the hold for error reporting.
	Name() string
	// HoldsValue reports whether the account owns anything in this ledger.
	HoldsValue(account types.Address) (bool, error)
}

// Vault tracks prepaid storage balances for one service.
type Vault struct {
	root         slot.Slot
	pricePerByte *big.Int
	holds        []Hold
	emitter      events.Emitter
}

// NewVault creates a vault rooted at the given slot charging pricePerByte per
// stored byte.
func NewVault(root slot.Slot, pricePerByte *big.Int) *Vault {
	price := big.NewInt(0)
	if pricePerByte != nil && pricePerByte.Sign() > 0 {
		price = new(big.Int).Set(pricePerByte)
	}
	return &Vault{root: root, pricePerByte: price, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (v *Vault) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		v.emitter = events.NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// AddHold registers a ledger callback consulted by non-forced unregister.
func (v *Vault) AddHold(h Hold) {
	if h != nil {
		v.holds = append(v.holds, h)
	}
}

// PricePerByte returns the configured storage price.
func (v *Vault) PricePerByte() *big.Int {
	return new(big.Int).Set(v.pricePerByte)
}

func (v *Vault) accountSlot(account types.Address) slot.Slot {
	return v.root.Field(fieldAccounts).Sub(account.Bytes())
}

func (v *Vault) load(account types.Address) (*Record, bool, error) {
	rec := new(Record)
	ok, err := v.accountSlot(account).Read(rec)
	if err != nil || !ok {
		return nil, false, err
	}
	if rec.Balance == nil {
		rec.Balance = big.NewInt(0)
	}
	return rec, true, nil
}

func (v *Vault) store(account types.Address, rec *Record) error {
	return v.accountSlot(account).Write(rec)
}

func (v *Vault) minRequired(rec *Record) *big.Int {
	return new(big.Int).Mul(v.pricePerByte, new(big.Int).SetUint64(rec.BytesUsed))
}

// IsRegistered reports whether the account has a storage record.
func (v *Vault) IsRegistered(account types.Address) (bool, error) {
	return v.accountSlot(account).Exists()
}

// BalanceOf returns the account's storage record, if registered.
func (v *Vault) BalanceOf(account types.Address) (*Record, bool, error) {
	return v.load(account)
}

// MinRequired returns the minimum prepaid balance the account must keep for
// its current bytes used. Zero for unregistered accounts.
func (v *Vault) MinRequired(account types.Address) (*big.Int, error) {
	rec, ok, err := v.load(account)
	if err != nil || !ok {
		return big.NewInt(0), err
	}
	return v.minRequired(rec), nil
}

// Deposit credits amount to the account's prepaid balance, registering the
// account first when needed. A first deposit must be strictly positive.
func (v *Vault) Deposit(account types.Address, amount *big.Int) (*Record, error) {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("deposit: negative amount")
	}
	rec, ok, err := v.load(account)
	if err != nil {
		return nil, err
	}
	if !ok {
		if amount.Sign() == 0 {
			return nil, ErrZeroDeposit
		}
		rec = &Record{Balance: big.NewInt(0)}
	}
	rec.Balance = new(big.Int).Add(rec.Balance, amount)
	if err := v.store(account, rec); err != nil {
		return nil, err
	}
	v.emitter.Emit(DepositEvent{Account: account, Amount: amount, Balance: rec.Balance})
	return rec, nil
}

// Withdraw debits amount from the account's prepaid balance. The balance
// locked by current storage usage is not withdrawable.
func (v *Vault) Withdraw(account types.Address, amount *big.Int) (*Record, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("deposit: invalid amount")
	}
	rec, ok, err := v.load(account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRegistered
	}
	available := new(big.Int).Sub(rec.Balance, v.minRequired(rec))
	if amount.Cmp(available) > 0 {
		return nil, ErrInsufficientAvailable
	}
	rec.Balance = new(big.Int).Sub(rec.Balance, amount)
	if err := v.store(account, rec); err != nil {
		return nil, err
	}
	v.emitter.Emit(WithdrawEvent{Account: account, Amount: amount, Balance: rec.Balance})
	return rec, nil
}

// Charge adjusts the account's bytes-used by delta and re-checks the
// required minimum against the prepaid balance. Callers must charge before
// committing the corresponding mutation and roll it back when the charge
// fails; the invariant is checked synchronously, never deferred.
func (v *Vault) Charge(account types.Address, delta int64) error {
	rec, ok, err := v.load(account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotRegistered
	}
	if delta >= 0 {
		rec.BytesUsed += uint64(delta)
	} else {
		release := uint64(-delta)
		if release > rec.BytesUsed {
			release = rec.BytesUsed
		}
		rec.BytesUsed -= release
	}
	if delta > 0 && v.minRequired(rec).Cmp(rec.Balance) > 0 {
		return ErrInsufficientStorageBalance
	}
	return v.store(account, rec)
}

// Unregister clears the account's storage record and returns the remaining
// prepaid balance for refund. When force is false it fails with
// ErrNonZeroBalance while any registered hold still reports value. When force
// is true the record is cleared unconditionally; ledgers never auto-burn on
// unregister, so the caller is responsible for separately clearing any ledger
// state the account still owns.
func (v *Vault) Unregister(account types.Address, force bool) (*big.Int, error) {
	rec, ok, err := v.load(account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRegistered
	}
	if !force {
		for _, h := range v.holds {
			held, err := h.HoldsValue(account)
			if err != nil {
				return nil, fmt.Errorf("deposit: hold %q: %w", h.Name(), err)
			}
			if held {
				return nil, fmt.Errorf("%w: %s", ErrNonZeroBalance, h.Name())
			}
		}
	}
	if err := v.accountSlot(account).Remove(); err != nil {
		return nil, err
	}
	refund := new(big.Int).Set(rec.Balance)
	v.emitter.Emit(UnregisterEvent{Account: account, Refund: refund, Forced: force})
	return refund, nil
}
