// Package fungible implements an account-to-balance ledger with a conserved
// total supply. Transfers are wrapped in a hook pipeline; the
// transfer-and-notify operation follows an optimistic two-phase protocol with
// a compensating refund leg driven by the host's asynchronous call scheduler.
package fungible

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"ledgerkit/deposit"
	"ledgerkit/events"
	"ledgerkit/hook"
	"ledgerkit/host"
	"ledgerkit/slot"
	"ledgerkit/types"
)

var (
	// ErrInvalidAmount is returned when a transfer amount is nil or not
	// strictly positive.
	ErrInvalidAmount = errors.New("fungible: amount must be positive")
	// ErrUnregisteredAccount is returned when a party lacks a balance
	// record.
	ErrUnregisteredAccount = errors.New("fungible: account not registered")
	// ErrInsufficientBalance is returned when the sender balance cannot
	// cover the transfer.
	ErrInsufficientBalance = errors.New("fungible: insufficient balance")
	// ErrSameSenderReceiver is returned when a transfer names one account on
	// both sides.
	ErrSameSenderReceiver = errors.New("fungible: sender and receiver are the same account")
)

const (
	fieldTotalSupply = 0x01
	fieldBalances    = 0x02

	// balanceRecordBytes bounds the stored size of one balance record
	// (physical key plus an encoded unsigned integer). Registration charges
	// this bound once so balance updates never need a re-charge.
	balanceRecordBytes = slot.KeySize + 33
)

// NotifyMethod is the logical operation invoked on a receiver during
// transfer-and-notify.
const NotifyMethod = "on_transfer"

// Ledger is the fungible balance state machine.
type Ledger struct {
	root     slot.Slot
	deposits *deposit.Vault
	emitter  events.Emitter
	sched    host.Scheduler
	log      *slog.Logger

	transferHooks hook.Pipeline[Transfer]
	mintHooks     hook.Pipeline[Mint]
	burnHooks     hook.Pipeline[Burn]
}

// Transfer describes a balance movement between two registered accounts.
type Transfer struct {
	Sender   types.Address
	Receiver types.Address
	Amount   *big.Int
	Memo     string
	// Revert marks the compensating leg of a transfer-and-notify.
	Revert bool
}

// Mint describes a supply increase credited to one account.
type Mint struct {
	Receiver types.Address
	Amount   *big.Int
	Memo     string
}

// Burn describes a supply decrease debited from one account.
type Burn struct {
	Owner  types.Address
	Amount *big.Int
	Memo   string
}

// NewLedger creates a ledger rooted at the given slot. Storage growth is
// charged against the accounts vault.
func NewLedger(root slot.Slot, deposits *deposit.Vault) *Ledger {
	return &Ledger{
		root:     root,
		deposits: deposits,
		emitter:  events.NoopEmitter{},
		log:      slog.Default(),
	}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetScheduler configures the host call scheduler used by TransferAndNotify.
func (l *Ledger) SetScheduler(sched host.Scheduler) { l.sched = sched }

// SetLogger overrides the logger used for compensation outcomes.
func (l *Ledger) SetLogger(log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	l.log = log
}

// TransferHooks exposes the pipeline wrapped around transfers.
func (l *Ledger) TransferHooks() *hook.Pipeline[Transfer] { return &l.transferHooks }

// MintHooks exposes the pipeline wrapped around mints.
func (l *Ledger) MintHooks() *hook.Pipeline[Mint] { return &l.mintHooks }

// BurnHooks exposes the pipeline wrapped around burns.
func (l *Ledger) BurnHooks() *hook.Pipeline[Burn] { return &l.burnHooks }

func (l *Ledger) balanceSlot(account types.Address) slot.Slot {
	return l.root.Field(fieldBalances).Sub(account.Bytes())
}

func (l *Ledger) supplySlot() slot.Slot {
	return l.root.Field(fieldTotalSupply)
}

// Registered reports whether the account has a balance record.
func (l *Ledger) Registered(account types.Address) (bool, error) {
	return l.balanceSlot(account).Exists()
}

// BalanceOf returns the account balance. Zero for unregistered accounts.
func (l *Ledger) BalanceOf(account types.Address) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := l.balanceSlot(account).Read(balance)
	if err != nil || !ok {
		return big.NewInt(0), err
	}
	return balance, nil
}

// TotalSupply returns the circulating supply.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	supply := new(big.Int)
	ok, err := l.supplySlot().Read(supply)
	if err != nil || !ok {
		return big.NewInt(0), err
	}
	return supply, nil
}

// Register creates a zero balance record for the account, charging its
// storage deposit first. Idempotent when already registered.
func (l *Ledger) Register(account types.Address) error {
	registered, err := l.Registered(account)
	if err != nil || registered {
		return err
	}
	if err := l.deposits.Charge(account, balanceRecordBytes); err != nil {
		return err
	}
	return l.balanceSlot(account).Write(big.NewInt(0))
}

// transferUnchecked moves amount between balances with no change to total
// supply, no event emission and no hook invocation. Balances are read at call
// time; callers must not assume an unchanged prior balance. The receiver
// balance is read only after the sender debit commits, so the two slots may
// alias without the credit resurrecting the pre-debit balance.
func (l *Ledger) transferUnchecked(sender, receiver types.Address, amount *big.Int) error {
	senderBalance, err := l.BalanceOf(sender)
	if err != nil {
		return err
	}
	if senderBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, sender, senderBalance, amount)
	}
	if err := l.balanceSlot(sender).Write(new(big.Int).Sub(senderBalance, amount)); err != nil {
		return err
	}
	receiverBalance, err := l.BalanceOf(receiver)
	if err != nil {
		return err
	}
	return l.balanceSlot(receiver).Write(new(big.Int).Add(receiverBalance, amount))
}

func (l *Ledger) requireRegistered(account types.Address) error {
	registered, err := l.Registered(account)
	if err != nil {
		return err
	}
	if !registered {
		return fmt.Errorf("%w: %s", ErrUnregisteredAccount, account)
	}
	return nil
}

// Transfer debits the sender and credits the receiver, wrapped in the
// transfer hook pipeline, and emits one transfer event on success.
func (l *Ledger) Transfer(t Transfer) error {
	if t.Amount == nil || t.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if t.Sender == t.Receiver {
		return ErrSameSenderReceiver
	}
	return l.transferHooks.Run(t, func() error {
		if err := l.requireRegistered(t.Sender); err != nil {
			return err
		}
		if err := l.requireRegistered(t.Receiver); err != nil {
			return err
		}
		if err := l.transferUnchecked(t.Sender, t.Receiver, t.Amount); err != nil {
			return err
		}
		l.emitter.Emit(TransferEvent{
			Sender:   t.Sender,
			Receiver: t.Receiver,
			Amount:   t.Amount,
			Memo:     t.Memo,
			Revert:   t.Revert,
		})
		return nil
	})
}

// Mint credits amount to a registered account and grows total supply. Only
// ever invoked through explicitly gated entry points.
func (l *Ledger) Mint(m Mint) error {
	if m.Amount == nil || m.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return l.mintHooks.Run(m, func() error {
		if err := l.requireRegistered(m.Receiver); err != nil {
			return err
		}
		balance, err := l.BalanceOf(m.Receiver)
		if err != nil {
			return err
		}
		supply, err := l.TotalSupply()
		if err != nil {
			return err
		}
		if err := l.balanceSlot(m.Receiver).Write(new(big.Int).Add(balance, m.Amount)); err != nil {
			return err
		}
		if err := l.supplySlot().Write(new(big.Int).Add(supply, m.Amount)); err != nil {
			return err
		}
		l.emitter.Emit(MintEvent{Receiver: m.Receiver, Amount: m.Amount, Memo: m.Memo})
		return nil
	})
}

// Burn debits amount from an account and shrinks total supply. Only ever
// invoked through explicitly gated entry points.
func (l *Ledger) Burn(b Burn) error {
	if b.Amount == nil || b.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return l.burnHooks.Run(b, func() error {
		return l.burnUnchecked(b.Owner, b.Amount, b.Memo)
	})
}

func (l *Ledger) burnUnchecked(owner types.Address, amount *big.Int, memo string) error {
	balance, err := l.BalanceOf(owner)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, owner, balance, amount)
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	if err := l.balanceSlot(owner).Write(new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	if err := l.supplySlot().Write(new(big.Int).Sub(supply, amount)); err != nil {
		return err
	}
	l.emitter.Emit(BurnEvent{Owner: owner, Amount: amount, Memo: memo})
	return nil
}

// Name implements the deposit.Hold interface.
func (l *Ledger) Name() string { return "fungible" }

// HoldsValue implements the deposit.Hold interface: the account holds value
// while its balance is nonzero.
func (l *Ledger) HoldsValue(account types.Address) (bool, error) {
	balance, err := l.BalanceOf(account)
	if err != nil {
		return false, err
	}
	return balance.Sign() > 0, nil
}

// BurnOnForceUnregister burns the account's full balance and removes its
// balance record. Registries never auto-burn on unregister; integrators that
// want the cleanup wire this explicitly after a forced unregistration.
func (l *Ledger) BurnOnForceUnregister(account types.Address) error {
	balance, err := l.BalanceOf(account)
	if err != nil {
		return err
	}
	if balance.Sign() > 0 {
		if err := l.burnUnchecked(account, balance, "storage forced unregistration"); err != nil {
			return err
		}
	}
	return l.balanceSlot(account).Remove()
}
