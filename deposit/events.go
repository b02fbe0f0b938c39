package deposit

import (
	"math/big"

	"ledgerkit/events"
	"ledgerkit/types"
)

const (
	// StandardStorage is the standard name carried by storage accounting
	// events.
	StandardStorage = "storage"
	// StandardStorageVersion is the schema version for storage events.
	StandardStorageVersion = "1.0.0"

	EventTypeDeposit    = "storage_deposit"
	EventTypeWithdraw   = "storage_withdraw"
	EventTypeUnregister = "storage_unregister"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// DepositEvent is emitted when a prepaid balance is credited.
type DepositEvent struct {
	Account types.Address
	Amount  *big.Int
	Balance *big.Int
}

func (DepositEvent) EventType() string { return EventTypeDeposit }

func (e DepositEvent) Record() *events.Record {
	return &events.Record{
		Standard: StandardStorage,
		Version:  StandardStorageVersion,
		Event:    EventTypeDeposit,
		Data: []map[string]any{{
			"account": e.Account.String(),
			"amount":  formatAmount(e.Amount),
			"balance": formatAmount(e.Balance),
		}},
	}
}

// WithdrawEvent is emitted when available prepaid balance is withdrawn.
type WithdrawEvent struct {
	Account types.Address
	Amount  *big.Int
	Balance *big.Int
}

func (WithdrawEvent) EventType() string { return EventTypeWithdraw }

func (e WithdrawEvent) Record() *events.Record {
	return &events.Record{
		Standard: StandardStorage,
		Version:  StandardStorageVersion,
		Event:    EventTypeWithdraw,
		Data: []map[string]any{{
			"account": e.Account.String(),
			"amount":  formatAmount(e.Amount),
			"balance": formatAmount(e.Balance),
		}},
	}
}

// UnregisterEvent is emitted when a storage record is cleared.
type UnregisterEvent struct {
	Account types.Address
	Refund  *big.Int
	Forced  bool
}

func (UnregisterEvent) EventType() string { return EventTypeUnregister }

func (e UnregisterEvent) Record() *events.Record {
	return &events.Record{
		Standard: StandardStorage,
		Version:  StandardStorageVersion,
		Event:    EventTypeUnregister,
		Data: []map[string]any{{
			"account": e.Account.String(),
			"refund":  formatAmount(e.Refund),
			"forced":  e.Forced,
		}},
	}
}
