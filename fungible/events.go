package fungible

import (
	"math/big"

	"ledgerkit/events"
	"ledgerkit/types"
)

const (
	// StandardFungible is the standard name carried by fungible ledger
	// events.
	StandardFungible = "ft"
	// StandardFungibleVersion is the schema version for fungible events.
	StandardFungibleVersion = "1.0.0"

	EventTypeTransfer = "ft_transfer"
	EventTypeMint     = "ft_mint"
	EventTypeBurn     = "ft_burn"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// TransferEvent is emitted once per successful transfer.
type TransferEvent struct {
	Sender   types.Address
	Receiver types.Address
	Amount   *big.Int
	Memo     string
	Revert   bool
}

func (TransferEvent) EventType() string { return EventTypeTransfer }

func (e TransferEvent) Record() *events.Record {
	data := map[string]any{
		"old_owner": e.Sender.String(),
		"new_owner": e.Receiver.String(),
		"amount":    formatAmount(e.Amount),
	}
	if e.Memo != "" {
		data["memo"] = e.Memo
	}
	if e.Revert {
		data["revert"] = true
	}
	return &events.Record{
		Standard: StandardFungible,
		Version:  StandardFungibleVersion,
		Event:    EventTypeTransfer,
		Data:     []map[string]any{data},
	}
}

// MintEvent is emitted once per successful mint.
type MintEvent struct {
	Receiver types.Address
	Amount   *big.Int
	Memo     string
}

func (MintEvent) EventType() string { return EventTypeMint }

func (e MintEvent) Record() *events.Record {
	data := map[string]any{
		"owner":  e.Receiver.String(),
		"amount": formatAmount(e.Amount),
	}
	if e.Memo != "" {
		data["memo"] = e.Memo
	}
	return &events.Record{
		Standard: StandardFungible,
		Version:  StandardFungibleVersion,
		Event:    EventTypeMint,
		Data:     []map[string]any{data},
	}
}

// BurnEvent is emitted once per successful burn.
type BurnEvent struct {
	Owner  types.Address
	Amount *big.Int
	Memo   string
}

func (BurnEvent) EventType() string { return EventTypeBurn }

func (e BurnEvent) Record() *events.Record {
	data := map[string]any{
		"owner":  e.Owner.String(),
		"amount": formatAmount(e.Amount),
	}
	if e.Memo != "" {
		data["memo"] = e.Memo
	}
	return &events.Record{
		Standard: StandardFungible,
		Version:  StandardFungibleVersion,
		Event:    EventTypeBurn,
		Data:     []map[string]any{data},
	}
}
