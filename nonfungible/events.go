package nonfungible

import (
	"ledgerkit/events"
	"ledgerkit/types"
)

const (
	// StandardNonFungible is the standard name carried by registry events.
	StandardNonFungible = "nft"
	// StandardNonFungibleVersion is the schema version for registry events.
	StandardNonFungibleVersion = "1.0.0"

	EventTypeMint     = "nft_mint"
	EventTypeTransfer = "nft_transfer"
	EventTypeBurn     = "nft_burn"
	EventTypeApprove  = "nft_approve"
	EventTypeRevoke   = "nft_revoke"
)

func record(event string, data map[string]any) *events.Record {
	return &events.Record{
		Standard: StandardNonFungible,
		Version:  StandardNonFungibleVersion,
		Event:    event,
		Data:     []map[string]any{data},
	}
}

// MintEvent is emitted once per successful mint.
type MintEvent struct {
	TokenID TokenID
	Owner   types.Address
	Memo    string
}

func (MintEvent) EventType() string { return EventTypeMint }

func (e MintEvent) Record() *events.Record {
	data := map[string]any{
		"token_id": string(e.TokenID),
		"owner":    e.Owner.String(),
	}
	if e.Memo != "" {
		data["memo"] = e.Memo
	}
	return record(EventTypeMint, data)
}

// TransferEvent is emitted once per successful ownership change.
type TransferEvent struct {
	TokenID  TokenID
	Sender   types.Address
	Receiver types.Address
	Memo     string
	Revert   bool
}

func (TransferEvent) EventType() string { return EventTypeTransfer }

func (e TransferEvent) Record() *events.Record {
	data := map[string]any{
		"token_id":  string(e.TokenID),
		"old_owner": e.Sender.String(),
		"new_owner": e.Receiver.String(),
	}
	if e.Memo != "" {
		data["memo"] = e.Memo
	}
	if e.Revert {
		data["revert"] = true
	}
	return record(EventTypeTransfer, data)
}

// BurnEvent is emitted once per successful burn.
type BurnEvent struct {
	TokenID TokenID
	Owner   types.Address
	Memo    string
}

func (BurnEvent) EventType() string { return EventTypeBurn }

func (e BurnEvent) Record() *events.Record {
	data := map[string]any{
		"token_id": string(e.TokenID),
		"owner":    e.Owner.String(),
	}
	if e.Memo != "" {
		data["memo"] = e.Memo
	}
	return record(EventTypeBurn, data)
}

// ApproveEvent is emitted once per approval grant.
type ApproveEvent struct {
	TokenID    TokenID
	Owner      types.Address
	Account    types.Address
	ApprovalID uint32
}

func (ApproveEvent) EventType() string { return EventTypeApprove }

func (e ApproveEvent) Record() *events.Record {
	return record(EventTypeApprove, map[string]any{
		"token_id":    string(e.TokenID),
		"owner":       e.Owner.String(),
		"account":     e.Account.String(),
		"approval_id": e.ApprovalID,
	})
}

// RevokeEvent is emitted once per revocation. Account is nil for revoke-all.
type RevokeEvent struct {
	TokenID TokenID
	Owner   types.Address
	Account *types.Address
}

func (RevokeEvent) EventType() string { return EventTypeRevoke }

func (e RevokeEvent) Record() *events.Record {
	data := map[string]any{
		"token_id": string(e.TokenID),
		"owner":    e.Owner.String(),
	}
	if e.Account != nil {
		data["account"] = e.Account.String()
	}
	return record(EventTypeRevoke, data)
}
