package access

import (
	"ledgerkit/events"
	"ledgerkit/types"
)

const (
	// StandardOwner is the standard name carried by ownership events.
	StandardOwner = "owner"
	// StandardOwnerVersion is the schema version for ownership events.
	StandardOwnerVersion = "1.0.0"

	EventTypeProposeOwner  = "propose_owner"
	EventTypeTransferOwner = "transfer_owner"
)

// ProposeOwner is emitted when the current owner proposes (or clears) a
// successor.
type ProposeOwner struct {
	Current  types.Address
	Proposed *types.Address
}

func (ProposeOwner) EventType() string { return EventTypeProposeOwner }

func (e ProposeOwner) Record() *events.Record {
	data := map[string]any{"current": e.Current.String()}
	if e.Proposed != nil {
		data["proposed"] = e.Proposed.String()
	}
	return &events.Record{
		Standard: StandardOwner,
		Version:  StandardOwnerVersion,
		Event:    EventTypeProposeOwner,
		Data:     []map[string]any{data},
	}
}

// TransferOwner is emitted when ownership changes hands or is renounced (New
// left zero).
type TransferOwner struct {
	Old types.Address
	New types.Address
}

func (TransferOwner) EventType() string { return EventTypeTransferOwner }

func (e TransferOwner) Record() *events.Record {
	data := map[string]any{"old": e.Old.String()}
	if !e.New.IsZero() {
		data["new"] = e.New.String()
	}
	return &events.Record{
		Standard: StandardOwner,
		Version:  StandardOwnerVersion,
		Event:    EventTypeTransferOwner,
		Data:     []map[string]any{data},
	}
}
