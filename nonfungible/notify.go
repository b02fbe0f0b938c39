package nonfungible

import (
	"errors"
	"log/slog"

	"github.com/ethereum/go-ethereum/rlp"

	"ledgerkit/host"
	"ledgerkit/observability/metrics"
	"ledgerkit/types"
)

// ErrNoScheduler is returned by TransferAndNotify when no host scheduler is
// configured.
var ErrNoScheduler = errors.New("nonfungible: no call scheduler configured")

// NotifyMethod is the logical operation invoked on the receiver during
// transfer-and-notify.
const NotifyMethod = "on_nft_transfer"

// NotifyPayload is the argument payload delivered to the receiver of a
// transfer-and-notify call.
type NotifyPayload struct {
	TokenID       TokenID
	PreviousOwner types.Address
	Msg           string
}

// TransferAndNotify commits the transfer optimistically, then schedules an
// asynchronous call informing the receiver. The outcome is binary: the
// receiver accepts the token, or the transfer is reverted. An outright call
// failure is treated identically to an explicit rejection.
func (r *Registry) TransferAndNotify(t Transfer, msg string) (string, error) {
	if r.sched == nil {
		return "", ErrNoScheduler
	}
	previousOwner, err := r.OwnerOf(t.TokenID)
	if err != nil {
		return "", err
	}
	if err := r.Transfer(t); err != nil {
		return "", err
	}
	args, err := rlp.EncodeToBytes(&NotifyPayload{
		TokenID:       t.TokenID,
		PreviousOwner: previousOwner,
		Msg:           msg,
	})
	if err != nil {
		return "", err
	}
	callID := r.sched.Schedule(host.Call{
		Target: t.Receiver,
		Method: NotifyMethod,
		Args:   args,
	}, func(result host.CallResult) {
		r.resolveTransfer(t.TokenID, previousOwner, t.Receiver, result)
	})
	metrics.CallScheduled(StandardNonFungible)
	return callID, nil
}

// resolveTransfer is the compensation leg, running as a separate execution
// once the host reports the call's outcome.
func (r *Registry) resolveTransfer(id TokenID, previousOwner, receiver types.Address, result host.CallResult) {
	accepted := false
	if result.Ok {
		if err := rlp.DecodeBytes(result.Value, &accepted); err != nil {
			// A malformed response is treated identically to a failed call.
			accepted = false
		}
	}
	if accepted {
		metrics.RefundResolved(StandardNonFungible, "accepted")
		return
	}

	// Read the current owner: the receiver may have moved the token while
	// the call was in flight, in which case the revert is forfeit.
	currentOwner, err := r.OwnerOf(id)
	if err != nil {
		r.log.Error("revert aborted: cannot read token owner",
			slog.String("token", string(id)), slog.Any("err", err))
		return
	}
	if currentOwner != receiver {
		metrics.RefundResolved(StandardNonFungible, "accepted")
		r.log.Warn("revert forfeited: token moved while call in flight",
			slog.String("token", string(id)),
			slog.String("owner", currentOwner.String()))
		return
	}

	token, err := r.loadToken(id)
	if err != nil {
		r.log.Error("revert aborted: cannot load token",
			slog.String("token", string(id)), slog.Any("err", err))
		return
	}
	err = r.transferUnchecked(Transfer{
		TokenID:  id,
		Sender:   receiver,
		Receiver: previousOwner,
		Memo:     "revert",
		Revert:   true,
	}, token)
	if err != nil {
		r.log.Error("notify revert failed",
			slog.String("token", string(id)),
			slog.String("receiver", receiver.String()),
			slog.Any("err", err))
		return
	}
	metrics.RefundResolved(StandardNonFungible, "refunded")
}
