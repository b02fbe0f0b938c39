package fungible

import (
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"ledgerkit/host"
	"ledgerkit/observability/metrics"
	"ledgerkit/types"
)

// ErrNoScheduler is returned by TransferAndNotify when no host scheduler is
// configured.
var ErrNoScheduler = errors.New("fungible: no call scheduler configured")

// NotifyPayload is the argument payload delivered to the receiver of a
// transfer-and-notify call.
type NotifyPayload struct {
	Sender types.Address
	Amount *big.Int
	Msg    string
}

// TransferAndNotify performs the transfer optimistically, then schedules an
// asynchronous call to the receiver carrying msg and the transferred amount.
// The current execution completes immediately after scheduling; the
// compensation runs later as a separate execution when the host reports the
// call's resolution.
//
// The receiver's response reports how much of the amount it used. The unused
// remainder is transferred back to the sender; an outright call failure or a
// malformed response refunds the entire amount. An observer querying balances
// between the optimistic debit and the compensation sees the optimistic
// state.
func (l *Ledger) TransferAndNotify(t Transfer, msg string) (string, error) {
	if l.sched == nil {
		return "", ErrNoScheduler
	}
	if err := l.Transfer(t); err != nil {
		return "", err
	}
	args, err := rlp.EncodeToBytes(&NotifyPayload{Sender: t.Sender, Amount: t.Amount, Msg: msg})
	if err != nil {
		return "", err
	}
	amount := new(big.Int).Set(t.Amount)
	callID := l.sched.Schedule(host.Call{
		Target: t.Receiver,
		Method: NotifyMethod,
		Args:   args,
	}, func(result host.CallResult) {
		l.resolveTransfer(t.Sender, t.Receiver, amount, result)
	})
	metrics.CallScheduled(StandardFungible)
	return callID, nil
}

// resolveTransfer is the compensation leg. It runs after the original call
// already returned, so failures here are logged rather than surfaced to the
// caller.
func (l *Ledger) resolveTransfer(sender, receiver types.Address, amount *big.Int, result host.CallResult) {
	used := big.NewInt(0)
	if result.Ok {
		decoded := new(big.Int)
		if err := rlp.DecodeBytes(result.Value, decoded); err != nil {
			// A malformed response is treated identically to a failed call.
			l.log.Warn("malformed notify response, refunding in full",
				slog.String("sender", sender.String()),
				slog.String("receiver", receiver.String()))
		} else {
			used = decoded
		}
	}
	if used.Cmp(amount) > 0 {
		used = amount
	}
	refund := new(big.Int).Sub(amount, used)
	if refund.Sign() == 0 {
		metrics.RefundResolved(StandardFungible, "accepted")
		return
	}

	// Other protocols may have moved the receiver's funds while this call
	// was in flight; refund at most what the receiver currently holds.
	receiverBalance, err := l.BalanceOf(receiver)
	if err != nil {
		l.log.Error("refund aborted: cannot read receiver balance",
			slog.String("receiver", receiver.String()), slog.Any("err", err))
		return
	}
	if receiverBalance.Cmp(refund) < 0 {
		refund = receiverBalance
	}
	if refund.Sign() == 0 {
		metrics.RefundResolved(StandardFungible, "accepted")
		return
	}

	senderRegistered, err := l.Registered(sender)
	if err != nil {
		l.log.Error("refund aborted: cannot read sender registration",
			slog.String("sender", sender.String()), slog.Any("err", err))
		return
	}
	if !senderRegistered {
		// Policy: a refund to a sender that unregistered mid-flight is
		// burned rather than stranded with the receiver.
		if err := l.burnUnchecked(receiver, refund, "refund burned: sender unregistered"); err != nil {
			l.log.Error("refund burn failed",
				slog.String("receiver", receiver.String()), slog.Any("err", err))
			return
		}
		metrics.RefundResolved(StandardFungible, "burned")
		l.log.Warn("notify refund burned: sender unregistered",
			slog.String("sender", sender.String()),
			slog.String("amount", refund.String()))
		return
	}

	err = l.Transfer(Transfer{
		Sender:   receiver,
		Receiver: sender,
		Amount:   refund,
		Memo:     "refund",
		Revert:   true,
	})
	if err != nil {
		l.log.Error("notify refund failed",
			slog.String("sender", sender.String()),
			slog.String("receiver", receiver.String()),
			slog.String("amount", refund.String()),
			slog.Any("err", err))
		return
	}
	if used.Sign() > 0 {
		metrics.RefundResolved(StandardFungible, "partial")
	} else {
		metrics.RefundResolved(StandardFungible, "refunded")
	}
}
