// Package host declares the services the execution environment provides to a
// running ledger service: caller identity and attached payment for the
// current request, and the asynchronous cross-service call scheduler. The
// environment itself is an external collaborator and is not reimplemented
// here.
package host

import (
	"math/big"

	"ledgerkit/types"
)

// CallContext carries the host-authenticated facts about the current request.
type CallContext struct {
	// Caller is the account the host authenticated as the request origin.
	Caller types.Address
	// Deposit is the payment attached to the call, or nil when none.
	Deposit *big.Int
}

// AttachedDeposit returns the attached payment, never nil.
func (c CallContext) AttachedDeposit() *big.Int {
	if c.Deposit == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(c.Deposit)
}

// Call describes one outbound asynchronous call to another service.
type Call struct {
	// ID is assigned by the scheduler when the call is accepted.
	ID string
	// Target is the receiving service account.
	Target types.Address
	// Method is the logical operation name invoked on the target.
	Method string
	// Args is the opaque encoded argument payload.
	Args []byte
}

// CallResult is the host-reported resolution of a scheduled call.
// Infrastructure-level failure (unreachable receiver, timeout, handler
// failure) is reported with Ok == false; compensation logic must treat it
// identically to an explicit rejection.
type CallResult struct {
	Ok    bool
	Value []byte
}

// ResolveFunc runs as a separate, independent execution once the host reports
// the call's resolution. It must never assume state is unchanged since the
// call was scheduled.
type ResolveFunc func(CallResult)

// Scheduler schedules asynchronous cross-service calls. Scheduling never
// blocks the current execution; the current request completes and returns
// immediately after the call is accepted. Cancellation mid-flight is not
// supported.
type Scheduler interface {
	// Schedule accepts the call and returns its assigned call ID. The
	// resolve callback is invoked exactly once when the host reports the
	// call's outcome.
	Schedule(call Call, resolve ResolveFunc) string
}
