// Package service provides the explicit composition strategy for a concrete
// ledger service: a builder that allocates field discriminants under one root
// namespace, rejects collisions at build time, and wires engines to a shared
// store, emitter, and scheduler.
package service

import (
	"fmt"
	"log/slog"
	"math/big"

	"ledgerkit/access"
	"ledgerkit/approval"
	"ledgerkit/deposit"
	"ledgerkit/events"
	"ledgerkit/fungible"
	"ledgerkit/host"
	"ledgerkit/nonfungible"
	"ledgerkit/slot"
	"ledgerkit/storage"
	"ledgerkit/types"
)

// Builder assembles the components of one service. Each component claims a
// field discriminant under the service namespace; two features claiming the
// same discriminant is a wiring bug surfaced at build time, not a silent
// storage collision at run time.
type Builder struct {
	root    slot.Slot
	emitter events.Emitter
	sched   host.Scheduler
	log     *slog.Logger
	claimed map[byte]string
}

// NewBuilder starts a builder over the store for the given service
// namespace.
func NewBuilder(store storage.KV, namespace []byte) *Builder {
	return &Builder{
		root:    slot.Root(store, namespace),
		emitter: events.NoopEmitter{},
		log:     slog.Default(),
		claimed: make(map[byte]string),
	}
}

// WithEmitter sets the event emitter shared by all built components.
func (b *Builder) WithEmitter(emitter events.Emitter) *Builder {
	if emitter != nil {
		b.emitter = emitter
	}
	return b
}

// WithScheduler sets the host call scheduler shared by all built components.
func (b *Builder) WithScheduler(sched host.Scheduler) *Builder {
	b.sched = sched
	return b
}

// WithLogger sets the logger shared by all built components.
func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	if log != nil {
		b.log = log
	}
	return b
}

// Slot claims a field discriminant and returns its root slot. The name
// identifies the claiming feature in collision errors.
func (b *Builder) Slot(discriminant byte, name string) (slot.Slot, error) {
	if prev, ok := b.claimed[discriminant]; ok {
		return slot.Slot{}, fmt.Errorf("service: discriminant 0x%02x already claimed by %q (wanted by %q)", discriminant, prev, name)
	}
	b.claimed[discriminant] = name
	return b.root.Field(discriminant), nil
}

// Owner builds the owner component with an optional initial owner.
func (b *Builder) Owner(discriminant byte, initial *types.Address) (*access.Owner, error) {
	root, err := b.Slot(discriminant, "owner")
	if err != nil {
		return nil, err
	}
	owner := access.NewOwner(root)
	owner.SetEmitter(b.emitter)
	if initial != nil {
		if err := owner.Init(*initial); err != nil {
			return nil, err
		}
	}
	return owner, nil
}

// Roles builds the role registry.
func (b *Builder) Roles(discriminant byte) (*access.Roles, error) {
	root, err := b.Slot(discriminant, "roles")
	if err != nil {
		return nil, err
	}
	return access.NewRoles(root), nil
}

// Pause builds the pause flag.
func (b *Builder) Pause(discriminant byte) (*access.Pause, error) {
	root, err := b.Slot(discriminant, "pause")
	if err != nil {
		return nil, err
	}
	return access.NewPause(root), nil
}

// Vault builds the storage-deposit vault charging pricePerByte.
func (b *Builder) Vault(discriminant byte, pricePerByte *big.Int) (*deposit.Vault, error) {
	root, err := b.Slot(discriminant, "deposit")
	if err != nil {
		return nil, err
	}
	vault := deposit.NewVault(root, pricePerByte)
	vault.SetEmitter(b.emitter)
	return vault, nil
}

// Fungible builds the balance ledger and registers it as a vault hold.
func (b *Builder) Fungible(discriminant byte, vault *deposit.Vault) (*fungible.Ledger, error) {
	root, err := b.Slot(discriminant, "fungible")
	if err != nil {
		return nil, err
	}
	ledger := fungible.NewLedger(root, vault)
	ledger.SetEmitter(b.emitter)
	ledger.SetScheduler(b.sched)
	ledger.SetLogger(b.log)
	vault.AddHold(ledger)
	return ledger, nil
}

// NonFungible builds the token registry and registers it as a vault hold.
func (b *Builder) NonFungible(discriminant byte, vault *deposit.Vault) (*nonfungible.Registry, error) {
	root, err := b.Slot(discriminant, "nonfungible")
	if err != nil {
		return nil, err
	}
	registry := nonfungible.NewRegistry(root, vault)
	registry.SetEmitter(b.emitter)
	registry.SetScheduler(b.sched)
	registry.SetLogger(b.log)
	vault.AddHold(registry)
	return registry, nil
}

// Approvals builds an action-approval manager over the given policy.
// Free function because methods cannot introduce type parameters.
func Approvals[S any](b *Builder, discriminant byte, config approval.Configuration[S], exec approval.Executor) (*approval.Manager[S], error) {
	root, err := b.Slot(discriminant, "approvals")
	if err != nil {
		return nil, err
	}
	return approval.NewManager(root, config, exec), nil
}
