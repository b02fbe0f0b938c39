package nonfungible

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"

	"ledgerkit/deposit"
	"ledgerkit/events"
	"ledgerkit/host"
	"ledgerkit/slot"
	"ledgerkit/storage"
	"ledgerkit/types"
)

func newTestAddress(fill byte) types.Address {
	var addr types.Address
	copy(addr[:], bytes.Repeat([]byte{fill}, types.AddressLength))
	return addr
}

type fixture struct {
	registry *Registry
	vault    *deposit.Vault
	sched    *host.QueueScheduler
	emitter  *events.Capture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemKV()
	root := slot.Root(store, []byte("test"))
	vault := deposit.NewVault(root.Field(0x01), big.NewInt(1))
	registry := NewRegistry(root.Field(0x02), vault)
	sched := host.NewQueueScheduler()
	emitter := &events.Capture{}
	registry.SetEmitter(emitter)
	registry.SetScheduler(sched)
	return &fixture{registry: registry, vault: vault, sched: sched, emitter: emitter}
}

func (f *fixture) register(t *testing.T, accounts ...types.Address) {
	t.Helper()
	for _, account := range accounts {
		if _, err := f.vault.Deposit(account, big.NewInt(100_000)); err != nil {
			t.Fatalf("storage deposit: %v", err)
		}
	}
}

func (f *fixture) mint(t *testing.T, id TokenID, owner types.Address) {
	t.Helper()
	if err := f.registry.Mint(Mint{TokenID: id, Receiver: owner}); err != nil {
		t.Fatalf("mint %q: %v", id, err)
	}
}

func (f *fixture) owner(t *testing.T, id TokenID) types.Address {
	t.Helper()
	owner, err := f.registry.OwnerOf(id)
	if err != nil {
		t.Fatalf("owner of %q: %v", id, err)
	}
	return owner
}

func approvalID(v uint32) *uint32 { return &v }

func TestMint(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	f.register(t, alice)

	if err := f.registry.Mint(Mint{TokenID: "t1", Receiver: alice, Metadata: "first"}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := f.owner(t, "t1"); got != alice {
		t.Fatalf("owner = %s", got)
	}
	meta, err := f.registry.Metadata("t1")
	if err != nil || meta != "first" {
		t.Fatalf("metadata = %q err=%v", meta, err)
	}
	if err := f.registry.Mint(Mint{TokenID: "t1", Receiver: alice}); !errors.Is(err, ErrTokenExists) {
		t.Fatalf("duplicate mint: %v", err)
	}
	if _, err := f.registry.OwnerOf("missing"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("unknown token: %v", err)
	}
}

func TestMintRequiresStorageDeposit(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	if err := f.registry.Mint(Mint{TokenID: "t1", Receiver: alice}); !errors.Is(err, deposit.ErrNotRegistered) {
		t.Fatalf("mint without deposit: %v", err)
	}
}

func TestTransferExclusivity(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	bob := newTestAddress(0xBB)
	f.register(t, alice, bob)
	f.mint(t, "t1", alice)

	if err := f.registry.Transfer(Transfer{TokenID: "t1", Sender: alice, Receiver: bob}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := f.owner(t, "t1"); got != bob {
		t.Fatalf("owner = %s", got)
	}
	aliceTokens, err := f.registry.TokensByOwner(alice)
	if err != nil || len(aliceTokens) != 0 {
		t.Fatalf("alice index = %v err=%v", aliceTokens, err)
	}
	bobTokens, err := f.registry.TokensByOwner(bob)
	if err != nil || len(bobTokens) != 1 || bobTokens[0] != "t1" {
		t.Fatalf("bob index = %v err=%v", bobTokens, err)
	}
	// The old owner lost all rights.
	err = f.registry.Transfer(Transfer{TokenID: "t1", Sender: alice, Receiver: alice, ApprovalID: approvalID(1)})
	if !errors.Is(err, ErrSameSenderReceiver) && !errors.Is(err, ErrNotOwnerOrApproved) {
		t.Fatalf("stale owner transfer: %v", err)
	}
}

func TestTransferToSelfRejected(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	f.register(t, alice)
	f.mint(t, "t1", alice)

	err := f.registry.Transfer(Transfer{TokenID: "t1", Sender: alice, Receiver: alice})
	if !errors.Is(err, ErrSameSenderReceiver) {
		t.Fatalf("self transfer: %v", err)
	}
}

func TestApprovalIDsMonotonic(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	bob := newTestAddress(0xBB)
	carol := newTestAddress(0xCC)
	f.register(t, alice)
	f.mint(t, "t1", alice)

	first, err := f.registry.ApproveAccount(Approve{TokenID: "t1", Caller: alice, Account: bob})
	if err != nil || first != 1 {
		t.Fatalf("first approval = %d err=%v", first, err)
	}
	second, err := f.registry.ApproveAccount(Approve{TokenID: "t1", Caller: alice, Account: carol})
	if err != nil || second != 2 {
		t.Fatalf("second approval = %d err=%v", second, err)
	}
	if err := f.registry.Revoke("t1", alice, bob); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	// Revocation never rewinds the counter.
	third, err := f.registry.ApproveAccount(Approve{TokenID: "t1", Caller: alice, Account: bob})
	if err != nil || third != 3 {
		t.Fatalf("re-approval = %d err=%v", third, err)
	}
	// Re-approving the same account replaces the entry with a fresh id.
	fourth, _, err := f.registry.ApprovalIDFor("t1", bob)
	if err != nil || fourth != 3 {
		t.Fatalf("lookup = %d err=%v", fourth, err)
	}
}

func TestApprovedTransferRequiresExactID(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	bob := newTestAddress(0xBB)
	carol := newTestAddress(0xCC)
	f.register(t, alice, bob, carol)
	f.mint(t, "t1", alice)

	id, err := f.registry.ApproveAccount(Approve{TokenID: "t1", Caller: alice, Account: bob})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	stale := id + 7
	err = f.registry.Transfer(Transfer{TokenID: "t1", Sender: bob, Receiver: carol, ApprovalID: &stale})
	if !errors.Is(err, ErrNotOwnerOrApproved) {
		t.Fatalf("stale id: %v", err)
	}
	// Unapproved account cannot move the token at all.
	err = f.registry.Transfer(Transfer{TokenID: "t1", Sender: carol, Receiver: bob, ApprovalID: &id})
	if !errors.Is(err, ErrNotOwnerOrApproved) {
		t.Fatalf("unapproved sender: %v", err)
	}
	err = f.registry.Transfer(Transfer{TokenID: "t1", Sender: bob, Receiver: carol, ApprovalID: &id})
	if err != nil {
		t.Fatalf("approved transfer: %v", err)
	}
	if got := f.owner(t, "t1"); got != carol {
		t.Fatalf("owner = %s", got)
	}
}

func TestTransferClearsApprovals(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	bob := newTestAddress(0xBB)
	carol := newTestAddress(0xCC)
	f.register(t, alice, bob)
	f.mint(t, "t1", alice)

	id, err := f.registry.ApproveAccount(Approve{TokenID: "t1", Caller: alice, Account: carol})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := f.registry.Transfer(Transfer{TokenID: "t1", Sender: alice, Receiver: bob}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, ok, _ := f.registry.ApprovalIDFor("t1", carol); ok {
		t.Fatalf("approval survived transfer")
	}
	err = f.registry.Transfer(Transfer{TokenID: "t1", Sender: carol, Receiver: alice, ApprovalID: &id})
	if !errors.Is(err, ErrNotOwnerOrApproved) {
		t.Fatalf("cleared approval still usable: %v", err)
	}
	// The counter survives the clear: the new owner's first grant continues
	// the sequence instead of restarting it.
	next, err := f.registry.ApproveAccount(Approve{TokenID: "t1", Caller: bob, Account: carol})
	if err != nil || next != id+1 {
		t.Fatalf("post-transfer approval = %d err=%v", next, err)
	}
}

func TestApproveRequiresOwner(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	bob := newTestAddress(0xBB)
	f.register(t, alice)
	f.mint(t, "t1", alice)

	if _, err := f.registry.ApproveAccount(Approve{TokenID: "t1", Caller: bob, Account: bob}); !errors.Is(err, ErrNotTokenOwner) {
		t.Fatalf("non-owner approve: %v", err)
	}
	if err := f.registry.Revoke("t1", bob, alice); !errors.Is(err, ErrNotTokenOwner) {
		t.Fatalf("non-owner revoke: %v", err)
	}
	if err := f.registry.RevokeAll("t1", bob); !errors.Is(err, ErrNotTokenOwner) {
		t.Fatalf("non-owner revoke all: %v", err)
	}
}

func TestRevokeAll(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	bob := newTestAddress(0xBB)
	carol := newTestAddress(0xCC)
	f.register(t, alice)
	f.mint(t, "t1", alice)

	if _, err := f.registry.ApproveAccount(Approve{TokenID: "t1", Caller: alice, Account: bob}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.registry.ApproveAccount(Approve{TokenID: "t1", Caller: alice, Account: carol}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := f.registry.RevokeAll("t1", alice); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if _, ok, _ := f.registry.ApprovalIDFor("t1", bob); ok {
		t.Fatalf("bob approval survived")
	}
	if _, ok, _ := f.registry.ApprovalIDFor("t1", carol); ok {
		t.Fatalf("carol approval survived")
	}
	next, err := f.registry.ApproveAccount(Approve{TokenID: "t1", Caller: alice, Account: bob})
	if err != nil || next != 3 {
		t.Fatalf("post-revoke-all approval = %d err=%v", next, err)
	}
}

func TestEnumeration(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	bob := newTestAddress(0xBB)
	f.register(t, alice, bob)
	ids := []TokenID{"t1", "t2", "t3", "t4", "t5"}
	for i, id := range ids {
		owner := alice
		if i%2 == 1 {
			owner = bob
		}
		f.mint(t, id, owner)
	}

	all, err := f.registry.AllTokens(0, 0)
	if err != nil {
		t.Fatalf("all tokens: %v", err)
	}
	if len(all) != len(ids) {
		t.Fatalf("all tokens = %v", all)
	}
	page, err := f.registry.AllTokens(1, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("page = %v err=%v", page, err)
	}
	if page[0] != all[1] || page[1] != all[2] {
		t.Fatalf("page mismatch: %v vs %v", page, all)
	}
	tail, err := f.registry.AllTokens(4, 10)
	if err != nil || len(tail) != 1 {
		t.Fatalf("tail = %v err=%v", tail, err)
	}
	past, err := f.registry.AllTokens(99, 0)
	if err != nil || len(past) != 0 {
		t.Fatalf("past-end = %v err=%v", past, err)
	}

	aliceTokens, err := f.registry.TokensByOwner(alice)
	if err != nil || len(aliceTokens) != 3 {
		t.Fatalf("alice tokens = %v err=%v", aliceTokens, err)
	}
	bobTokens, err := f.registry.TokensByOwner(bob)
	if err != nil || len(bobTokens) != 2 {
		t.Fatalf("bob tokens = %v err=%v", bobTokens, err)
	}
}

func TestBurn(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	bob := newTestAddress(0xBB)
	f.register(t, alice)
	f.mint(t, "t1", alice)
	f.mint(t, "t2", alice)

	if err := f.registry.Burn("t1", bob, ""); !errors.Is(err, ErrNotTokenOwner) {
		t.Fatalf("non-owner burn: %v", err)
	}
	if err := f.registry.Burn("t1", alice, "done"); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if _, err := f.registry.OwnerOf("t1"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("burned token still resolvable: %v", err)
	}
	all, err := f.registry.AllTokens(0, 0)
	if err != nil || len(all) != 1 || all[0] != "t2" {
		t.Fatalf("all tokens after burn = %v err=%v", all, err)
	}
	if err := f.registry.Burn("t1", alice, ""); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("double burn: %v", err)
	}
}

func TestNotifyAccepted(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	bob := newTestAddress(0xBB)
	f.register(t, alice, bob)
	f.mint(t, "t1", alice)

	accept, err := rlp.EncodeToBytes(true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := f.registry.TransferAndNotify(Transfer{TokenID: "t1", Sender: alice, Receiver: bob}, "hi"); err != nil {
		t.Fatalf("transfer and notify: %v", err)
	}
	if err := f.sched.ResolveNext(host.CallResult{Ok: true, Value: accept}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := f.owner(t, "t1"); got != bob {
		t.Fatalf("owner = %s", got)
	}
}

func TestNotifyRejectedReverts(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	bob := newTestAddress(0xBB)
	f.register(t, alice, bob)
	f.mint(t, "t1", alice)

	if _, err := f.registry.TransferAndNotify(Transfer{TokenID: "t1", Sender: alice, Receiver: bob}, ""); err != nil {
		t.Fatalf("transfer and notify: %v", err)
	}
	// The optimistic move is visible until resolution.
	if got := f.owner(t, "t1"); got != bob {
		t.Fatalf("optimistic owner = %s", got)
	}
	if err := f.sched.ResolveNext(host.CallResult{Ok: false}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := f.owner(t, "t1"); got != alice {
		t.Fatalf("owner after revert = %s", got)
	}
	// The revert cleared any approvals granted by the interim owner.
	if _, ok, _ := f.registry.ApprovalIDFor("t1", bob); ok {
		t.Fatalf("interim approval survived revert")
	}
}

func TestNotifyRevertForfeitedWhenTokenMoved(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	bob := newTestAddress(0xBB)
	carol := newTestAddress(0xCC)
	f.register(t, alice, bob, carol)
	f.mint(t, "t1", alice)

	if _, err := f.registry.TransferAndNotify(Transfer{TokenID: "t1", Sender: alice, Receiver: bob}, ""); err != nil {
		t.Fatalf("transfer and notify: %v", err)
	}
	// Bob moves the token on before the call resolves.
	if err := f.registry.Transfer(Transfer{TokenID: "t1", Sender: bob, Receiver: carol}); err != nil {
		t.Fatalf("interleaved transfer: %v", err)
	}
	if err := f.sched.ResolveNext(host.CallResult{Ok: false}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// The rejection cannot claw the token back from carol.
	if got := f.owner(t, "t1"); got != carol {
		t.Fatalf("owner = %s", got)
	}
}

func TestHoldsValue(t *testing.T) {
	f := newFixture(t)
	alice := newTestAddress(0xAA)
	f.register(t, alice)
	if held, _ := f.registry.HoldsValue(alice); held {
		t.Fatalf("empty owner reported as holding")
	}
	f.mint(t, "t1", alice)
	if held, _ := f.registry.HoldsValue(alice); !held {
		t.Fatalf("token owner not reported")
	}
}
