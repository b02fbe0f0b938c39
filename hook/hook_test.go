package hook

import (
	"errors"
	"testing"
)

func TestPreHookVetoAbortsMutation(t *testing.T) {
	var p Pipeline[int]
	veto := errors.New("nope")
	order := []string{}
	p.Pre(func(int) error {
		order = append(order, "pre1")
		return nil
	})
	p.Pre(func(int) error {
		order = append(order, "pre2")
		return veto
	})
	p.Pre(func(int) error {
		order = append(order, "pre3")
		return nil
	})
	mutated := false
	err := p.Run(0, func() error {
		mutated = true
		return nil
	})
	if !errors.Is(err, veto) {
		t.Fatalf("unexpected error %v", err)
	}
	if mutated {
		t.Fatalf("mutation ran after a pre-hook veto")
	}
	if len(order) != 2 || order[0] != "pre1" || order[1] != "pre2" {
		t.Fatalf("unexpected hook order %v", order)
	}
}

func TestHooksRunInDeclarationOrder(t *testing.T) {
	var p Pipeline[string]
	order := []string{}
	p.Pre(func(string) error { order = append(order, "pre1"); return nil },
		func(string) error { order = append(order, "pre2"); return nil })
	p.Post(func(string) error { order = append(order, "post1"); return nil })
	p.Post(func(string) error { order = append(order, "post2"); return nil })
	err := p.Run("x", func() error {
		order = append(order, "mutate")
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"pre1", "pre2", "mutate", "post1", "post2"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected order %v", order)
		}
	}
}

func TestPostHookErrorDoesNotRevert(t *testing.T) {
	var p Pipeline[int]
	cause := errors.New("bookkeeping failed")
	p.Post(func(int) error { return cause })
	mutated := false
	err := p.Run(0, func() error {
		mutated = true
		return nil
	})
	if !errors.Is(err, ErrPostHook) {
		t.Fatalf("expected ErrPostHook, got %v", err)
	}
	// The underlying failure stays matchable through the wrap.
	if !errors.Is(err, cause) {
		t.Fatalf("post-hook cause lost: %v", err)
	}
	if !mutated {
		t.Fatalf("mutation did not run")
	}
}

func TestMutationErrorSkipsPostHooks(t *testing.T) {
	var p Pipeline[int]
	postRan := false
	p.Post(func(int) error { postRan = true; return nil })
	failure := errors.New("mutation failed")
	err := p.Run(0, func() error { return failure })
	if !errors.Is(err, failure) {
		t.Fatalf("unexpected error %v", err)
	}
	if postRan {
		t.Fatalf("post-hook ran after a failed mutation")
	}
}
