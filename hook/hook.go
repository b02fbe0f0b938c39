// Package hook provides ordered pre/post interceptor pipelines wrapped around
// mutating operations. Cross-cutting policies (pause, access gating, custom
// validation) attach to an operation without modifying it.
package hook

import (
	"errors"
	"fmt"
)

// ErrPostHook wraps a post-hook failure. The core mutation has already
// committed when a post-hook runs, so callers receiving this error must treat
// the mutation as applied.
var ErrPostHook = errors.New("hook: post-hook failed")

// Func inspects an operation's arguments and may veto it by returning an
// error.
type Func[A any] func(args A) error

// Pipeline wraps a mutating operation with ordered pre- and post-hooks. Hooks
// run in declaration order; ordering is deterministic and reproducible. The
// zero value is a pipeline with no hooks.
type Pipeline[A any] struct {
	pre  []Func[A]
	post []Func[A]
}

// Pre appends pre-hooks. Any pre-hook returning an error aborts the whole
// operation before any persistent write.
func (p *Pipeline[A]) Pre(fs ...Func[A]) *Pipeline[A] {
	p.pre = append(p.pre, fs...)
	return p
}

// Post appends post-hooks. Post-hooks run only after a successful mutation
// and may observe but not reverse it.
func (p *Pipeline[A]) Post(fs ...Func[A]) *Pipeline[A] {
	p.post = append(p.post, fs...)
	return p
}

// Run executes pre-hooks, then mutate, then post-hooks. A pre-hook or
// mutation error aborts with zero further effect. A post-hook error is
// returned wrapped in ErrPostHook; the committed mutation stands.
func (p *Pipeline[A]) Run(args A, mutate func() error) error {
	for _, f := range p.pre {
		if err := f(args); err != nil {
			return err
		}
	}
	if err := mutate(); err != nil {
		return err
	}
	for _, f := range p.post {
		if err := f(args); err != nil {
			return fmt.Errorf("%w: %w", ErrPostHook, err)
		}
	}
	return nil
}
