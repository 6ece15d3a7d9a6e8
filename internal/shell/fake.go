package shell

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Call is one recorded invocation on a Fake
type Call struct {
	Name string
	Args []string
	Env  []string
}

// Line renders the call as a shell-like string for assertions
func (c Call) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Fake is a scripted Runner used by tests across packages.
// Handler decides the outcome of every Run; Missing lists binaries that
// LookPath reports as absent.
type Fake struct {
	Handler func(name string, args []string) ([]byte, error)
	Missing map[string]bool

	mu    sync.Mutex
	calls []Call
}

func (f *Fake) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f.RunEnv(ctx, nil, name, args...)
}

func (f *Fake) RunEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...), Env: env})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Missing[name] {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if f.Handler == nil {
		return nil, nil
	}
	return f.Handler(name, args)
}

func (f *Fake) LookPath(name string) (string, error) {
	if f.Missing[name] {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return "/usr/bin/" + name, nil
}

// Calls returns a copy of the recorded invocations
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo filters recorded invocations by binary name
func (f *Fake) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
