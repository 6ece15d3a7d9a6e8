package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"math-shorts-pipeline/internal/types"
)

// State of the provider fallback machine
type State int

const (
	TryRequested State = iota
	TryLocalDaemon
	TryLocalModel
	FallbackStatic
	Done
	Failed
)

var stateNames = [...]string{
	TryRequested:   "TRY_REQUESTED",
	TryLocalDaemon: "TRY_LOCAL_DAEMON",
	TryLocalModel:  "TRY_LOCAL_MODEL",
	FallbackStatic: "FALLBACK_STATIC",
	Done:           "DONE",
	Failed:         "FAILED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown script state %q", text)
}

// Terminal reports whether the machine stops in s
func (s State) Terminal() bool { return s == Done || s == Failed }

// next is the transition on failure. A requested provider skips the local
// chain and goes straight to the static fallback.
func (s State) next() State {
	switch s {
	case TryRequested:
		return FallbackStatic
	case TryLocalDaemon:
		return TryLocalModel
	case TryLocalModel:
		return FallbackStatic
	default:
		return Failed
	}
}

// Attempt records one provider call. Error mirrors Err for JSON readers.
type Attempt struct {
	State    State         `json:"state"`
	Provider string        `json:"provider"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

func newAttempt(state State, provider string, err error, elapsed time.Duration) Attempt {
	a := Attempt{State: state, Provider: provider, Err: err, Elapsed: elapsed}
	if err != nil {
		a.Error = err.Error()
	}
	return a
}

// Plan is the entry point of a machine run
type Plan struct {
	Start     State
	Requested string // provider name used in TryRequested
}

// PlanFor maps a resolved provider/model pair to its start state.
// "static" starts at the fallback, "auto" at the local daemon; a named
// provider, or a model with no provider, starts at TryRequested.
func PlanFor(provider, model string) Plan {
	switch provider {
	case "static":
		return Plan{Start: FallbackStatic}
	case "", "auto":
		if model != "" {
			return Plan{Start: TryRequested, Requested: "ollama"}
		}
		return Plan{Start: TryLocalDaemon}
	default:
		return Plan{Start: TryRequested, Requested: provider}
	}
}

// Machine walks the fallback states until one provider succeeds
type Machine struct {
	Requested map[string]Provider // providers addressable by name
	Daemon    Provider
	Local     Provider
	Static    Provider
	Log       *slog.Logger
}

// Outcome is the machine's final state with its attempt trail
type Outcome struct {
	Script   *types.Script
	Final    State
	Attempts []Attempt
}

// Run executes the machine from plan.Start
func (m *Machine) Run(ctx context.Context, plan Plan, req Request) Outcome {
	log := m.Log
	if log == nil {
		log = slog.Default()
	}
	out := Outcome{}
	state := plan.Start
	for !state.Terminal() {
		p := m.providerFor(state, plan.Requested)
		if p == nil {
			out.Attempts = append(out.Attempts, newAttempt(state, "", ErrUnavailable, 0))
			log.Debug("no provider for state", "state", state.String())
			state = state.next()
			continue
		}

		start := time.Now()
		s, err := p.Generate(ctx, req)
		if err == nil && s == nil {
			err = ErrEmptyResponse
		}
		out.Attempts = append(out.Attempts, newAttempt(state, p.Name(), err, time.Since(start)))
		if err != nil {
			log.Warn("provider failed, falling back", "state", state.String(), "provider", p.Name(), "err", err)
			// a cancelled run still reaches the static fallback, which never blocks
			state = state.next()
			continue
		}

		s.Provider = p.Name()
		out.Script = s
		log.Info("script generated", "state", state.String(), "provider", p.Name())
		state = Done
	}
	out.Final = state
	return out
}

func (m *Machine) providerFor(state State, requested string) Provider {
	switch state {
	case TryRequested:
		return m.Requested[requested]
	case TryLocalDaemon:
		return m.Daemon
	case TryLocalModel:
		return m.Local
	case FallbackStatic:
		return m.Static
	}
	return nil
}

// Err joins the attempt errors of a failed outcome
func (o Outcome) Err() error {
	if o.Final == Done {
		return nil
	}
	errs := make([]error, 0, len(o.Attempts))
	for _, a := range o.Attempts {
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.State, a.Err))
		}
	}
	if len(errs) == 0 {
		return errors.New("no provider attempted")
	}
	return errors.Join(errs...)
}
