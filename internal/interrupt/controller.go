// Package interrupt owns the process-wide interrupt signal and translates it
// into the right action for whatever the agent is doing at that moment. A
// single Ctrl+C while a tool runs aborts the tool; during a turn it cancels
// the turn; at an idle prompt it clears the prompt; rapid repeats always force
// an exit, no matter what state the rest of the system thinks it is in.
package interrupt

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/floyd-ai/floyd/internal/consts"
	"github.com/floyd-ai/floyd/internal/logger"
)

// State describes what the agent is currently doing. The orchestration loop is
// the only writer, via SetState.
type State string

const (
	StateIdle          State = "idle"
	StateThinking      State = "thinking"
	StateToolExecuting State = "tool_executing"
	StateToolPending   State = "tool_pending"
	StateStreaming     State = "streaming"
)

// Action is what the embedding process should do in response to an interrupt.
type Action string

const (
	ActionClearPrompt Action = "clear_prompt"
	ActionConfirmExit Action = "confirm_exit"
	ActionCancelTurn  Action = "cancel_turn"
	ActionAbortTool   Action = "abort_tool"
	ActionForceExit   Action = "force_exit"
	ActionIgnore      Action = "ignore"
)

// Event is emitted for every handled interrupt.
type Event struct {
	State            State     `json:"state"`
	Action           Action    `json:"action"`
	ConsecutiveCount int       `json:"consecutive_count"`
	Timestamp        time.Time `json:"timestamp"`
}

// StateChange is emitted whenever SetState actually changes the state.
type StateChange struct {
	From State
	To   State
}

// Cancellation causes observed through context.Cause on operation contexts.
var (
	// ErrSuperseded is the cause when a new operation context replaces a live
	// one.
	ErrSuperseded = errors.New("superseded by new operation")
	// ErrUserInterrupt is the cause when the user interrupted the operation.
	ErrUserInterrupt = errors.New("user interrupt")
)

// Options configure interrupt escalation.
type Options struct {
	// ConsecutiveWindow is the span within which repeated interrupts escalate.
	// Zero means the default.
	ConsecutiveWindow time.Duration
	// ForceExitThreshold is the consecutive count that forces an exit. Zero
	// means the default.
	ForceExitThreshold int
	// Signal overrides the OS signal listened for. Nil means os.Interrupt.
	Signal os.Signal
}

// Controller is the single owner of the interrupt signal. Construct one per
// process, call Initialize to take over the signal, and Cleanup to hand it
// back.
type Controller struct {
	mu sync.Mutex

	state         State
	window        time.Duration
	threshold     int
	sig           os.Signal
	lastInterrupt time.Time
	consecutive   int

	// current operation context; at most one is live at any moment
	opCtx    context.Context
	opCancel context.CancelCauseFunc

	sigCh       chan os.Signal
	stopCh      chan struct{}
	wg          sync.WaitGroup
	initialized bool

	eventSubs []chan Event
	stateSubs []chan StateChange
}

// NewController creates a controller in the idle state. It does not install
// any signal handler until Initialize is called.
func NewController(opts Options) *Controller {
	window := opts.ConsecutiveWindow
	if window <= 0 {
		window = consts.DefaultConsecutiveWindow
	}
	threshold := opts.ForceExitThreshold
	if threshold <= 0 {
		threshold = consts.DefaultForceExitThreshold
	}
	sig := opts.Signal
	if sig == nil {
		sig = os.Interrupt
	}

	return &Controller{
		state:     StateIdle,
		window:    window,
		threshold: threshold,
		sig:       sig,
	}
}

// Initialize takes exclusive ownership of the interrupt signal. Calling it
// again while initialized is a no-op.
func (c *Controller) Initialize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return
	}

	c.sigCh = make(chan os.Signal, 1)
	c.stopCh = make(chan struct{})
	signal.Notify(c.sigCh, c.sig)
	c.initialized = true

	c.wg.Add(1)
	go c.run(c.sigCh, c.stopCh)

	logger.Debug("interrupt controller installed for %v", c.sig)
}

// Cleanup releases the signal, restoring the default disposition that was in
// effect before Initialize. Calling it again is a no-op.
func (c *Controller) Cleanup() {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return
	}
	signal.Stop(c.sigCh)
	close(c.stopCh)
	c.initialized = false
	c.mu.Unlock()

	c.wg.Wait()
	logger.Debug("interrupt controller removed for %v", c.sig)
}

func (c *Controller) run(sigCh chan os.Signal, stopCh chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-stopCh:
			return
		case <-sigCh:
			c.HandleInterrupt()
		}
	}
}

// SetState records what the agent is currently doing. A no-op transition emits
// nothing.
func (c *Controller) SetState(newState State) {
	c.mu.Lock()
	if c.state == newState {
		c.mu.Unlock()
		return
	}
	change := StateChange{From: c.state, To: newState}
	c.state = newState
	subs := make([]chan StateChange, len(c.stateSubs))
	copy(subs, c.stateSubs)
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- change:
		default:
		}
	}
}

// GetState returns the current state.
func (c *Controller) GetState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SubscribeEvents returns a channel receiving interrupt events. Slow consumers
// drop events rather than blocking the signal handler.
func (c *Controller) SubscribeEvents() <-chan Event {
	ch := make(chan Event, 16)
	c.mu.Lock()
	c.eventSubs = append(c.eventSubs, ch)
	c.mu.Unlock()
	return ch
}

// SubscribeStateChanges returns a channel receiving state transitions.
func (c *Controller) SubscribeStateChanges() <-chan StateChange {
	ch := make(chan StateChange, 16)
	c.mu.Lock()
	c.stateSubs = append(c.stateSubs, ch)
	c.mu.Unlock()
	return ch
}

// NewOperationContext derives a cancellable context for the next operation and
// returns it for explicit threading through the tool invocation. If a previous
// operation context is still live it is cancelled first with ErrSuperseded, so
// two overlapping operations can never both hold un-cancelled contexts.
func (c *Controller) NewOperationContext(parent context.Context) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opCancel != nil {
		c.opCancel(ErrSuperseded)
	}
	ctx, cancel := context.WithCancelCause(parent)
	c.opCtx = ctx
	c.opCancel = cancel
	return ctx
}

// Aborted reports whether the current operation context has been cancelled.
// False when no operation is outstanding.
func (c *Controller) Aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opCtx != nil && c.opCtx.Err() != nil
}

// ClearOperation releases the current operation context once the operation
// completes naturally. The context is cancelled (a completed operation has no
// further use for it) without the user-interrupt cause.
func (c *Controller) ClearOperation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opCancel != nil {
		c.opCancel(context.Canceled)
	}
	c.opCtx = nil
	c.opCancel = nil
}

// HandleInterrupt runs the escalation algorithm for one received interrupt and
// returns the resulting event. It is exported so front ends that intercept
// Ctrl+C themselves (e.g. a TUI with raw keyboard input) can feed interrupts
// through the same state machine.
func (c *Controller) HandleInterrupt() Event {
	now := time.Now()

	c.mu.Lock()
	if !c.lastInterrupt.IsZero() && now.Sub(c.lastInterrupt) < c.window {
		c.consecutive++
	} else {
		c.consecutive = 1
	}
	c.lastInterrupt = now

	state := c.state
	count := c.consecutive

	var action Action
	switch {
	case count >= c.threshold:
		// Rapid repeats always win: the escape hatch must work even if the
		// state machine is confused.
		action = ActionForceExit
	default:
		action = actionForState(state, count)
	}

	if action == ActionCancelTurn || action == ActionAbortTool {
		if c.opCancel != nil {
			c.opCancel(ErrUserInterrupt)
		}
	}

	event := Event{
		State:            state,
		Action:           action,
		ConsecutiveCount: count,
		Timestamp:        now,
	}
	subs := make([]chan Event, len(c.eventSubs))
	copy(subs, c.eventSubs)
	c.mu.Unlock()

	logger.Info("interrupt: state=%s action=%s consecutive=%d", state, action, count)

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
	return event
}

// actionForState maps the current state to an action for a non-forced
// interrupt.
func actionForState(state State, consecutive int) Action {
	switch state {
	case StateIdle:
		if consecutive >= 2 {
			return ActionConfirmExit
		}
		return ActionClearPrompt
	case StateThinking, StateToolPending, StateStreaming:
		return ActionCancelTurn
	case StateToolExecuting:
		return ActionAbortTool
	default:
		return ActionIgnore
	}
}
