package app

import (
	"errors"
	"fmt"
)

// Action names a long-running operation started from the shell.
type Action string

const (
	ActionStatus      Action = "status"
	ActionInstall     Action = "install"
	ActionUpdate      Action = "update"
	ActionUninstall   Action = "uninstall"
	ActionCheckUpdate Action = "check-update"
)

// ErrPanic wraps a panic recovered from a worker.
var ErrPanic = errors.New("worker panicked")

// Result is what a worker posts back to the shell.
type Result struct {
	Action Action
	Value  any
	Err    error
}

// Dispatcher runs one worker goroutine per action and hands the results
// back to the shell goroutine. Submit and Next must only be called from
// the shell goroutine; workers never touch the running flags.
type Dispatcher struct {
	running map[Action]bool
	results chan Result
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		running: make(map[Action]bool),
		results: make(chan Result, 8),
	}
}

// Submit starts fn in a new goroutine unless the same action is still
// running. It reports whether a worker was started.
func (d *Dispatcher) Submit(action Action, fn func() (any, error)) bool {
	if d.running[action] {
		return false
	}
	d.running[action] = true
	go func() {
		d.results <- run(action, fn)
	}()
	return true
}

func run(action Action, fn func() (any, error)) (r Result) {
	r.Action = action
	defer func() {
		if p := recover(); p != nil {
			r.Value, r.Err = nil, fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	r.Value, r.Err = fn()
	return r
}

// Running reports whether action has a worker in flight.
func (d *Dispatcher) Running(action Action) bool {
	return d.running[action]
}

// Next blocks for the next finished worker and clears its running flag.
func (d *Dispatcher) Next() Result {
	r := <-d.results
	d.running[r.Action] = false
	return r
}

// Await submits fn and waits for its result. Results of other actions that
// finish first are passed to other, if non-nil.
func (d *Dispatcher) Await(action Action, fn func() (any, error), other func(Result)) (Result, bool) {
	if !d.Submit(action, fn) {
		return Result{Action: action}, false
	}
	for {
		r := d.Next()
		if r.Action == action {
			return r, true
		}
		if other != nil {
			other(r)
		}
	}
}
