package gridcalc

import (
	"github.com/google/uuid"
)

// DiagnosticLevel indicates the severity of a diagnostic notification
type DiagnosticLevel uint8

const (
	LevelInfo DiagnosticLevel = 0
	LevelWarn DiagnosticLevel = 1
)

func (l DiagnosticLevel) String() string {
	if l == LevelWarn {
		return "WARN"
	}
	return "INFO"
}

// RawListener is notified after a cell's raw value changes
type RawListener func(id CellID, raw string)

// CalcListener is notified after a cell's calculated value is committed
type CalcListener func(id CellID, value CellValue)

// DiagnosticListener is notified of non-fatal engine diagnostics such as
// circular references and iteration limits
type DiagnosticListener func(level DiagnosticLevel, message string)

// Subscription is an opaque handle returned by the subscribe methods,
// used to unsubscribe
type Subscription string

type rawEntry struct {
	token Subscription
	fn    RawListener
}

type calcEntry struct {
	token Subscription
	fn    CalcListener
}

type diagEntry struct {
	token Subscription
	fn    DiagnosticListener
}

// ObserverRegistry delivers notifications synchronously, in
// subscriber-registration order, within the triggering call. a panicking
// subscriber is recovered so it cannot corrupt the triggering
// operation's invariants.
type ObserverRegistry struct {
	rawChanged  []rawEntry
	calcChanged []calcEntry
	diagnostics []diagEntry
}

// NewObserverRegistry creates an empty registry
func NewObserverRegistry() *ObserverRegistry {
	return &ObserverRegistry{}
}

// OnRawValueChanged registers a listener for raw value changes
func (r *ObserverRegistry) OnRawValueChanged(fn RawListener) Subscription {
	token := Subscription(uuid.NewString())
	r.rawChanged = append(r.rawChanged, rawEntry{token: token, fn: fn})
	return token
}

// OnCalculatedValueChanged registers a listener for calculated value
// commits
func (r *ObserverRegistry) OnCalculatedValueChanged(fn CalcListener) Subscription {
	token := Subscription(uuid.NewString())
	r.calcChanged = append(r.calcChanged, calcEntry{token: token, fn: fn})
	return token
}

// OnDiagnostic registers a listener for engine diagnostics
func (r *ObserverRegistry) OnDiagnostic(fn DiagnosticListener) Subscription {
	token := Subscription(uuid.NewString())
	r.diagnostics = append(r.diagnostics, diagEntry{token: token, fn: fn})
	return token
}

// Unsubscribe removes a listener by its subscription handle. returns
// true if a listener was removed.
func (r *ObserverRegistry) Unsubscribe(token Subscription) bool {
	for i, e := range r.rawChanged {
		if e.token == token {
			r.rawChanged = append(r.rawChanged[:i], r.rawChanged[i+1:]...)
			return true
		}
	}
	for i, e := range r.calcChanged {
		if e.token == token {
			r.calcChanged = append(r.calcChanged[:i], r.calcChanged[i+1:]...)
			return true
		}
	}
	for i, e := range r.diagnostics {
		if e.token == token {
			r.diagnostics = append(r.diagnostics[:i], r.diagnostics[i+1:]...)
			return true
		}
	}
	return false
}

func (r *ObserverRegistry) emitRawChanged(id CellID, raw string) {
	for _, e := range r.rawChanged {
		safeNotify(func() { e.fn(id, raw) })
	}
}

func (r *ObserverRegistry) emitCalcChanged(id CellID, value CellValue) {
	for _, e := range r.calcChanged {
		safeNotify(func() { e.fn(id, value) })
	}
}

func (r *ObserverRegistry) emitDiagnostic(level DiagnosticLevel, message string) {
	for _, e := range r.diagnostics {
		safeNotify(func() { e.fn(level, message) })
	}
}

// safeNotify runs a single listener, swallowing panics
func safeNotify(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
