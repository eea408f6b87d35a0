// Package callsession tracks the calls this process is handling, keyed by
// call connection id.
package callsession

import (
	"sync"
	"time"
)

// Scenario is the flow a call belongs to.
type Scenario string

const (
	ScenarioIVR        Scenario = "ivr"
	ScenarioVoiceAgent Scenario = "voice-agent"
)

// Call is the per-call context the dispatchers act on.
type Call struct {
	CallConnectionID string
	ServerCallID     string
	CorrelationID    string
	Scenario         Scenario
	// Target is the participant recognition listens to.
	Target    string
	Connected bool
	CreatedAt time.Time
}

// Registry is a concurrency-safe map of live calls.
type Registry struct {
	mu    sync.RWMutex
	calls map[string]Call
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		calls: make(map[string]Call),
		now:   time.Now,
	}
}

// Reserve records a call that was placed but has not connected yet.
func (r *Registry) Reserve(call Call) {
	if call.CallConnectionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if call.CreatedAt.IsZero() {
		call.CreatedAt = r.now()
	}
	call.Connected = false
	r.calls[call.CallConnectionID] = call
}

// Connect marks a call connected, creating it if it was never reserved.
// Fields already known from the reservation are kept.
func (r *Registry) Connect(call Call) Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.calls[call.CallConnectionID]
	if !ok {
		existing = Call{CallConnectionID: call.CallConnectionID, CreatedAt: r.now()}
	}
	if call.ServerCallID != "" {
		existing.ServerCallID = call.ServerCallID
	}
	if call.CorrelationID != "" {
		existing.CorrelationID = call.CorrelationID
	}
	if existing.Scenario == "" {
		existing.Scenario = call.Scenario
	}
	if existing.Target == "" {
		existing.Target = call.Target
	}
	existing.Connected = true
	r.calls[call.CallConnectionID] = existing
	return existing
}

func (r *Registry) Get(callConnectionID string) (Call, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	call, ok := r.calls[callConnectionID]
	return call, ok
}

// Remove drops a call and reports whether it was known.
func (r *Registry) Remove(callConnectionID string) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.calls[callConnectionID]
	delete(r.calls, callConnectionID)
	return call, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.calls)
}
