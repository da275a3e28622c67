// Package session tracks per-user conversation state. Commands that need a
// follow-up message park the user in a phase; plain text messages are then
// routed by the phase instead of being echoed back.
package session

import (
	"math/big"
	"sync"
	"time"

	"github.com/hongbaolabs/hongbao/internal/metrics"
)

// Phase names what input the bot is waiting for.
type Phase string

const (
	PhaseGiftAmount  Phase = "gift_amount"
	PhaseGiftCount   Phase = "gift_count"
	PhaseClaimSecret Phase = "claim_secret"
	PhaseBetAmount   Phase = "bet_amount"
)

// State is one user's pending conversation. Amount is in wei.
type State struct {
	Phase     Phase
	Amount    *big.Int
	Count     int
	MarketID  uint64
	Option    uint8
	UpdatedAt time.Time
}

// Manager holds conversation states keyed by user id. All methods are safe
// for concurrent use.
type Manager struct {
	mu     sync.Mutex
	states map[int64]State
	now    func() time.Time
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]State),
		now:    time.Now,
	}
}

// Begin replaces any pending state for the user with a fresh one in the
// given phase. Starting a new flow abandons the old one.
func (m *Manager) Begin(userID int64, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state.UpdatedAt = m.now()
	if _, existed := m.states[userID]; !existed {
		metrics.ActiveConversations.Inc()
	}
	m.states[userID] = state
}

// Get returns a copy of the user's pending state.
func (m *Manager) Get(userID int64) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[userID]
	if ok && state.Amount != nil {
		state.Amount = new(big.Int).Set(state.Amount)
	}
	return state, ok
}

// Transition atomically rewrites the user's state. The callback sees the
// current state and returns the next one; it only runs when a state exists.
func (m *Manager) Transition(userID int64, fn func(State) State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[userID]
	if !ok {
		return false
	}
	next := fn(state)
	next.UpdatedAt = m.now()
	m.states[userID] = next
	return true
}

// Clear drops the user's pending state, if any.
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.states[userID]; ok {
		delete(m.states, userID)
		metrics.ActiveConversations.Dec()
	}
}

// expire removes states older than ttl and reports how many were dropped.
func (m *Manager) expire(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-ttl)
	dropped := 0
	for userID, state := range m.states {
		if state.UpdatedAt.Before(cutoff) {
			delete(m.states, userID)
			metrics.ActiveConversations.Dec()
			dropped++
		}
	}
	return dropped
}
