package telegram

import (
	"sync"
	"time"
)

// UserState represents the current state of a user's conversation
type UserState struct {
	UserID      int64
	CurrentStep Step
	Data        map[string]interface{}
	LastUpdated time.Time
}

// Step represents the current step in the conversation flow
type Step int

const (
	StepNone Step = iota
	StepAwaitCheque
	StepAwaitAmount
)

const (
	stateTTL        = 30 * time.Minute
	cleanupInterval = 5 * time.Minute
)

// StateManager manages user states
type StateManager struct {
	states map[int64]*UserState
	mu     sync.RWMutex
	now    func() time.Time
	done   chan struct{}
	once   sync.Once
}

// NewStateManager creates a new state manager and starts its cleanup loop
func NewStateManager() *StateManager {
	sm := newStateManager(time.Now)
	go sm.cleanup()
	return sm
}

func newStateManager(now func() time.Time) *StateManager {
	return &StateManager{
		states: make(map[int64]*UserState),
		now:    now,
		done:   make(chan struct{}),
	}
}

// getLocked gets or creates a user state. sm.mu must be held.
func (sm *StateManager) getLocked(userID int64) *UserState {
	if state, exists := sm.states[userID]; exists {
		state.LastUpdated = sm.now()
		return state
	}

	state := &UserState{
		UserID:      userID,
		CurrentStep: StepNone,
		Data:        make(map[string]interface{}),
		LastUpdated: sm.now(),
	}
	sm.states[userID] = state
	return state
}

// SetStep sets the current step for a user
func (sm *StateManager) SetStep(userID int64, step Step) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.getLocked(userID).CurrentStep = step
}

// SetData sets data for a user
func (sm *StateManager) SetData(userID int64, key string, value interface{}) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.getLocked(userID).Data[key] = value
}

// GetData gets data for a user
func (sm *StateManager) GetData(userID int64, key string) (interface{}, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	val, exists := sm.getLocked(userID).Data[key]
	return val, exists
}

// GetString gets string data for a user
func (sm *StateManager) GetString(userID int64, key string) string {
	val, _ := sm.GetData(userID, key)
	s, _ := val.(string)
	return s
}

// ClearState clears a user's state
func (sm *StateManager) ClearState(userID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.states, userID)
}

// GetCurrentStep gets the current step for a user
func (sm *StateManager) GetCurrentStep(userID int64) Step {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.getLocked(userID).CurrentStep
}

// Close stops the cleanup loop
func (sm *StateManager) Close() {
	sm.once.Do(func() { close(sm.done) })
}

// cleanup removes old states periodically
func (sm *StateManager) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sm.done:
			return
		case <-ticker.C:
			sm.expire()
		}
	}
}

func (sm *StateManager) expire() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	for userID, state := range sm.states {
		if now.Sub(state.LastUpdated) > stateTTL {
			delete(sm.states, userID)
		}
	}
}
