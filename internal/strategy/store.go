// Package strategy stores user-authored automation rules.
package strategy

import (
	"sync"

	"github.com/google/uuid"

	"github.com/orbit-lab/orbit-trading/internal/scheduler"
	"github.com/orbit-lab/orbit-trading/internal/types"
	"github.com/orbit-lab/orbit-trading/pkg/errors"
	"github.com/orbit-lab/orbit-trading/pkg/schema"
)

// initialSuccessRate is the neutral starting point for a fresh strategy's
// success counter; triggered trades nudge it up or down from here.
const initialSuccessRate = 0.5

// successRateNudge is the fraction of the remaining headroom (or the current
// rate) moved per triggered trade.
const successRateNudge = 0.05

// Store owns every Strategy, keyed by id. All operations are synchronous and
// safe for concurrent use; ids are unique by construction.
type Store struct {
	sched scheduler.Scheduler

	mu         sync.RWMutex
	strategies map[string]*types.Strategy
	order      []string
}

// NewStore creates an empty strategy store.
func NewStore(sched scheduler.Scheduler) *Store {
	return &Store{
		sched:      sched,
		strategies: make(map[string]*types.Strategy),
	}
}

// Add validates the spec, assigns a new unique id, and stores the strategy
// with active defaulted to true.
func (s *Store) Add(spec types.StrategySpec) (types.Strategy, error) {
	if err := spec.Validate(); err != nil {
		return types.Strategy{}, err
	}

	strat := types.Strategy{
		ID:           uuid.NewString(),
		Symbol:       spec.Symbol,
		Indicator:    spec.Indicator,
		Direction:    spec.Direction,
		PositionSize: spec.PositionSize,
		Active:       true,
		CreatedAt:    s.sched.Now(),
		SuccessRate:  initialSuccessRate,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.strategies[strat.ID] = &strat
	s.order = append(s.order, strat.ID)

	return strat, nil
}

// Get returns a copy of the strategy with the given id.
func (s *Store) Get(id string) (types.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	strat, ok := s.strategies[id]
	if !ok {
		return types.Strategy{}, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy not found: %s", id)
	}

	return *strat, nil
}

// List returns copies of all strategies in insertion order.
func (s *Store) List() []types.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.Strategy, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, *s.strategies[id])
	}

	return result
}

// Active returns copies of all active strategies in insertion order.
func (s *Store) Active() []types.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.Strategy, 0, len(s.order))

	for _, id := range s.order {
		if s.strategies[id].Active {
			result = append(result, *s.strategies[id])
		}
	}

	return result
}

// Toggle flips the active flag and returns the updated strategy.
func (s *Store) Toggle(id string) (types.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	strat, ok := s.strategies[id]
	if !ok {
		return types.Strategy{}, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy not found: %s", id)
	}

	strat.Active = !strat.Active

	return *strat, nil
}

// Remove hard-deletes the strategy.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.strategies[id]; !ok {
		return errors.Newf(errors.ErrCodeStrategyNotFound, "strategy not found: %s", id)
	}

	delete(s.strategies, id)

	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)

			break
		}
	}

	return nil
}

// RecordTrigger updates the counters of a strategy after one of its signals
// produced a trade: increments the trigger count, adds the profit delta, and
// nudges the success rate toward 1 when improved or toward 0 otherwise.
func (s *Store) RecordTrigger(id string, profitDelta float64, improved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	strat, ok := s.strategies[id]
	if !ok {
		return errors.Newf(errors.ErrCodeStrategyNotFound, "strategy not found: %s", id)
	}

	strat.TriggeredCount++
	strat.CumulativeProfit += profitDelta

	if improved {
		strat.SuccessRate += (1 - strat.SuccessRate) * successRateNudge
	} else {
		strat.SuccessRate -= strat.SuccessRate * successRateNudge
	}

	return nil
}

// Count returns the number of stored strategies.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.strategies)
}

// SpecSchema returns the JSON schema for StrategySpec so external callers can
// render strategy forms.
func SpecSchema() (string, error) {
	return schema.ToJSONSchema(&types.StrategySpec{})
}
