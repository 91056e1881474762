package api

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// PlanStore keeps created plans in memory, keyed by plan ID.
type PlanStore struct {
	mu    sync.Mutex
	plans map[string]Plan
}

func NewPlanStore() *PlanStore {
	return &PlanStore{
		plans: make(map[string]Plan),
	}
}

// Save assigns an ID when the plan has none and stores it.
func (s *PlanStore) Save(p Plan) Plan {
	if p.ID == "" {
		p.ID = newPlanID()
	}
	s.mu.Lock()
	s.plans[p.ID] = p
	s.mu.Unlock()
	return p
}

func (s *PlanStore) Get(id string) (Plan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	return p, ok
}

func (s *PlanStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return false
	}
	delete(s.plans, id)
	return true
}

// List returns stored plans, oldest first.
func (s *PlanStore) List() []Plan {
	s.mu.Lock()
	out := make([]Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func newPlanID() string {
	return "plan_" + uuid.NewString()
}
