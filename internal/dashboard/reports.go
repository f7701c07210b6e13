package dashboard

import (
	"sync"

	"trading-signalsv1/internal/report"
)

// ReportStore keeps the most recent reports in memory.
type ReportStore struct {
	mu    sync.RWMutex
	limit int
	order []string
	byID  map[string]*report.Report
}

func NewReportStore(limit int) *ReportStore {
	if limit <= 0 {
		limit = 50
	}
	return &ReportStore{limit: limit, byID: make(map[string]*report.Report)}
}

// Put stores rep, evicting the oldest report past the limit.
func (s *ReportStore) Put(rep *report.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[rep.ID]; !ok {
		s.order = append(s.order, rep.ID)
	}
	s.byID[rep.ID] = rep
	for len(s.order) > s.limit {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *ReportStore) Get(id string) (*report.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.byID[id]
	return rep, ok
}

func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
