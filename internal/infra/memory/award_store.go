package memory

import (
	"context"
	"sync"

	"progression-engine/internal/domain"
)

type awardKey struct {
	kind domain.AwardableKind
	id   string
}

// AwardStore keeps badge and achievement definitions in creation order.
type AwardStore struct {
	mu     sync.RWMutex
	awards map[awardKey]domain.Awardable
	order  []awardKey
}

func NewAwardStore() *AwardStore {
	return &AwardStore{awards: make(map[awardKey]domain.Awardable)}
}

func (s *AwardStore) Save(_ context.Context, award domain.Awardable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := awardKey{award.Kind, award.ID}
	if _, ok := s.awards[key]; !ok {
		s.order = append(s.order, key)
	}
	award.BundledBadges = append([]string(nil), award.BundledBadges...)
	s.awards[key] = award
	return nil
}

func (s *AwardStore) Get(_ context.Context, kind domain.AwardableKind, id string) (domain.Awardable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	award, ok := s.awards[awardKey{kind, id}]
	if !ok {
		return domain.Awardable{}, domain.ErrAwardNotFound
	}
	return award, nil
}

func (s *AwardStore) ListActive(_ context.Context, kind domain.AwardableKind) ([]domain.Awardable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Awardable
	for _, key := range s.order {
		if key.kind != kind {
			continue
		}
		if award := s.awards[key]; award.Active {
			out = append(out, award)
		}
	}
	return out, nil
}
