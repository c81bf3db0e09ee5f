package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"progression-engine/internal/domain"
)

// AwardStore keeps badge and achievement definitions as JSONB documents.
type AwardStore struct {
	db *bun.DB
}

func NewAwardStore(db *bun.DB) *AwardStore {
	return &AwardStore{db: db}
}

func (s *AwardStore) Save(ctx context.Context, award domain.Awardable) error {
	row := &awardRow{
		Kind:   string(award.Kind),
		ID:     award.ID,
		Active: award.Active,
		Data:   award,
	}
	_, err := s.db.NewInsert().
		Model(row).
		ExcludeColumn("seq").
		On("CONFLICT (kind, id) DO UPDATE").
		Set("active = EXCLUDED.active").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	return err
}

func (s *AwardStore) Get(ctx context.Context, kind domain.AwardableKind, id string) (domain.Awardable, error) {
	row := new(awardRow)
	err := s.db.NewSelect().
		Model(row).
		Where("kind = ?", string(kind)).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Awardable{}, domain.ErrAwardNotFound
	}
	if err != nil {
		return domain.Awardable{}, err
	}
	return row.Data, nil
}

func (s *AwardStore) ListActive(ctx context.Context, kind domain.AwardableKind) ([]domain.Awardable, error) {
	var rows []awardRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("kind = ?", string(kind)).
		Where("active").
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Awardable, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Data)
	}
	return out, nil
}
