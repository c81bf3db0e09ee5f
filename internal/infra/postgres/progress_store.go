package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"progression-engine/internal/domain"
)

// ProgressStore keeps user_progress rows and the point_ledger.
type ProgressStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewProgressStore(db *bun.DB) *ProgressStore {
	return &ProgressStore{db: db, now: time.Now}
}

func (s *ProgressStore) Get(ctx context.Context, userID string) (domain.UserProgress, error) {
	row := new(userRow)
	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserProgress{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserProgress{}, err
	}
	return row.toDomain(), nil
}

func (s *ProgressStore) Upsert(ctx context.Context, userID, displayName string) (domain.UserProgress, error) {
	now := s.now().UTC()
	row := &userRow{
		UserID:         userID,
		DisplayName:    displayName,
		Badges:         domain.OwnedSet{},
		Achievements:   domain.OwnedSet{},
		CourseProgress: domain.CourseProgress{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := s.db.NewInsert().
		Model(row).
		ExcludeColumn("seq").
		On("CONFLICT (user_id) DO UPDATE").
		Set("display_name = CASE WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name ELSE user_progress.display_name END").
		Exec(ctx)
	if err != nil {
		return domain.UserProgress{}, err
	}
	return s.Get(ctx, userID)
}

// Update locks the user row with SELECT ... FOR UPDATE, applies fn and writes
// the row plus queued ledger entries in the same transaction.
func (s *ProgressStore) Update(ctx context.Context, userID string, fn func(*domain.UserProgress) error) (domain.UserProgress, error) {
	var updated domain.UserProgress
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(userRow)
		err := tx.NewSelect().Model(row).Where("user_id = ?", userID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		progress := row.toDomain()
		if err := fn(&progress); err != nil {
			return err
		}
		progress.UpdatedAt = s.now().UTC()

		row.DisplayName = progress.DisplayName
		row.Points = progress.Points
		row.Badges = progress.Badges
		row.Achievements = progress.Achievements
		row.CourseProgress = progress.CourseProgress
		row.UpdatedAt = progress.UpdatedAt
		_, err = tx.NewUpdate().
			Model(row).
			Column("display_name", "points", "badges", "achievements", "course_progress", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}

		if len(progress.Credits) > 0 {
			entries := make([]ledgerRow, 0, len(progress.Credits))
			for _, c := range progress.Credits {
				entries = append(entries, ledgerRow{
					UserID:    c.UserID,
					Amount:    c.Amount,
					Source:    string(c.Source),
					RefID:     c.RefID,
					CreatedAt: c.CreatedAt,
				})
			}
			if _, err := tx.NewInsert().Model(&entries).Exec(ctx); err != nil {
				return err
			}
		}
		progress.Credits = nil
		updated = progress
		return nil
	})
	if err != nil {
		return domain.UserProgress{}, err
	}
	return updated, nil
}

func (s *ProgressStore) List(ctx context.Context) ([]domain.UserProgress, error) {
	var rows []userRow
	if err := s.db.NewSelect().Model(&rows).Order("seq ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.UserProgress, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *ProgressStore) CreditsSince(ctx context.Context, since time.Time) ([]domain.LedgerEntry, error) {
	var rows []ledgerRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("created_at >= ?", since).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.LedgerEntry{
			UserID:    r.UserID,
			Amount:    r.Amount,
			Source:    domain.CreditSource(r.Source),
			RefID:     r.RefID,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}
