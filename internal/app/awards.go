package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"progression-engine/internal/domain"
	"progression-engine/internal/logger"
)

// AwardCoordinator grants badges and achievements whose criteria a user meets.
type AwardCoordinator struct {
	awards    AwardRepository
	progress  ProgressRepository
	attempts  AttemptRepository
	metrics   MetricSource
	notifier  Notifier
	evaluator CriteriaEvaluator
	log       *logger.Logger
	now       func() time.Time
}

// NewAwardCoordinator wires the coordinator. metrics and notifier may be nil.
func NewAwardCoordinator(awards AwardRepository, progress ProgressRepository, attempts AttemptRepository, metrics MetricSource, notifier Notifier, log *logger.Logger) *AwardCoordinator {
	return &AwardCoordinator{
		awards:   awards,
		progress: progress,
		attempts: attempts,
		metrics:  metrics,
		notifier: notifier,
		log:      log.With("component", "AwardCoordinator"),
		now:      time.Now,
	}
}

// CreateAwardable validates and stores a badge or achievement.
func (c *AwardCoordinator) CreateAwardable(ctx context.Context, award domain.Awardable) (domain.Awardable, error) {
	if err := domain.ValidateAwardable(award); err != nil {
		return domain.Awardable{}, err
	}
	if award.CreatedAt.IsZero() {
		award.CreatedAt = c.now().UTC()
	}
	if err := c.awards.Save(ctx, award); err != nil {
		return domain.Awardable{}, fmt.Errorf("save %s: %w", award.Kind, err)
	}
	return award, nil
}

// EvaluateAwards checks every active badge and achievement for the user.
func (c *AwardCoordinator) EvaluateAwards(ctx context.Context, userID string) (domain.AwardResult, error) {
	return c.evaluate(ctx, userID, true, true)
}

// CheckBadges checks active badges only.
func (c *AwardCoordinator) CheckBadges(ctx context.Context, userID string) (domain.AwardResult, error) {
	return c.evaluate(ctx, userID, true, false)
}

// Awardable returns one badge or achievement definition. Secret awards are
// reported as missing to non-privileged readers.
func (c *AwardCoordinator) Awardable(ctx context.Context, kind domain.AwardableKind, id string, privileged bool) (domain.Awardable, error) {
	award, err := c.awards.Get(ctx, kind, id)
	if err != nil {
		return domain.Awardable{}, err
	}
	if award.Secret && !privileged {
		return domain.Awardable{}, domain.ErrAwardNotFound
	}
	return award, nil
}

// CheckAchievements checks active achievements only. Badges bundled by a
// newly granted achievement are still granted and reported; a bundled badge
// whose own criteria are met is granted with its reward.
func (c *AwardCoordinator) CheckAchievements(ctx context.Context, userID string) (domain.AwardResult, error) {
	return c.evaluate(ctx, userID, false, true)
}

type awardInputs struct {
	badges       []domain.Awardable
	achievements []domain.Awardable
	scores       map[string]float64
	metrics      map[string]float64
}

func (c *AwardCoordinator) load(ctx context.Context, userID string, withAchievements bool) (awardInputs, error) {
	var in awardInputs
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Badges are always needed: achievements may bundle them.
		badges, err := c.awards.ListActive(gctx, domain.KindBadge)
		if err != nil {
			return fmt.Errorf("list badges: %w", err)
		}
		in.badges = badges
		return nil
	})
	if withAchievements {
		g.Go(func() error {
			achievements, err := c.awards.ListActive(gctx, domain.KindAchievement)
			if err != nil {
				return fmt.Errorf("list achievements: %w", err)
			}
			in.achievements = achievements
			return nil
		})
	}
	g.Go(func() error {
		scores, err := c.attempts.BestScores(gctx, userID)
		if err != nil {
			return fmt.Errorf("best scores: %w", err)
		}
		in.scores = scores
		return nil
	})
	if c.metrics != nil {
		g.Go(func() error {
			metrics, err := c.metrics.Metrics(gctx, userID)
			if err != nil {
				// Missing metrics only make metric-based criteria false.
				c.log.Warn("metrics unavailable", "user_id", userID, "error", err)
				return nil
			}
			in.metrics = metrics
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return awardInputs{}, err
	}
	return in, nil
}

func (c *AwardCoordinator) evaluate(ctx context.Context, userID string, withBadges, withAchievements bool) (domain.AwardResult, error) {
	in, err := c.load(ctx, userID, withAchievements)
	if err != nil {
		return domain.AwardResult{}, err
	}

	badgeIndex := make(map[string]domain.Awardable, len(in.badges))
	for _, b := range in.badges {
		badgeIndex[b.ID] = b
	}

	var result domain.AwardResult
	now := c.now().UTC()
	_, err = c.progress.Update(ctx, userID, func(p *domain.UserProgress) error {
		// Update may re-run fn; start from scratch every time.
		result = domain.AwardResult{}
		state := domain.UserState{QuizScores: in.scores, Metrics: in.metrics}

		if withBadges {
			for _, badge := range in.badges {
				if p.Owns(domain.KindBadge, badge.ID) {
					continue
				}
				state.Progress = *p
				if !c.evaluator.Satisfies(badge.Criteria, state) {
					continue
				}
				p.Grant(domain.KindBadge, badge.ID)
				p.Credit(badge.RewardPoints, domain.CreditBadge, badge.ID, now)
				result.Badges = append(result.Badges, grantOf(badge, ""))
			}
		}

		if withAchievements {
			for _, achievement := range in.achievements {
				if p.Owns(domain.KindAchievement, achievement.ID) {
					continue
				}
				state.Progress = *p
				if !c.evaluator.Satisfies(achievement.Criteria, state) {
					continue
				}
				p.Grant(domain.KindAchievement, achievement.ID)
				p.Credit(achievement.RewardPoints, domain.CreditAchievement, achievement.ID, now)
				result.Achievements = append(result.Achievements, grantOf(achievement, ""))

				for _, badgeID := range achievement.BundledBadges {
					badge, ok := badgeIndex[badgeID]
					if !ok {
						c.log.Warn("bundled badge not active", "achievement_id", achievement.ID, "badge_id", badgeID)
						continue
					}
					if p.Owns(domain.KindBadge, badgeID) {
						continue
					}
					p.Grant(domain.KindBadge, badgeID)
					// A bundled badge the user also earned on its own keeps its reward,
					// so the outcome does not depend on which check ran first.
					state.Progress = *p
					if c.evaluator.Satisfies(badge.Criteria, state) {
						p.Credit(badge.RewardPoints, domain.CreditBadge, badge.ID, now)
						result.Badges = append(result.Badges, grantOf(badge, ""))
						continue
					}
					result.Badges = append(result.Badges, grantOf(badge, achievement.ID))
				}
			}
		}
		return nil
	})
	if err != nil {
		return domain.AwardResult{}, err
	}

	c.announce(ctx, userID, result, now)
	return result, nil
}

func grantOf(a domain.Awardable, bundledBy string) domain.Grant {
	g := domain.Grant{
		Kind:      a.Kind,
		ID:        a.ID,
		Name:      a.Name,
		BundledBy: bundledBy,
	}
	if bundledBy == "" {
		g.RewardPoints = a.RewardPoints
	}
	return g
}

func (c *AwardCoordinator) announce(ctx context.Context, userID string, result domain.AwardResult, at time.Time) {
	grants := make([]domain.Grant, 0, len(result.Badges)+len(result.Achievements))
	grants = append(grants, result.Badges...)
	grants = append(grants, result.Achievements...)
	for _, g := range grants {
		c.log.Info("award granted", "user_id", userID, "kind", g.Kind, "award_id", g.ID, "points", g.RewardPoints)
		if c.notifier == nil {
			continue
		}
		err := c.notifier.Notify(ctx, domain.Notification{
			UserID:    userID,
			Kind:      g.Kind,
			ID:        g.ID,
			Name:      g.Name,
			AwardedAt: at,
		})
		if err != nil {
			c.log.Warn("notification dropped", "user_id", userID, "award_id", g.ID, "error", err)
		}
	}
}
