// Package reconcile repairs match pairs left with a single side by a failed
// two-sided write.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/metrics"
	"github.com/gdugdh24/soundmatch-backend/internal/repository"
)

const DefaultBatchSize = 100

type Job struct {
	tx           repository.Transactor
	profileRepo  repository.ProfileRepository
	matchRepo    repository.MatchRepository
	decisionRepo repository.DecisionRepository
	batch        int
	log          *zap.Logger
}

func NewJob(
	tx repository.Transactor,
	profileRepo repository.ProfileRepository,
	matchRepo repository.MatchRepository,
	decisionRepo repository.DecisionRepository,
	batch int,
	log *zap.Logger,
) *Job {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Job{
		tx:           tx,
		profileRepo:  profileRepo,
		matchRepo:    matchRepo,
		decisionRepo: decisionRepo,
		batch:        batch,
		log:          logger.OrNop(log).With(zap.String("component", "match-reconciler")),
	}
}

type Report struct {
	Scanned       int
	RolledForward int
	Deleted       int
	Skipped       int
	Failed        int
}

// Run makes one pass over orphan match sides. An active orphan whose pair
// still likes each other gets its missing side recreated; every other orphan
// is removed. A failure on one orphan does not stop the pass.
func (j *Job) Run(ctx context.Context) (Report, error) {
	var report Report

	orphans, err := j.matchRepo.ListOrphans(ctx, j.batch)
	if err != nil {
		return report, fmt.Errorf("list orphan matches: %w", err)
	}

	for i := range orphans {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Scanned++

		action, err := j.repair(ctx, orphans[i])
		if err != nil {
			report.Failed++
			j.log.Error("repair orphan match",
				logger.PartialFailure(),
				zap.String("match_id", orphans[i].ID),
				zap.Int64("profile_id", orphans[i].ProfileID),
				zap.Error(err))
			continue
		}

		switch action {
		case metrics.RepairRollForward:
			report.RolledForward++
		case metrics.RepairDelete:
			report.Deleted++
		default:
			report.Skipped++
			continue
		}
		metrics.RecordRepair(action)
		j.log.Info("repaired orphan match",
			logger.PartialFailure(),
			zap.String("match_id", orphans[i].ID),
			zap.Int64("profile_id", orphans[i].ProfileID),
			zap.String("status", string(orphans[i].Status)),
			zap.String("action", action))
	}
	return report, nil
}

// repair returns the action taken, or "" when the orphan was already gone
// or repaired by someone else.
func (j *Job) repair(ctx context.Context, orphan domain.Match) (string, error) {
	var action string
	err := j.tx.WithinTx(ctx, func(ctx context.Context) error {
		action = ""
		if err := j.profileRepo.LockPair(ctx, orphan.ProfileID, orphan.MatchedProfileID); err != nil {
			return fmt.Errorf("lock pair: %w", err)
		}

		sides, err := j.matchRepo.GetSides(ctx, orphan.ID)
		if err != nil {
			return fmt.Errorf("reload sides: %w", err)
		}
		if len(sides) != 1 || sides[0].ProfileID != orphan.ProfileID {
			return nil
		}
		current := sides[0]

		if current.Status == domain.MatchStatusActive {
			mutual, err := j.mutualLike(ctx, current.ProfileID, current.MatchedProfileID)
			if err != nil {
				return err
			}
			if mutual {
				mirror := domain.Match{
					ID:               current.ID,
					ProfileID:        current.MatchedProfileID,
					MatchedProfileID: current.ProfileID,
					Status:           domain.MatchStatusActive,
					CreatedAt:        current.CreatedAt,
				}
				if _, err := j.matchRepo.Create(ctx, &mirror); err != nil {
					return fmt.Errorf("create missing side: %w", err)
				}
				action = metrics.RepairRollForward
				return nil
			}
		}

		if _, err := j.matchRepo.DeleteSide(ctx, current.ID, current.ProfileID); err != nil {
			return fmt.Errorf("delete orphan side: %w", err)
		}
		action = metrics.RepairDelete
		return nil
	})
	return action, err
}

func (j *Job) mutualLike(ctx context.Context, a, b int64) (bool, error) {
	ab, err := j.decisionRepo.HasLiked(ctx, a, b)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	if !ab {
		return false, nil
	}
	ba, err := j.decisionRepo.HasLiked(ctx, b, a)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return ba, nil
}

// Loop runs a pass every interval until ctx is cancelled.
func (j *Job) Loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.log.Info("match reconciler started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			j.log.Info("match reconciler stopped")
			return nil
		case <-ticker.C:
			report, err := j.Run(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				j.log.Warn("reconcile pass failed", zap.Error(err))
				continue
			}
			if report.Scanned > 0 {
				j.log.Info("reconcile pass finished",
					zap.Int("scanned", report.Scanned),
					zap.Int("rolled_forward", report.RolledForward),
					zap.Int("deleted", report.Deleted),
					zap.Int("skipped", report.Skipped),
					zap.Int("failed", report.Failed))
			}
		}
	}
}
