package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apierrors "github.com/cwangg897/OneDayPiece/pkg/errors"
	"github.com/cwangg897/OneDayPiece/pkg/monitoring"
	"github.com/cwangg897/OneDayPiece/v1/models"
)

// CompletionPoint is awarded to every enrolled member when their challenge
// runs through to its end date
const CompletionPoint int64 = 100

// ProgressWorker advances challenge progress on a schedule. Transitions are
// monotone: scheduled challenges start once their start date passes, running
// challenges end once their end date passes. Ending a challenge pays the
// completion bonus into each live participant's point ledger.
type ProgressWorker struct {
	db            *gorm.DB
	sweepInterval time.Duration
	clock         func() time.Time
}

// NewProgressWorker creates a new progress worker
func NewProgressWorker(db *gorm.DB, sweepInterval time.Duration) *ProgressWorker {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &ProgressWorker{
		db:            db,
		sweepInterval: sweepInterval,
		clock:         time.Now,
	}
}

// Start runs the sweep loop until the context is cancelled
func (w *ProgressWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	slog.Info("Progress worker started", "sweepInterval", w.sweepInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Progress worker stopped")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				slog.Error("Progress sweep failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single sweep: start due challenges, end expired ones
func (w *ProgressWorker) RunOnce(ctx context.Context) error {
	now := w.clock()
	sweepStart := time.Now()
	defer func() {
		monitoring.RecordSweepDuration(ctx, time.Since(sweepStart))
	}()

	started := w.db.Model(&models.Challenge{}).
		Where("progress = ? AND challenge_status = ? AND start_date <= ?",
			models.ProgressScheduled, true, now).
		Update("progress", models.ProgressInProgress)
	if started.Error != nil {
		return apierrors.DatabaseError("start scheduled challenges", started.Error)
	}

	var ending []models.Challenge
	if err := w.db.Where("progress = ? AND end_date <= ?", models.ProgressInProgress, now).
		Find(&ending).Error; err != nil {
		return apierrors.DatabaseError("load ending challenges", err)
	}

	for i := range ending {
		if err := w.endChallenge(&ending[i]); err != nil {
			slog.Error("Failed to end challenge", "challengeId", ending[i].ChallengeID, "error", err)
			return err
		}
	}

	if started.RowsAffected > 0 || len(ending) > 0 {
		slog.Info("Progress sweep applied transitions",
			"started", started.RowsAffected, "ended", len(ending))
	}
	return nil
}

// endChallenge flips one challenge to ended and pays the completion bonus to
// its live participants, all in one transaction
func (w *ProgressWorker) endChallenge(challenge *models.Challenge) error {
	return w.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Challenge{}).
			Where("challenge_id = ? AND progress = ?", challenge.ChallengeID, models.ProgressInProgress).
			Update("progress", models.ProgressEnded)
		if result.Error != nil {
			return apierrors.DatabaseError("end challenge", result.Error)
		}
		if result.RowsAffected == 0 {
			// Another sweep got there first.
			return nil
		}

		var records []models.ChallengeRecord
		if err := tx.Where("challenge_id = ? AND record_status = ?", challenge.ChallengeID, true).
			Find(&records).Error; err != nil {
			return apierrors.DatabaseError("load participants", err)
		}

		for _, r := range records {
			if err := tx.Model(&models.Point{}).
				Where("member_id = ?", r.MemberID).
				Update("acquired_point", gorm.Expr("acquired_point + ?", CompletionPoint)).Error; err != nil {
				return apierrors.DatabaseError("award completion points", err)
			}
			history := models.PointHistory{
				PointHistoryID: "ph_" + uuid.New().String(),
				MemberID:       r.MemberID,
				ChallengeID:    challenge.ChallengeID,
				EarnedPoint:    CompletionPoint,
			}
			if err := tx.Create(&history).Error; err != nil {
				return apierrors.DatabaseError("write point history", err)
			}
		}
		return nil
	})
}
