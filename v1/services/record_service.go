package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apierrors "github.com/cwangg897/OneDayPiece/pkg/errors"
	"github.com/cwangg897/OneDayPiece/pkg/monitoring"
	"github.com/cwangg897/OneDayPiece/v1/models"
)

// ChallengeRecordService owns enrollment state: the records linking members
// to the challenges they participate in
type ChallengeRecordService struct {
	db *gorm.DB
}

// NewChallengeRecordService creates a new challenge record service
func NewChallengeRecordService(db *gorm.DB) *ChallengeRecordService {
	return &ChallengeRecordService{db: db}
}

// RequestChallenge enrolls a member into a challenge. The capacity and
// duplicate checks run inside one transaction holding a row lock on the
// challenge, so two concurrent enrollments at 9/10 capacity cannot both
// commit. The (challenge_id, member_id) uniqueness constraint backs the
// duplicate guard as a second line of defense.
func (s *ChallengeRecordService) RequestChallenge(challengeID, email string) error {
	member, err := findMemberByEmail(s.db, email)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		query := tx
		// The row lock only exists on Postgres; SQLite test databases run
		// single-writer anyway.
		if tx.Dialector.Name() == "postgres" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var challenge models.Challenge
		if err := query.First(&challenge, "challenge_id = ?", challengeID).Error; err != nil {
			return apierrors.HandleDatabaseError(err, "challenge", "lock challenge")
		}

		var existing int64
		if err := tx.Model(&models.ChallengeRecord{}).
			Where("challenge_id = ? AND member_id = ? AND record_status = ?", challengeID, member.MemberID, true).
			Count(&existing).Error; err != nil {
			return apierrors.DatabaseError("count member record", err)
		}
		if existing > 0 {
			return apierrors.ConflictError("ALREADY_ENROLLED", "member already enrolled in this challenge")
		}

		var liveCount int64
		if err := tx.Model(&models.ChallengeRecord{}).
			Where("challenge_id = ? AND record_status = ?", challengeID, true).
			Count(&liveCount).Error; err != nil {
			return apierrors.DatabaseError("count challenge records", err)
		}
		if liveCount >= models.MaxChallengeMembers {
			return apierrors.ConflictError("CHALLENGE_FULL",
				fmt.Sprintf("challenge is limited to %d members", models.MaxChallengeMembers))
		}

		record := models.ChallengeRecord{
			RecordID:    "rec_" + uuid.New().String(),
			ChallengeID: challengeID,
			MemberID:    member.MemberID,
			Status:      true,
		}
		if err := tx.Create(&record).Error; err != nil {
			return apierrors.HandleDatabaseError(err, "challenge record", "create challenge record")
		}
		return nil
	})

	monitoring.RecordBusinessEvent(context.Background(), "challenge_enroll", err == nil)
	if err == nil {
		slog.Info("Member enrolled in challenge", "challengeId", challengeID, "memberId", member.MemberID)
	}
	return err
}

// GiveUpChallenge withdraws a member from a challenge. Withdrawing a member
// that is not enrolled is a no-op.
func (s *ChallengeRecordService) GiveUpChallenge(challengeID, email string) error {
	member, err := findMemberByEmail(s.db, email)
	if err != nil {
		return err
	}
	if err := findChallengeExists(s.db, challengeID); err != nil {
		return err
	}

	result := s.db.Where("challenge_id = ? AND member_id = ?", challengeID, member.MemberID).
		Delete(&models.ChallengeRecord{})
	if result.Error != nil {
		return apierrors.DatabaseError("delete challenge record", result.Error)
	}

	slog.Info("Member withdrew from challenge",
		"challengeId", challengeID, "memberId", member.MemberID, "deleted", result.RowsAffected)
	return nil
}

// KickMembers flags every live record matching the (member, challenge)
// cross product as inactive and reports how many records were affected
func (s *ChallengeRecordService) KickMembers(req *models.KickRequest) (*models.KickResponse, error) {
	if len(req.MemberIDs) == 0 || len(req.ChallengeIDs) == 0 {
		return nil, apierrors.ValidationError("EMPTY_KICK_REQUEST", "memberIds and challengeIds are required")
	}

	result := s.db.Model(&models.ChallengeRecord{}).
		Where("member_id IN ? AND challenge_id IN ? AND record_status = ?", req.MemberIDs, req.ChallengeIDs, true).
		Update("record_status", false)
	if result.Error != nil {
		return nil, apierrors.DatabaseError("kick members", result.Error)
	}

	slog.Info("Kicked members from challenges",
		"members", len(req.MemberIDs), "challenges", len(req.ChallengeIDs), "affected", result.RowsAffected)
	return &models.KickResponse{AffectedCount: result.RowsAffected}, nil
}

// findMemberByEmail resolves the acting member for a request identity
func findMemberByEmail(db *gorm.DB, email string) (*models.Member, error) {
	var member models.Member
	if err := db.First(&member, "email = ? AND member_status = ?", email, true).Error; err != nil {
		return nil, apierrors.HandleDatabaseError(err, "member", "find member by email")
	}
	return &member, nil
}

// findChallengeExists verifies a challenge id resolves to a stored challenge
func findChallengeExists(db *gorm.DB, challengeID string) error {
	var count int64
	if err := db.Model(&models.Challenge{}).Where("challenge_id = ?", challengeID).Count(&count).Error; err != nil {
		return apierrors.DatabaseError("count challenges", err)
	}
	if count == 0 {
		return apierrors.NotFoundError("challenge")
	}
	return nil
}
