package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apierrors "github.com/cwangg897/OneDayPiece/pkg/errors"
	"github.com/cwangg897/OneDayPiece/v1/models"
)

const testPassword = "password123"

// seedMember inserts an active member with their point row
func seedMember(t *testing.T, db *gorm.DB, idx int) *models.Member {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	member := &models.Member{
		MemberID: fmt.Sprintf("mem_%03d", idx),
		Email:    fmt.Sprintf("user%03d@test.dev", idx),
		Nickname: fmt.Sprintf("user%03d", idx),
		Password: string(hashed),
		Status:   true,
		Role:     models.RoleMember,
	}
	require.NoError(t, db.Create(member).Error)
	require.NoError(t, db.Create(&models.Point{
		PointID:  "pnt_" + member.MemberID,
		MemberID: member.MemberID,
	}).Error)
	return member
}

// seedChallenge inserts a challenge with the creator's own enrollment record
func seedChallenge(t *testing.T, db *gorm.DB, id string, creator *models.Member, category models.CategoryName, progress models.Progress, start, end time.Time) *models.Challenge {
	t.Helper()
	challenge := &models.Challenge{
		ChallengeID: id,
		Title:       "challenge " + id,
		Category:    category,
		StartDate:   start,
		EndDate:     end,
		MemberID:    creator.MemberID,
		Status:      true,
		Progress:    progress,
	}
	require.NoError(t, db.Create(challenge).Error)
	seedRecord(t, db, challenge.ChallengeID, creator.MemberID)
	return challenge
}

// seedRecord inserts a live enrollment record
func seedRecord(t *testing.T, db *gorm.DB, challengeID, memberID string) *models.ChallengeRecord {
	t.Helper()
	record := &models.ChallengeRecord{
		RecordID:    fmt.Sprintf("rec_%s_%s", challengeID, memberID),
		ChallengeID: challengeID,
		MemberID:    memberID,
		Status:      true,
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

// touchRecord backdates a record's updated_at to control stream ordering.
// UpdateColumn skips the BaseModel hook that would overwrite the timestamp.
func touchRecord(t *testing.T, db *gorm.DB, recordID string, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&models.ChallengeRecord{}).
		Where("record_id = ?", recordID).
		UpdateColumn("updated_at", at).Error)
}

// requireAPIErrorType asserts that an error carries the given APIError type
func requireAPIErrorType(t *testing.T, err error, errorType apierrors.ErrorType) *apierrors.APIError {
	t.Helper()
	require.Error(t, err)
	apiErr := apierrors.GetAPIError(err)
	require.NotNil(t, apiErr, "expected an APIError, got %v", err)
	require.Equal(t, errorType, apiErr.Type, "unexpected error type for %v", err)
	return apiErr
}

// touchChallenge backdates a challenge's updated_at to control list ordering
func touchChallenge(t *testing.T, db *gorm.DB, challengeID string, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&models.Challenge{}).
		Where("challenge_id = ?", challengeID).
		UpdateColumn("updated_at", at).Error)
}

// countLiveRecords counts live records on one challenge
func countLiveRecords(t *testing.T, db *gorm.DB, challengeID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ChallengeRecord{}).
		Where("challenge_id = ? AND record_status = ?", challengeID, true).
		Count(&n).Error)
	return n
}
