package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/cwangg897/OneDayPiece/pkg/errors"
	"github.com/cwangg897/OneDayPiece/v1/models"
)

func validCreateRequest(category models.CategoryName) *models.CreateChallengeRequest {
	return &models.CreateChallengeRequest{
		Title:     "morning run",
		Category:  category,
		StartDate: time.Now().Add(24 * time.Hour),
		EndDate:   time.Now().Add(14 * 24 * time.Hour),
	}
}

func TestCreateChallenge_Success(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	member := seedMember(t, db, 1)

	resp, err := service.CreateChallenge(validCreateRequest(models.CategoryExercise), member.Email)

	require.NoError(t, err)
	require.NotEmpty(t, resp.ChallengeID)

	var challenge models.Challenge
	require.NoError(t, db.First(&challenge, "challenge_id = ?", resp.ChallengeID).Error)
	assert.Equal(t, models.ProgressScheduled, challenge.Progress)
	assert.True(t, challenge.Status)
	assert.Equal(t, member.MemberID, challenge.MemberID)

	// The creator is enrolled as the first member.
	assert.Equal(t, int64(1), countLiveRecords(t, db, resp.ChallengeID))
}

func TestCreateChallenge_PasswordRule(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	member := seedMember(t, db, 1)

	// Empty password means an open challenge.
	open := validCreateRequest(models.CategoryExercise)
	open.Password = ""
	_, err := service.CreateChallenge(open, member.Email)
	require.NoError(t, err)

	// Too short is rejected.
	short := validCreateRequest(models.CategoryLivingHabits)
	short.Password = "ab"
	_, err = service.CreateChallenge(short, member.Email)
	apiErr := requireAPIErrorType(t, err, apierrors.ErrorTypeValidation)
	assert.Equal(t, "PASSWORD_TOO_SHORT", apiErr.Code)

	// Minimum length passes.
	locked := validCreateRequest(models.CategoryLivingHabits)
	locked.Password = "abcd"
	_, err = service.CreateChallenge(locked, member.Email)
	require.NoError(t, err)
}

func TestCreateChallenge_CategoryExclusive(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	member := seedMember(t, db, 1)

	first, err := service.CreateChallenge(validCreateRequest(models.CategoryExercise), member.Email)
	require.NoError(t, err)

	_, err = service.CreateChallenge(validCreateRequest(models.CategoryExercise), member.Email)
	apiErr := requireAPIErrorType(t, err, apierrors.ErrorTypeConflict)
	assert.Equal(t, "DUPLICATE_CATEGORY", apiErr.Code)

	// A different category is fine.
	_, err = service.CreateChallenge(validCreateRequest(models.CategoryLivingHabits), member.Email)
	require.NoError(t, err)

	// Once the first challenge ends, the category slot is free again.
	require.NoError(t, db.Model(&models.Challenge{}).
		Where("challenge_id = ?", first.ChallengeID).
		UpdateColumn("progress", models.ProgressEnded).Error)
	_, err = service.CreateChallenge(validCreateRequest(models.CategoryExercise), member.Email)
	require.NoError(t, err)
}

func TestCreateChallenge_CategoryExclusiveIgnoresJoinedChallenges(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	records := NewChallengeRecordService(db)

	creator := seedMember(t, db, 1)
	joiner := seedMember(t, db, 2)
	challenge := seedChallenge(t, db, "chl_1", creator, models.CategoryExercise,
		models.ProgressScheduled, time.Now().Add(24*time.Hour), time.Now().Add(48*time.Hour))
	require.NoError(t, records.RequestChallenge(challenge.ChallengeID, joiner.Email))

	// Only challenges the member created count against the category limit;
	// joining someone else's exercise challenge does not.
	_, err := service.CreateChallenge(validCreateRequest(models.CategoryExercise), joiner.Email)
	require.NoError(t, err)

	// The creator of chl_1 still holds the exercise slot.
	_, err = service.CreateChallenge(validCreateRequest(models.CategoryExercise), creator.Email)
	apiErr := requireAPIErrorType(t, err, apierrors.ErrorTypeConflict)
	assert.Equal(t, "DUPLICATE_CATEGORY", apiErr.Code)
}

func TestCreateChallenge_InvalidInput(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	member := seedMember(t, db, 1)

	noTitle := validCreateRequest(models.CategoryExercise)
	noTitle.Title = ""
	_, err := service.CreateChallenge(noTitle, member.Email)
	requireAPIErrorType(t, err, apierrors.ErrorTypeValidation)

	badCategory := validCreateRequest("GARDENING")
	_, err = service.CreateChallenge(badCategory, member.Email)
	requireAPIErrorType(t, err, apierrors.ErrorTypeValidation)

	backwards := validCreateRequest(models.CategoryExercise)
	backwards.StartDate, backwards.EndDate = backwards.EndDate, backwards.StartDate
	_, err = service.CreateChallenge(backwards, member.Email)
	requireAPIErrorType(t, err, apierrors.ErrorTypeValidation)
}

func TestUpdateChallenge_Success(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	member := seedMember(t, db, 1)

	created, err := service.CreateChallenge(validCreateRequest(models.CategoryExercise), member.Email)
	require.NoError(t, err)

	req := &models.UpdateChallengeRequest{
		ChallengeID: created.ChallengeID,
		Title:       "evening run",
		Category:    models.CategoryExercise,
		Description: "5km after work",
		StartDate:   time.Now().Add(48 * time.Hour),
		EndDate:     time.Now().Add(21 * 24 * time.Hour),
	}
	require.NoError(t, service.UpdateChallenge(req, member.Email))

	var challenge models.Challenge
	require.NoError(t, db.First(&challenge, "challenge_id = ?", created.ChallengeID).Error)
	assert.Equal(t, "evening run", challenge.Title)
	assert.Equal(t, "5km after work", challenge.Description)
}

func TestUpdateChallenge_OnlyCreator(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	creator := seedMember(t, db, 1)
	other := seedMember(t, db, 2)

	created, err := service.CreateChallenge(validCreateRequest(models.CategoryExercise), creator.Email)
	require.NoError(t, err)

	req := &models.UpdateChallengeRequest{
		ChallengeID: created.ChallengeID,
		Title:       "hijacked",
		Category:    models.CategoryExercise,
		StartDate:   time.Now().Add(24 * time.Hour),
		EndDate:     time.Now().Add(48 * time.Hour),
	}
	err = service.UpdateChallenge(req, other.Email)

	requireAPIErrorType(t, err, apierrors.ErrorTypeForbidden)
}

func TestUpdateChallenge_StartedOrDeleted(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	member := seedMember(t, db, 1)

	created, err := service.CreateChallenge(validCreateRequest(models.CategoryExercise), member.Email)
	require.NoError(t, err)

	req := &models.UpdateChallengeRequest{
		ChallengeID: created.ChallengeID,
		Title:       "late edit",
		Category:    models.CategoryExercise,
		StartDate:   time.Now().Add(24 * time.Hour),
		EndDate:     time.Now().Add(48 * time.Hour),
	}

	require.NoError(t, db.Model(&models.Challenge{}).
		Where("challenge_id = ?", created.ChallengeID).
		UpdateColumn("progress", models.ProgressInProgress).Error)
	apiErr := requireAPIErrorType(t, service.UpdateChallenge(req, member.Email), apierrors.ErrorTypeIllegalState)
	assert.Equal(t, "CHALLENGE_ALREADY_STARTED", apiErr.Code)

	require.NoError(t, db.Model(&models.Challenge{}).
		Where("challenge_id = ?", created.ChallengeID).
		UpdateColumn("challenge_status", false).Error)
	apiErr = requireAPIErrorType(t, service.UpdateChallenge(req, member.Email), apierrors.ErrorTypeIllegalState)
	assert.Equal(t, "CHALLENGE_DELETED", apiErr.Code)
}

func TestDeleteChallenge_BeforeStartCascades(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	records := NewChallengeRecordService(db)

	creator := seedMember(t, db, 1)
	joiner := seedMember(t, db, 2)

	created, err := service.CreateChallenge(validCreateRequest(models.CategoryExercise), creator.Email)
	require.NoError(t, err)
	require.NoError(t, records.RequestChallenge(created.ChallengeID, joiner.Email))

	require.NoError(t, service.DeleteChallenge(created.ChallengeID, creator.Email))

	var challenge models.Challenge
	require.NoError(t, db.First(&challenge, "challenge_id = ?", created.ChallengeID).Error)
	assert.False(t, challenge.Status)
	assert.Equal(t, models.ProgressEnded, challenge.Progress)
	assert.Equal(t, int64(0), countLiveRecords(t, db, created.ChallengeID), "all members withdrawn")

	// The freed slot lets the creator open the category again.
	_, err = service.CreateChallenge(validCreateRequest(models.CategoryExercise), creator.Email)
	require.NoError(t, err)
}

func TestDeleteChallenge_AfterStartRejected(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	member := seedMember(t, db, 1)

	created, err := service.CreateChallenge(validCreateRequest(models.CategoryExercise), member.Email)
	require.NoError(t, err)

	// Move the clock past the start date.
	service.clock = func() time.Time { return time.Now().Add(25 * time.Hour) }

	apiErr := requireAPIErrorType(t,
		service.DeleteChallenge(created.ChallengeID, member.Email), apierrors.ErrorTypeIllegalState)
	assert.Equal(t, "CHALLENGE_ALREADY_STARTED", apiErr.Code)
	assert.Equal(t, int64(1), countLiveRecords(t, db, created.ChallengeID))
}

func TestDeleteChallenge_OnlyCreator(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	creator := seedMember(t, db, 1)
	other := seedMember(t, db, 2)

	created, err := service.CreateChallenge(validCreateRequest(models.CategoryExercise), creator.Email)
	require.NoError(t, err)

	requireAPIErrorType(t, service.DeleteChallenge(created.ChallengeID, other.Email), apierrors.ErrorTypeForbidden)
}

func TestDeleteChallengeByAdmin_IgnoresProgress(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	creator := seedMember(t, db, 1)

	challenge := seedChallenge(t, db, "chl_1", creator, models.CategoryExercise,
		models.ProgressInProgress, time.Now().Add(-24*time.Hour), time.Now().Add(48*time.Hour))

	require.NoError(t, service.DeleteChallengeByAdmin(challenge.ChallengeID))

	var got models.Challenge
	require.NoError(t, db.First(&got, "challenge_id = ?", challenge.ChallengeID).Error)
	assert.False(t, got.Status)
	assert.Equal(t, models.ProgressEnded, got.Progress)
	assert.Equal(t, int64(0), countLiveRecords(t, db, challenge.ChallengeID))
}

func TestGetChallengeDetail(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)
	records := NewChallengeRecordService(db)

	creator := seedMember(t, db, 1)
	joiner := seedMember(t, db, 2)

	req := validCreateRequest(models.CategoryExercise)
	req.Password = "abcd"
	created, err := service.CreateChallenge(req, creator.Email)
	require.NoError(t, err)
	require.NoError(t, records.RequestChallenge(created.ChallengeID, joiner.Email))

	detail, err := service.GetChallengeDetail(created.ChallengeID)

	require.NoError(t, err)
	assert.Equal(t, created.ChallengeID, detail.ChallengeID)
	assert.True(t, detail.HasPassword)
	assert.Equal(t, []string{creator.MemberID, joiner.MemberID}, detail.MemberIDs)

	_, err = service.GetChallengeDetail("chl_missing")
	requireAPIErrorType(t, err, apierrors.ErrorTypeNotFound)
}

func TestGetChallengesByCategory_Paging(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)

	base := time.Now()
	// Eight scheduled exercise challenges from eight creators, newest first.
	for i := 0; i < 8; i++ {
		creator := seedMember(t, db, 10+i)
		id := fmt.Sprintf("chl_%d", i)
		seedChallenge(t, db, id, creator, models.CategoryExercise,
			models.ProgressScheduled, base.Add(24*time.Hour), base.Add(48*time.Hour))
		touchChallenge(t, db, id, base.Add(-time.Duration(i)*time.Minute))
	}
	// Noise that must not show up: other category, started, deleted.
	other := seedMember(t, db, 30)
	seedChallenge(t, db, "chl_other", other, models.CategoryLivingHabits,
		models.ProgressScheduled, base.Add(24*time.Hour), base.Add(48*time.Hour))
	started := seedMember(t, db, 31)
	seedChallenge(t, db, "chl_started", started, models.CategoryExercise,
		models.ProgressInProgress, base.Add(-24*time.Hour), base.Add(48*time.Hour))

	page1, err := service.GetChallengesByCategory(models.CategoryExercise, 1)
	require.NoError(t, err)
	require.Len(t, page1.Challenges, models.CategoryPageSize)
	assert.Equal(t, "chl_0", page1.Challenges[0].ChallengeID, "newest activity first")

	page2, err := service.GetChallengesByCategory(models.CategoryExercise, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Challenges, 2)

	_, err = service.GetChallengesByCategory("GARDENING", 1)
	requireAPIErrorType(t, err, apierrors.ErrorTypeValidation)
}

func TestSearchChallenges(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewChallengeService(db)

	start, end := time.Now().Add(24*time.Hour), time.Now().Add(48*time.Hour)
	a := seedMember(t, db, 1)
	b := seedMember(t, db, 2)
	run := seedChallenge(t, db, "chl_run", a, models.CategoryExercise, models.ProgressScheduled, start, end)
	require.NoError(t, db.Model(run).UpdateColumn("title", "morning run club").Error)
	walk := seedChallenge(t, db, "chl_walk", b, models.CategoryExercise, models.ProgressScheduled, start, end)
	require.NoError(t, db.Model(walk).UpdateColumn("title", "lunch walk").Error)

	resp, err := service.SearchChallenges("run", 1)
	require.NoError(t, err)
	require.Len(t, resp.Challenges, 1)
	assert.Equal(t, "chl_run", resp.Challenges[0].ChallengeID)

	empty, err := service.SearchChallenges("swim", 1)
	require.NoError(t, err)
	assert.Empty(t, empty.Challenges)

	_, err = service.SearchChallenges("", 1)
	requireAPIErrorType(t, err, apierrors.ErrorTypeValidation)
}
