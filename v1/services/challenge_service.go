package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apierrors "github.com/cwangg897/OneDayPiece/pkg/errors"
	"github.com/cwangg897/OneDayPiece/pkg/monitoring"
	"github.com/cwangg897/OneDayPiece/v1/models"
)

// ChallengeService handles challenge lifecycle and the curated browsing
// surfaces built on top of it
type ChallengeService struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewChallengeService creates a new challenge service
func NewChallengeService(db *gorm.DB) *ChallengeService {
	return &ChallengeService{db: db, clock: time.Now}
}

// CreateChallenge opens a new challenge and enrolls its creator as the first
// member, atomically. A member may run at most one non-ended active challenge
// per category, counted over their live participation records.
func (s *ChallengeService) CreateChallenge(req *models.CreateChallengeRequest, email string) (*models.CreateChallengeResponse, error) {
	member, err := findMemberByEmail(s.db, email)
	if err != nil {
		return nil, err
	}

	if err := validateChallengeInput(req.Title, req.Category, req.Password, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if err := s.checkCategoryExclusive(member.MemberID, req.Category, ""); err != nil {
		return nil, err
	}

	challenge := models.Challenge{
		ChallengeID: "chl_" + uuid.New().String(),
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Password:    req.Password,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		MemberID:    member.MemberID,
		Status:      true,
		Progress:    models.ProgressScheduled,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&challenge).Error; err != nil {
			return apierrors.HandleDatabaseError(err, "challenge", "create challenge")
		}
		record := models.ChallengeRecord{
			RecordID:    "rec_" + uuid.New().String(),
			ChallengeID: challenge.ChallengeID,
			MemberID:    member.MemberID,
			Status:      true,
		}
		if err := tx.Create(&record).Error; err != nil {
			return apierrors.HandleDatabaseError(err, "challenge record", "create creator record")
		}
		return nil
	})

	monitoring.RecordBusinessEvent(context.Background(), "challenge_create", err == nil)
	if err != nil {
		return nil, err
	}

	slog.Info("Challenge created",
		"challengeId", challenge.ChallengeID, "category", challenge.Category, "memberId", member.MemberID)
	return &models.CreateChallengeResponse{ChallengeID: challenge.ChallengeID}, nil
}

// UpdateChallenge mutates a scheduled challenge. Only the creator may edit,
// and only before the challenge starts.
func (s *ChallengeService) UpdateChallenge(req *models.UpdateChallengeRequest, email string) error {
	member, err := findMemberByEmail(s.db, email)
	if err != nil {
		return err
	}

	var challenge models.Challenge
	if err := s.db.First(&challenge, "challenge_id = ?", req.ChallengeID).Error; err != nil {
		return apierrors.HandleDatabaseError(err, "challenge", "find challenge")
	}

	if !challenge.Status {
		return apierrors.IllegalStateError("CHALLENGE_DELETED", "challenge has been deleted")
	}
	if challenge.MemberID != member.MemberID {
		return apierrors.ForbiddenError("only the challenge creator can edit it")
	}
	if challenge.Progress != models.ProgressScheduled {
		return apierrors.IllegalStateError("CHALLENGE_ALREADY_STARTED", "challenge has already started")
	}
	if err := validateChallengeInput(req.Title, req.Category, req.Password, req.StartDate, req.EndDate); err != nil {
		return err
	}
	if req.Category != challenge.Category {
		if err := s.checkCategoryExclusive(member.MemberID, req.Category, challenge.ChallengeID); err != nil {
			return err
		}
	}

	updates := map[string]interface{}{
		"title":       req.Title,
		"category":    req.Category,
		"description": req.Description,
		"password":    req.Password,
		"start_date":  req.StartDate,
		"end_date":    req.EndDate,
	}
	if err := s.db.Model(&challenge).Updates(updates).Error; err != nil {
		return apierrors.DatabaseError("update challenge", err)
	}

	slog.Info("Challenge updated", "challengeId", challenge.ChallengeID, "memberId", member.MemberID)
	return nil
}

// DeleteChallenge soft-deletes a challenge that has not started yet and
// withdraws every enrolled member. Creator only; a started challenge can no
// longer be deleted by its creator.
func (s *ChallengeService) DeleteChallenge(challengeID, email string) error {
	member, err := findMemberByEmail(s.db, email)
	if err != nil {
		return err
	}

	var challenge models.Challenge
	if err := s.db.First(&challenge, "challenge_id = ?", challengeID).Error; err != nil {
		return apierrors.HandleDatabaseError(err, "challenge", "find challenge")
	}

	if !challenge.Status {
		return apierrors.IllegalStateError("CHALLENGE_DELETED", "challenge has been deleted")
	}
	if challenge.MemberID != member.MemberID {
		return apierrors.ForbiddenError("only the challenge creator can delete it")
	}
	if !s.clock().Before(challenge.StartDate) {
		return apierrors.IllegalStateError("CHALLENGE_ALREADY_STARTED", "a started challenge cannot be deleted")
	}

	if err := s.softDeleteChallenge(&challenge); err != nil {
		return err
	}
	slog.Info("Challenge deleted", "challengeId", challengeID, "memberId", member.MemberID)
	return nil
}

// DeleteChallengeByAdmin soft-deletes any challenge regardless of progress
func (s *ChallengeService) DeleteChallengeByAdmin(challengeID string) error {
	var challenge models.Challenge
	if err := s.db.First(&challenge, "challenge_id = ?", challengeID).Error; err != nil {
		return apierrors.HandleDatabaseError(err, "challenge", "find challenge")
	}
	if err := s.softDeleteChallenge(&challenge); err != nil {
		return err
	}
	slog.Info("Challenge deleted by admin", "challengeId", challengeID)
	return nil
}

// softDeleteChallenge flips the challenge to deleted/ended and withdraws all
// of its records in one transaction
func (s *ChallengeService) softDeleteChallenge(challenge *models.Challenge) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"challenge_status": false,
			"progress":         models.ProgressEnded,
		}
		if err := tx.Model(&models.Challenge{}).
			Where("challenge_id = ?", challenge.ChallengeID).
			Updates(updates).Error; err != nil {
			return apierrors.DatabaseError("soft delete challenge", err)
		}
		if err := tx.Where("challenge_id = ?", challenge.ChallengeID).
			Delete(&models.ChallengeRecord{}).Error; err != nil {
			return apierrors.DatabaseError("cascade challenge records", err)
		}
		return nil
	})
}

// GetChallengeDetail returns one challenge with its enrolled member ids in
// enrollment order. The join password is never exposed, only its presence.
func (s *ChallengeService) GetChallengeDetail(challengeID string) (*models.ChallengeDetailResponse, error) {
	var challenge models.Challenge
	if err := s.db.First(&challenge, "challenge_id = ?", challengeID).Error; err != nil {
		return nil, apierrors.HandleDatabaseError(err, "challenge", "find challenge")
	}

	var records []models.ChallengeRecord
	if err := s.db.Where("challenge_id = ? AND record_status = ?", challengeID, true).
		Order("created_at asc").Find(&records).Error; err != nil {
		return nil, apierrors.DatabaseError("load challenge records", err)
	}
	memberIDs := make([]string, 0, len(records))
	for _, r := range records {
		memberIDs = append(memberIDs, r.MemberID)
	}

	return &models.ChallengeDetailResponse{
		ChallengeID: challenge.ChallengeID,
		Title:       challenge.Title,
		Category:    challenge.Category,
		Description: challenge.Description,
		HasPassword: challenge.Password != "",
		StartDate:   challenge.StartDate,
		EndDate:     challenge.EndDate,
		MemberID:    challenge.MemberID,
		Progress:    challenge.Progress,
		MemberIDs:   memberIDs,
		CreatedAt:   challenge.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   challenge.UpdatedAt.Format(time.RFC3339),
	}, nil
}

// GetChallengesByCategory pages through joinable (active, scheduled)
// challenges of one category, most recently touched first
func (s *ChallengeService) GetChallengesByCategory(category models.CategoryName, page int) (*models.ChallengeListResponse, error) {
	if !category.IsValid() {
		return nil, apierrors.ValidationError("INVALID_CATEGORY", fmt.Sprintf("unknown category: %s", category))
	}
	query := s.db.Where("category = ?", category)
	return s.listJoinable(query, page)
}

// SearchChallenges pages through joinable challenges whose title contains
// the search words
func (s *ChallengeService) SearchChallenges(words string, page int) (*models.ChallengeListResponse, error) {
	if words == "" {
		return nil, apierrors.ValidationError("EMPTY_SEARCH", "search words are required")
	}
	query := s.db.Where("title LIKE ?", "%"+words+"%")
	return s.listJoinable(query, page)
}

func (s *ChallengeService) listJoinable(query *gorm.DB, page int) (*models.ChallengeListResponse, error) {
	if page < 1 {
		page = 1
	}
	var challenges []models.Challenge
	err := query.
		Where("challenge_status = ? AND progress = ?", true, models.ProgressScheduled).
		Order("updated_at desc").
		Limit(models.CategoryPageSize).
		Offset((page - 1) * models.CategoryPageSize).
		Find(&challenges).Error
	if err != nil {
		return nil, apierrors.DatabaseError("list challenges", err)
	}

	rendered, err := renderChallengeList(s.db, challenges)
	if err != nil {
		return nil, err
	}
	return &models.ChallengeListResponse{Page: page, Challenges: rendered}, nil
}

// GetAllChallenges lists every challenge for the admin console
func (s *ChallengeService) GetAllChallenges() ([]models.Challenge, error) {
	var challenges []models.Challenge
	if err := s.db.Order("created_at desc").Find(&challenges).Error; err != nil {
		return nil, apierrors.DatabaseError("list all challenges", err)
	}
	return challenges, nil
}

// GetMainPage builds the curated home view for a logged-in member: a slider
// of their own in-progress challenges, the four most popular challenges, the
// first three distinct active challenges per category, and the count of
// challenges they have seen through to the end.
func (s *ChallengeService) GetMainPage(email string) (*models.MainPageResponse, error) {
	member, err := findMemberByEmail(s.db, email)
	if err != nil {
		return nil, err
	}
	return s.buildMainPage(member.MemberID)
}

// GetGuestMainPage builds the home view for anonymous visitors: no
// personalized slider, zero history count
func (s *ChallengeService) GetGuestMainPage() (*models.MainPageResponse, error) {
	return s.buildMainPage("")
}

func (s *ChallengeService) buildMainPage(viewerID string) (*models.MainPageResponse, error) {
	stream, challenges, err := s.fetchLiveStream()
	if err != nil {
		return nil, err
	}

	resp := &models.MainPageResponse{
		Slider:         []models.ChallengeSourceResponse{},
		Popular:        []models.ChallengeSourceResponse{},
		Exercise:       categoryHighlights(stream, challenges, models.CategoryExercise),
		LivingHabits:   categoryHighlights(stream, challenges, models.CategoryLivingHabits),
		NoDrinkNoSmoke: categoryHighlights(stream, challenges, models.CategoryNoDrinkNoSmoke),
	}

	resp.Popular = popularChallenges(stream, challenges)

	if viewerID != "" {
		resp.Slider = sliderFor(viewerID, stream, challenges)

		var historyCount int64
		err := s.db.Model(&models.ChallengeRecord{}).
			Joins("JOIN challenges ON challenges.challenge_id = challenge_records.challenge_id").
			Where("challenge_records.member_id = ? AND challenges.progress = ?", viewerID, models.ProgressEnded).
			Count(&historyCount).Error
		if err != nil {
			return nil, apierrors.DatabaseError("count challenge history", err)
		}
		resp.HistoryCount = historyCount
	}
	return resp, nil
}

// fetchLiveStream loads every live enrollment record, newest activity first,
// plus the active challenges they reference. The one stream feeds the slider
// and all three category sections.
func (s *ChallengeService) fetchLiveStream() ([]models.ChallengeRecord, map[string]models.Challenge, error) {
	fetchStart := time.Now()
	defer func() {
		monitoring.RecordDBLatency(context.Background(), "main_page_stream", time.Since(fetchStart))
	}()

	var stream []models.ChallengeRecord
	if err := s.db.Where("record_status = ?", true).
		Order("updated_at desc").Find(&stream).Error; err != nil {
		return nil, nil, apierrors.DatabaseError("load live records", err)
	}

	ids := make([]string, 0, len(stream))
	seen := make(map[string]bool, len(stream))
	for _, r := range stream {
		if !seen[r.ChallengeID] {
			seen[r.ChallengeID] = true
			ids = append(ids, r.ChallengeID)
		}
	}

	challenges := make(map[string]models.Challenge, len(ids))
	if len(ids) > 0 {
		var rows []models.Challenge
		if err := s.db.Where("challenge_id IN ? AND challenge_status = ?", ids, true).
			Find(&rows).Error; err != nil {
			return nil, nil, apierrors.DatabaseError("load stream challenges", err)
		}
		for _, c := range rows {
			challenges[c.ChallengeID] = c
		}
	}
	return stream, challenges, nil
}

// categoryHighlights walks the ordered stream once and collects the first
// distinct active, non-ended challenges of the given category
func categoryHighlights(stream []models.ChallengeRecord, challenges map[string]models.Challenge, category models.CategoryName) []models.ChallengeSourceResponse {
	out := make([]models.ChallengeSourceResponse, 0, models.MainCategorySize)
	picked := make(map[string]bool)
	for _, r := range stream {
		if len(out) == models.MainCategorySize {
			break
		}
		c, ok := challenges[r.ChallengeID]
		if !ok || picked[c.ChallengeID] {
			continue
		}
		if c.Category != category || c.Progress == models.ProgressEnded {
			continue
		}
		picked[c.ChallengeID] = true
		out = append(out, renderChallenge(c, memberIDsFromStream(stream, c.ChallengeID)))
	}
	return out
}

// sliderFor collects the viewer's own live participations from the stream,
// newest first. Any category, any progress; only deleted challenges drop out.
func sliderFor(viewerID string, stream []models.ChallengeRecord, challenges map[string]models.Challenge) []models.ChallengeSourceResponse {
	out := []models.ChallengeSourceResponse{}
	picked := make(map[string]bool)
	for _, r := range stream {
		if r.MemberID != viewerID || picked[r.ChallengeID] {
			continue
		}
		c, ok := challenges[r.ChallengeID]
		if !ok {
			continue
		}
		picked[c.ChallengeID] = true
		out = append(out, renderChallenge(c, memberIDsFromStream(stream, c.ChallengeID)))
	}
	return out
}

// popularChallenges keeps the challenges behind the four most recently
// touched live records, deduplicated to distinct challenges in stream order.
// Dedup can leave fewer than four entries.
func popularChallenges(stream []models.ChallengeRecord, challenges map[string]models.Challenge) []models.ChallengeSourceResponse {
	out := []models.ChallengeSourceResponse{}
	picked := make(map[string]bool)
	for i, r := range stream {
		if i == models.MainPopularSize {
			break
		}
		if picked[r.ChallengeID] {
			continue
		}
		c, ok := challenges[r.ChallengeID]
		if !ok || c.Progress == models.ProgressEnded {
			continue
		}
		picked[c.ChallengeID] = true
		out = append(out, renderChallenge(c, memberIDsFromStream(stream, c.ChallengeID)))
	}
	return out
}

// renderChallengeList shapes a challenge list with each entry's live members
func renderChallengeList(db *gorm.DB, challenges []models.Challenge) ([]models.ChallengeSourceResponse, error) {
	out := make([]models.ChallengeSourceResponse, 0, len(challenges))
	if len(challenges) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(challenges))
	for _, c := range challenges {
		ids = append(ids, c.ChallengeID)
	}
	var records []models.ChallengeRecord
	if err := db.Where("challenge_id IN ? AND record_status = ?", ids, true).
		Order("created_at asc").Find(&records).Error; err != nil {
		return nil, apierrors.DatabaseError("load challenge records", err)
	}
	byChallenge := make(map[string][]string, len(ids))
	for _, r := range records {
		byChallenge[r.ChallengeID] = append(byChallenge[r.ChallengeID], r.MemberID)
	}

	for _, c := range challenges {
		out = append(out, renderChallenge(c, byChallenge[c.ChallengeID]))
	}
	return out, nil
}

func renderChallenge(c models.Challenge, memberIDs []string) models.ChallengeSourceResponse {
	if memberIDs == nil {
		memberIDs = []string{}
	}
	return models.ChallengeSourceResponse{
		ChallengeID: c.ChallengeID,
		Title:       c.Title,
		Category:    c.Category,
		Description: c.Description,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		Progress:    c.Progress,
		MemberIDs:   memberIDs,
		MemberCount: len(memberIDs),
	}
}

// memberIDsFromStream collects a challenge's enrolled members out of the
// already-fetched record stream, avoiding one query per rendered entry
func memberIDsFromStream(stream []models.ChallengeRecord, challengeID string) []string {
	out := []string{}
	for _, r := range stream {
		if r.ChallengeID == challengeID {
			out = append(out, r.MemberID)
		}
	}
	return out
}

// checkCategoryExclusive rejects a category when the member already created
// an active, non-ended challenge of that category. Joining other members'
// challenges does not count against the limit.
func (s *ChallengeService) checkCategoryExclusive(memberID string, category models.CategoryName, excludeChallengeID string) error {
	query := s.db.Model(&models.Challenge{}).
		Where("member_id = ? AND challenge_status = ? AND progress < ? AND category = ?",
			memberID, true, models.ProgressEnded, category)
	if excludeChallengeID != "" {
		query = query.Where("challenge_id <> ?", excludeChallengeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apierrors.DatabaseError("check category exclusivity", err)
	}
	if count > 0 {
		return apierrors.ConflictError("DUPLICATE_CATEGORY",
			fmt.Sprintf("member already runs an active challenge in category %s", category))
	}
	return nil
}

// validateChallengeInput applies the shared create/update field rules
func validateChallengeInput(title string, category models.CategoryName, password string, start, end time.Time) error {
	if title == "" {
		return apierrors.ValidationError("EMPTY_TITLE", "title is required")
	}
	if !category.IsValid() {
		return apierrors.ValidationError("INVALID_CATEGORY", fmt.Sprintf("unknown category: %s", category))
	}
	if password != "" && len([]rune(password)) < models.MinPasswordLength {
		return apierrors.ValidationError("PASSWORD_TOO_SHORT",
			fmt.Sprintf("challenge password must be empty or at least %d characters", models.MinPasswordLength))
	}
	if start.IsZero() || end.IsZero() {
		return apierrors.ValidationError("EMPTY_DATES", "startDate and endDate are required")
	}
	if !end.After(start) {
		return apierrors.ValidationError("INVALID_DATES", "endDate must be after startDate")
	}
	return nil
}
