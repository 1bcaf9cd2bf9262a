package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apierrors "github.com/cwangg897/OneDayPiece/pkg/errors"
	"github.com/cwangg897/OneDayPiece/pkg/monitoring"
	"github.com/cwangg897/OneDayPiece/v1/models"
)

// MemberService handles registration, authentication and the member's own
// views of the platform
type MemberService struct {
	db     *gorm.DB
	tokens *TokenProvider
}

// NewMemberService creates a new member service
func NewMemberService(db *gorm.DB, tokens *TokenProvider) *MemberService {
	return &MemberService{db: db, tokens: tokens}
}

// Signup registers a new member and their point row in one transaction
func (s *MemberService) Signup(req *models.SignupRequest) (*models.MemberResponse, error) {
	if req.Email == "" || req.Nickname == "" {
		return nil, apierrors.ValidationError("EMPTY_FIELDS", "email and nickname are required")
	}
	if len([]rune(req.Password)) < models.MinPasswordLength {
		return nil, apierrors.ValidationError("PASSWORD_TOO_SHORT",
			fmt.Sprintf("password must be at least %d characters", models.MinPasswordLength))
	}

	var count int64
	if err := s.db.Model(&models.Member{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, apierrors.DatabaseError("check email uniqueness", err)
	}
	if count > 0 {
		return nil, apierrors.ConflictError("EMAIL_IN_USE", "email is already registered")
	}
	if err := s.db.Model(&models.Member{}).Where("nickname = ?", req.Nickname).Count(&count).Error; err != nil {
		return nil, apierrors.DatabaseError("check nickname uniqueness", err)
	}
	if count > 0 {
		return nil, apierrors.ConflictError("NICKNAME_IN_USE", "nickname is already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierrors.InternalError("failed to hash password")
	}

	member := models.Member{
		MemberID:   "mem_" + uuid.New().String(),
		Email:      req.Email,
		Nickname:   req.Nickname,
		Password:   string(hashed),
		ProfileImg: req.ProfileImg,
		Status:     true,
		Role:       models.RoleMember,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&member).Error; err != nil {
			return apierrors.HandleDatabaseError(err, "member", "create member")
		}
		point := models.Point{
			PointID:  "pnt_" + uuid.New().String(),
			MemberID: member.MemberID,
		}
		if err := tx.Create(&point).Error; err != nil {
			return apierrors.HandleDatabaseError(err, "point", "create point row")
		}
		return nil
	})

	monitoring.RecordBusinessEvent(context.Background(), "member_signup", err == nil)
	if err != nil {
		return nil, err
	}

	slog.Info("Member signed up", "memberId", member.MemberID, "nickname", member.Nickname)
	return s.memberProfile(&member)
}

// Login verifies credentials and issues a token pair. The refresh token is
// stored per member, replacing any earlier one
func (s *MemberService) Login(req *models.LoginRequest) (*models.MemberTokenResponse, error) {
	member, err := findMemberByEmail(s.db, req.Email)
	if err != nil {
		if apiErr := apierrors.GetAPIError(err); apiErr != nil && apiErr.Type == apierrors.ErrorTypeNotFound {
			return nil, apierrors.UnauthorizedError("invalid email or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(member.Password), []byte(req.Password)) != nil {
		monitoring.RecordBusinessEvent(context.Background(), "member_login", false)
		return nil, apierrors.UnauthorizedError("invalid email or password")
	}

	tokenPair, err := s.tokens.GenerateTokenPair(member)
	if err != nil {
		return nil, apierrors.InternalError("failed to issue tokens")
	}
	if err := s.storeRefreshToken(member.Email, tokenPair.RefreshToken); err != nil {
		return nil, err
	}

	profile, err := s.memberProfile(member)
	if err != nil {
		return nil, err
	}

	monitoring.RecordBusinessEvent(context.Background(), "member_login", true)
	slog.Info("Member logged in", "memberId", member.MemberID)
	return &models.MemberTokenResponse{Token: *tokenPair, UserInfo: *profile}, nil
}

// Reissue rotates a token pair against the stored refresh token. The expired
// access token is still parsed so a pair holding tokens of two different
// members is rejected.
func (s *MemberService) Reissue(req *models.TokenReissueRequest) (*models.TokenResponse, error) {
	claims, err := s.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, apierrors.UnauthorizedError("invalid refresh token")
	}
	accessClaims, err := s.tokens.ParseToken(req.AccessToken, true)
	if err != nil || accessClaims.TokenType != models.TokenTypeAccess {
		return nil, apierrors.UnauthorizedError("invalid access token")
	}
	if accessClaims.Subject != claims.Subject {
		return nil, apierrors.UnauthorizedError("token pair mismatch")
	}

	var stored models.RefreshToken
	if err := s.db.First(&stored, "token_key = ?", claims.Subject).Error; err != nil {
		return nil, apierrors.UnauthorizedError("no refresh token on record")
	}
	if stored.TokenValue != req.RefreshToken {
		return nil, apierrors.UnauthorizedError("refresh token does not match")
	}

	member, err := findMemberByEmail(s.db, claims.Subject)
	if err != nil {
		return nil, err
	}
	tokenPair, err := s.tokens.GenerateTokenPair(member)
	if err != nil {
		return nil, apierrors.InternalError("failed to issue tokens")
	}
	if err := s.storeRefreshToken(member.Email, tokenPair.RefreshToken); err != nil {
		return nil, err
	}

	slog.Info("Token pair reissued", "memberId", member.MemberID)
	return tokenPair, nil
}

// Reload returns the member's current profile for the client to refresh
func (s *MemberService) Reload(email string) (*models.ReloadResponse, error) {
	member, err := findMemberByEmail(s.db, email)
	if err != nil {
		return nil, err
	}
	profile, err := s.memberProfile(member)
	if err != nil {
		return nil, err
	}
	return &models.ReloadResponse{UserInfo: *profile}, nil
}

// UpdatePassword changes the member's password after verifying the old one
func (s *MemberService) UpdatePassword(req *models.PasswordUpdateRequest, email string) error {
	member, err := findMemberByEmail(s.db, email)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(member.Password), []byte(req.CurrentPassword)) != nil {
		return apierrors.UnauthorizedError("current password does not match")
	}
	if len([]rune(req.NewPassword)) < models.MinPasswordLength {
		return apierrors.ValidationError("PASSWORD_TOO_SHORT",
			fmt.Sprintf("password must be at least %d characters", models.MinPasswordLength))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apierrors.InternalError("failed to hash password")
	}
	if err := s.db.Model(member).Update("password", string(hashed)).Error; err != nil {
		return apierrors.DatabaseError("update password", err)
	}

	slog.Info("Member password updated", "memberId", member.MemberID)
	return nil
}

// UpdateProfile changes nickname and profile image. Nickname uniqueness is
// re-checked only when it actually changes.
func (s *MemberService) UpdateProfile(req *models.ProfileUpdateRequest, email string) error {
	member, err := findMemberByEmail(s.db, email)
	if err != nil {
		return err
	}
	if req.Nickname == "" {
		return apierrors.ValidationError("EMPTY_NICKNAME", "nickname is required")
	}

	if req.Nickname != member.Nickname {
		var count int64
		if err := s.db.Model(&models.Member{}).Where("nickname = ?", req.Nickname).Count(&count).Error; err != nil {
			return apierrors.DatabaseError("check nickname uniqueness", err)
		}
		if count > 0 {
			return apierrors.ConflictError("NICKNAME_IN_USE", "nickname is already taken")
		}
	}

	updates := map[string]interface{}{
		"nickname":    req.Nickname,
		"profile_img": req.ProfileImg,
	}
	if err := s.db.Model(member).Updates(updates).Error; err != nil {
		return apierrors.DatabaseError("update profile", err)
	}

	slog.Info("Member profile updated", "memberId", member.MemberID)
	return nil
}

// GetMyChallenges lists the member's live participations in one progress
// state for the my-page tabs
func (s *MemberService) GetMyChallenges(email string, progress models.Progress) (*models.MyPageChallengesResponse, error) {
	member, err := findMemberByEmail(s.db, email)
	if err != nil {
		return nil, err
	}
	profile, err := s.memberProfile(member)
	if err != nil {
		return nil, err
	}

	var challenges []models.Challenge
	err = s.db.
		Joins("JOIN challenge_records ON challenge_records.challenge_id = challenges.challenge_id").
		Where("challenge_records.member_id = ? AND challenge_records.record_status = ?", member.MemberID, true).
		Where("challenges.progress = ?", progress).
		Order("challenges.updated_at desc").
		Find(&challenges).Error
	if err != nil {
		return nil, apierrors.DatabaseError("list my challenges", err)
	}

	rendered, err := renderChallengeList(s.db, challenges)
	if err != nil {
		return nil, err
	}
	return &models.MyPageChallengesResponse{UserInfo: *profile, Challenges: rendered}, nil
}

// GetPointHistory lists the member's earned-point events, newest first
func (s *MemberService) GetPointHistory(email string) (*models.PointHistoryResponse, error) {
	member, err := findMemberByEmail(s.db, email)
	if err != nil {
		return nil, err
	}
	profile, err := s.memberProfile(member)
	if err != nil {
		return nil, err
	}

	var histories []models.PointHistory
	if err := s.db.Where("member_id = ?", member.MemberID).
		Order("created_at desc").Find(&histories).Error; err != nil {
		return nil, apierrors.DatabaseError("list point history", err)
	}

	entries := make([]models.PointHistoryEntry, 0, len(histories))
	for _, h := range histories {
		entries = append(entries, models.PointHistoryEntry{
			ChallengeID: h.ChallengeID,
			EarnedPoint: h.EarnedPoint,
			CreatedAt:   h.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return &models.PointHistoryResponse{UserInfo: *profile, Histories: entries}, nil
}

// memberProfile shapes the profile view: point total, derived level, and the
// member's live participation count on non-ended challenges
func (s *MemberService) memberProfile(member *models.Member) (*models.MemberResponse, error) {
	var point models.Point
	var total int64
	err := s.db.First(&point, "member_id = ?", member.MemberID).Error
	switch {
	case err == nil:
		total = point.AcquiredPoint
	case errors.Is(err, gorm.ErrRecordNotFound):
		total = 0
	default:
		return nil, apierrors.DatabaseError("load member point", err)
	}

	var activeCount int64
	err = s.db.Model(&models.ChallengeRecord{}).
		Joins("JOIN challenges ON challenges.challenge_id = challenge_records.challenge_id").
		Where("challenge_records.member_id = ? AND challenge_records.record_status = ?", member.MemberID, true).
		Where("challenges.challenge_status = ? AND challenges.progress < ?", true, models.ProgressEnded).
		Count(&activeCount).Error
	if err != nil {
		return nil, apierrors.DatabaseError("count active participations", err)
	}

	return &models.MemberResponse{
		MemberID:       member.MemberID,
		Nickname:       member.Nickname,
		ProfileImg:     member.ProfileImg,
		Point:          total,
		MemberLevel:    models.LevelForPoints(total),
		ChallengeCount: int(activeCount),
	}, nil
}

// storeRefreshToken upserts the member's single refresh token row
func (s *MemberService) storeRefreshToken(email, tokenValue string) error {
	token := models.RefreshToken{TokenKey: email, TokenValue: tokenValue}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_value", "updated_at"}),
	}).Create(&token).Error
	if err != nil {
		return apierrors.DatabaseError("store refresh token", err)
	}
	return nil
}
