package models

import "time"

// Request DTOs

// SignupRequest is the payload for member registration
type SignupRequest struct {
	Email      string `json:"email"`
	Nickname   string `json:"nickname"`
	Password   string `json:"password"`
	ProfileImg string `json:"profileImg"`
}

// LoginRequest is the payload for member login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenReissueRequest carries the token pair being rotated
type TokenReissueRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// PasswordUpdateRequest is the payload for changing a member's password
type PasswordUpdateRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ProfileUpdateRequest is the payload for changing nickname and profile image
type ProfileUpdateRequest struct {
	Nickname   string `json:"nickname"`
	ProfileImg string `json:"profileImg"`
}

// CreateChallengeRequest is the payload for opening a new challenge
type CreateChallengeRequest struct {
	Title       string       `json:"title"`
	Category    CategoryName `json:"category"`
	Description string       `json:"description"`
	Password    string       `json:"password"`
	StartDate   time.Time    `json:"startDate"`
	EndDate     time.Time    `json:"endDate"`
}

// UpdateChallengeRequest mutates a scheduled challenge in place
type UpdateChallengeRequest struct {
	ChallengeID string       `json:"challengeId"`
	Title       string       `json:"title"`
	Category    CategoryName `json:"category"`
	Description string       `json:"description"`
	Password    string       `json:"password"`
	StartDate   time.Time    `json:"startDate"`
	EndDate     time.Time    `json:"endDate"`
}

// KickRequest is the admin payload bulk-withdrawing members from challenges
type KickRequest struct {
	MemberIDs    []string `json:"memberIds"`
	ChallengeIDs []string `json:"challengeIds"`
}

// Response DTOs

// TokenResponse carries an issued token pair
type TokenResponse struct {
	GrantType            string `json:"grantType"`
	AccessToken          string `json:"accessToken"`
	RefreshToken         string `json:"refreshToken"`
	AccessTokenExpiresAt int64  `json:"accessTokenExpiresAt"`
}

// MemberResponse is the profile view of a member, levels included
type MemberResponse struct {
	MemberID       string `json:"memberId"`
	Nickname       string `json:"nickname"`
	ProfileImg     string `json:"profileImg"`
	Point          int64  `json:"point"`
	MemberLevel    int64  `json:"memberLevel"`
	ChallengeCount int    `json:"challengeCount"`
}

// MemberTokenResponse pairs a token grant with the member profile
type MemberTokenResponse struct {
	Token    TokenResponse  `json:"token"`
	UserInfo MemberResponse `json:"userInfo"`
}

// ReloadResponse refreshes the member profile on the client
type ReloadResponse struct {
	UserInfo MemberResponse `json:"userInfo"`
}

// ChallengeSourceResponse renders one challenge with its enrollment snapshot
type ChallengeSourceResponse struct {
	ChallengeID string       `json:"challengeId"`
	Title       string       `json:"title"`
	Category    CategoryName `json:"category"`
	Description string       `json:"description"`
	StartDate   time.Time    `json:"startDate"`
	EndDate     time.Time    `json:"endDate"`
	Progress    Progress     `json:"progress"`
	MemberIDs   []string     `json:"memberIds"`
	MemberCount int          `json:"memberCount"`
}

// MainPageResponse is the curated home view
type MainPageResponse struct {
	Slider         []ChallengeSourceResponse `json:"slider"`
	Popular        []ChallengeSourceResponse `json:"popular"`
	Exercise       []ChallengeSourceResponse `json:"exercise"`
	LivingHabits   []ChallengeSourceResponse `json:"livinghabits"`
	NoDrinkNoSmoke []ChallengeSourceResponse `json:"nodrinknosmoke"`
	HistoryCount   int64                     `json:"historyCount"`
}

// ChallengeDetailResponse is the full challenge view with enrolled members
type ChallengeDetailResponse struct {
	ChallengeID string       `json:"challengeId"`
	Title       string       `json:"title"`
	Category    CategoryName `json:"category"`
	Description string       `json:"description"`
	HasPassword bool         `json:"hasPassword"`
	StartDate   time.Time    `json:"startDate"`
	EndDate     time.Time    `json:"endDate"`
	MemberID    string       `json:"memberId"`
	Progress    Progress     `json:"progress"`
	MemberIDs   []string     `json:"memberIds"`
	CreatedAt   string       `json:"createdAt"`
	UpdatedAt   string       `json:"updatedAt"`
}

// CreateChallengeResponse returns the new challenge id
type CreateChallengeResponse struct {
	ChallengeID string `json:"challengeId"`
}

// ChallengeListResponse is one page of challenges for browsing or search
type ChallengeListResponse struct {
	Page       int                       `json:"page"`
	Challenges []ChallengeSourceResponse `json:"challenges"`
}

// MyPageChallengesResponse lists the member's participations in one
// progress state
type MyPageChallengesResponse struct {
	UserInfo   MemberResponse            `json:"userInfo"`
	Challenges []ChallengeSourceResponse `json:"challenges"`
}

// PointHistoryEntry is one earned-point event
type PointHistoryEntry struct {
	ChallengeID string `json:"challengeId"`
	EarnedPoint int64  `json:"earnedPoint"`
	CreatedAt   string `json:"createdAt"`
}

// PointHistoryResponse is the my-page history view
type PointHistoryResponse struct {
	UserInfo  MemberResponse      `json:"userInfo"`
	Histories []PointHistoryEntry `json:"histories"`
}

// KickResponse reports how many records an admin kick affected
type KickResponse struct {
	AffectedCount int64 `json:"affectedCount"`
}
