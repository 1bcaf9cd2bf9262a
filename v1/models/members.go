package models

// Member represents a registered platform member. Members are never
// hard-deleted; withdrawal flips the status flag.
type Member struct {
	MemberID   string `gorm:"primarykey;column:member_id" json:"memberId"`
	Email      string `gorm:"column:email;not null;unique" json:"email"`
	Nickname   string `gorm:"column:nickname;not null;unique" json:"nickname"`
	Password   string `gorm:"column:password;not null" json:"-"`
	ProfileImg string `gorm:"column:profile_img" json:"profileImg"`
	Status     bool   `gorm:"column:member_status;not null;default:true" json:"memberStatus"`
	Role       Role   `gorm:"column:role;not null;default:member" json:"role"`
	BaseModel
}

// TableName sets the table name for GORM
func (Member) TableName() string {
	return "members"
}

// Point holds a member's accumulated point total. One row per member,
// created at signup and living as long as the member does.
type Point struct {
	PointID       string `gorm:"primarykey;column:point_id" json:"pointId"`
	MemberID      string `gorm:"column:member_id;not null;uniqueIndex" json:"memberId"`
	AcquiredPoint int64  `gorm:"column:acquired_point;not null;default:0" json:"acquiredPoint"`
	BaseModel
}

// TableName sets the table name for GORM
func (Point) TableName() string {
	return "points"
}

// PointHistory is an append-only log of point-earning events
type PointHistory struct {
	PointHistoryID string `gorm:"primarykey;column:point_history_id" json:"pointHistoryId"`
	MemberID       string `gorm:"column:member_id;not null;index" json:"memberId"`
	ChallengeID    string `gorm:"column:challenge_id" json:"challengeId"`
	EarnedPoint    int64  `gorm:"column:earned_point;not null" json:"earnedPoint"`
	BaseModel
}

// TableName sets the table name for GORM
func (PointHistory) TableName() string {
	return "point_histories"
}

// RefreshToken stores the latest refresh token issued to a member
type RefreshToken struct {
	TokenKey   string `gorm:"primarykey;column:token_key" json:"tokenKey"` // member email
	TokenValue string `gorm:"column:token_value;not null" json:"-"`
	BaseModel
}

// TableName sets the table name for GORM
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
