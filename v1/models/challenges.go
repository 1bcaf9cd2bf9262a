package models

import "time"

// Challenge represents a time-boxed group habit commitment created by one
// member and joined by others. Challenges are soft-deleted only: records may
// keep referencing them after withdrawal.
type Challenge struct {
	ChallengeID string       `gorm:"primarykey;column:challenge_id" json:"challengeId"`
	Title       string       `gorm:"column:title;not null" json:"title"`
	Category    CategoryName `gorm:"column:category;not null;index" json:"category"`
	Description string       `gorm:"column:description" json:"description"`
	Password    string       `gorm:"column:password" json:"-"` // empty = open challenge
	StartDate   time.Time    `gorm:"column:start_date;not null" json:"startDate"`
	EndDate     time.Time    `gorm:"column:end_date;not null" json:"endDate"`
	MemberID    string       `gorm:"column:member_id;not null;index" json:"memberId"` // creator, not reassignable
	Status      bool         `gorm:"column:challenge_status;not null;default:true" json:"challengeStatus"`
	Progress    Progress     `gorm:"column:progress;not null;default:1" json:"progress"`
	BaseModel
}

// TableName sets the table name for GORM
func (Challenge) TableName() string {
	return "challenges"
}

// ChallengeRecord links exactly one member to exactly one challenge. The
// uniqueness constraint on (challenge_id, member_id) enforces the
// one-live-record-per-pair invariant at the storage layer.
type ChallengeRecord struct {
	RecordID    string `gorm:"primarykey;column:record_id" json:"recordId"`
	ChallengeID string `gorm:"column:challenge_id;not null;uniqueIndex:idx_challenge_member" json:"challengeId"`
	MemberID    string `gorm:"column:member_id;not null;uniqueIndex:idx_challenge_member" json:"memberId"`
	Status      bool   `gorm:"column:record_status;not null;default:true" json:"recordStatus"`
	BaseModel
}

// TableName sets the table name for GORM
func (ChallengeRecord) TableName() string {
	return "challenge_records"
}
