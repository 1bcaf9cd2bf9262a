package models

// CategoryName represents the challenge categories offered by the platform
type CategoryName string

const (
	CategoryExercise       CategoryName = "EXERCISE"
	CategoryLivingHabits   CategoryName = "LIVINGHABITS"
	CategoryNoDrinkNoSmoke CategoryName = "NODRINKNOSMOKE"
)

// Categories lists every category in main-page rendering order
var Categories = []CategoryName{CategoryExercise, CategoryLivingHabits, CategoryNoDrinkNoSmoke}

// IsValid reports whether the category is one of the known enum values
func (c CategoryName) IsValid() bool {
	switch c {
	case CategoryExercise, CategoryLivingHabits, CategoryNoDrinkNoSmoke:
		return true
	}
	return false
}

// Progress represents the three-state challenge lifecycle. Transitions are
// monotone: Scheduled -> InProgress -> Ended.
type Progress int64

const (
	ProgressScheduled  Progress = 1
	ProgressInProgress Progress = 2
	ProgressEnded      Progress = 3
)

// Role represents member authorization roles
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Business rule constants
const (
	// MaxChallengeMembers caps live enrollment on a scheduled challenge, creator included
	MaxChallengeMembers = 10

	// MinPasswordLength is the minimum length for a non-empty challenge join password
	MinPasswordLength = 4

	// MainPopularSize bounds the popular list on the main page
	MainPopularSize = 4

	// MainCategorySize bounds each per-category highlight list on the main page
	MainCategorySize = 3

	// CategoryPageSize is the page size for category browsing and search
	CategoryPageSize = 6
)
