package users

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for a uid.
	ErrNotFound = errors.New("user not found")
	// ErrQuotaExceeded is returned by ReservePrompt once the plan limit is reached.
	ErrQuotaExceeded = errors.New("prompt limit reached")
)

// Plan names.
const (
	PlanFree = "free"
	PlanPro  = "pro"
	PlanMax  = "max"
)

// User is the record kept for each identity.
type User struct {
	UID         string    `json:"uid"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Plan        string    `json:"plan"`
	IsAdmin     bool      `json:"isAdmin"`
	PromptsUsed int       `json:"promptsUsed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PromptLimit returns the number of generations allowed on plan. Unknown plans get the free limit.
func PromptLimit(plan string) int {
	switch plan {
	case PlanPro:
		return 100
	case PlanMax:
		return 500
	default:
		return 5
	}
}

// Limit is the prompt limit of the user's plan.
func (u *User) Limit() int {
	return PromptLimit(u.Plan)
}
