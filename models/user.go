package models

import "time"

const (
	DefaultSubscription = "Free"
	MinProgress         = 0
	MaxProgress         = 100
)

// User is the stored account document
type User struct {
	ID               string         `json:"id"`
	Username         string         `json:"username"`
	Email            string         `json:"email"`
	PasswordHash     string         `json:"-"` // Never serialize password
	Subscription     string         `json:"subscription"`
	Progress         int            `json:"progress"`
	History          []HistoryEntry `json:"history"`
	CompletedCourses []string       `json:"completedCourses"`
	SavedPrograms    []SavedProgram `json:"savedPrograms"`
	CreatedAt        time.Time      `json:"-"`
	UpdatedAt        time.Time      `json:"-"`
}

// HistoryEntry records one practice submission
type HistoryEntry struct {
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// SavedProgram is a program the user stored from the editor
type SavedProgram struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUser returns a user with the registration defaults applied
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Username:         username,
		Email:            email,
		PasswordHash:     passwordHash,
		Subscription:     DefaultSubscription,
		Progress:         MinProgress,
		History:          []HistoryEntry{},
		CompletedCourses: []string{},
		SavedPrograms:    []SavedProgram{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ClampProgress bounds p to [MinProgress, MaxProgress]
func ClampProgress(p int) int {
	if p < MinProgress {
		return MinProgress
	}
	if p > MaxProgress {
		return MaxProgress
	}
	return p
}

// SetProgress stores p clamped and appends code to the history
func (u *User) SetProgress(p int, code string, at time.Time) {
	u.Progress = ClampProgress(p)
	u.History = append(u.History, HistoryEntry{Code: code, Timestamp: at})
}

// AddProgram appends a saved program
func (u *User) AddProgram(title, content string, at time.Time) {
	u.SavedPrograms = append(u.SavedPrograms, SavedProgram{Title: title, Content: content, Timestamp: at})
}

// CompleteCourse adds name unless it is already present. Reports whether it was added.
func (u *User) CompleteCourse(name string) bool {
	for _, c := range u.CompletedCourses {
		if c == name {
			return false
		}
	}
	u.CompletedCourses = append(u.CompletedCourses, name)
	return true
}

// ResetProgress clears progress and history. Saved programs are kept.
func (u *User) ResetProgress() {
	u.Progress = MinProgress
	u.History = []HistoryEntry{}
}

// Normalize replaces nil sequences with empty ones so they encode as []
func (u *User) Normalize() {
	if u.History == nil {
		u.History = []HistoryEntry{}
	}
	if u.CompletedCourses == nil {
		u.CompletedCourses = []string{}
	}
	if u.SavedPrograms == nil {
		u.SavedPrograms = []SavedProgram{}
	}
	if u.Subscription == "" {
		u.Subscription = DefaultSubscription
	}
}
