package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a row addressed by id does not exist
var ErrNotFound = errors.New("record not found")

// User is the account row. Skills, interests and activity counts live in
// their own tables and are joined into analysis.UserProfile on read.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	IsSuspicious bool      `json:"is_suspicious" db:"is_suspicious"`
	TrustScore   int       `json:"trust_score" db:"trust_score"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Subject struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"subject_name" db:"subject_name"`
	TotalClasses int    `json:"total_classes" db:"total_classes"`
}

type AttendanceRecord struct {
	ID                   int64 `json:"id" db:"id"`
	UserID               int64 `json:"user_id" db:"user_id"`
	SubjectID            int64 `json:"subject_id" db:"subject_id"`
	ClassesAttended      int   `json:"classes_attended" db:"classes_attended"`
	RecentAbsences       int   `json:"recent_absences_last_5" db:"recent_absences_last_5"`
	DaysSinceLastPresent int   `json:"days_since_last_present" db:"days_since_last_present"`
}

// Project is a project requirement. RequiredSkills is parsed from the stored comma-separated list.
type Project struct {
	ID             int64    `json:"id" db:"id"`
	Name           string   `json:"project_name" db:"project_name"`
	Description    string   `json:"description" db:"description"`
	RequiredSkills []string `json:"required_skills" db:"required_skills"`
}

type Event struct {
	ID          int64  `json:"id" db:"id"`
	CreatorID   int64  `json:"creator_id" db:"creator_id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	Date        string `json:"date" db:"event_date"`
	Tags        string `json:"tags" db:"tags"`
}

type Message struct {
	ID         int64  `json:"id" db:"id"`
	SenderID   int64  `json:"sender_id" db:"sender_id"`
	ReceiverID int64  `json:"receiver_id" db:"receiver_id"`
	Content    string `json:"content" db:"content"`
}

// NewUser creates a user row with the default trust score
func NewUser(name, email string) *User {
	return &User{
		Name:       name,
		Email:      email,
		TrustScore: 50,
		CreatedAt:  time.Now().UTC(),
	}
}
