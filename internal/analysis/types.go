package analysis

import (
	"errors"
	"fmt"
)

// UserProfile is the population-level view of a user that every scorer consumes.
type UserProfile struct {
	ID               int64
	Name             string
	Skills           []string
	Interests        []string
	EventsCreated    int
	MessagesSent     int
	MessagesReceived int
	IsSuspicious     bool
	TrustScore       int
}

// AttendanceSample is one attendance record joined with its subject and owner counts.
type AttendanceSample struct {
	RecordID             int64
	UserID               int64
	SubjectID            int64
	SubjectName          string
	TotalClasses         int
	ClassesAttended      int
	RecentAbsences       int
	DaysSinceLastPresent int
	EventsCreated        int
	SkillCount           int
}

type Match struct {
	UserID int64   `json:"user_id"`
	Score  float64 `json:"similarity_score"`
}

type FlagReason string

const (
	FlagNone        FlagReason = ""
	FlagNoSkills    FlagReason = "no_skills"
	FlagMessageSpam FlagReason = "message_spam"
	FlagOutlier     FlagReason = "outlier"
)

type AnomalyDecision struct {
	UserID     int64
	Outlier    bool
	Flagged    bool
	Reason     FlagReason
	Score      float64
	TrustScore int
}

type AnomalyReport struct {
	Insufficient bool
	Decisions    []AnomalyDecision
	Flagged      int
}

type GapReport struct {
	MatchScore         int      `json:"match_score"`
	MissingSkills      []string `json:"missing_skills"`
	RecommendedCourses []string `json:"recommended_courses"`
}

type RiskPrediction struct {
	SubjectID            int64   `json:"subject_id"`
	Subject              string  `json:"subject"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	RiskProbability      float64 `json:"risk_probability"`
	Status               string  `json:"status"`
	Recommendation       string  `json:"recommendation"`
}

type SubjectSummary struct {
	SubjectID            int64   `json:"subject_id"`
	Subject              string  `json:"subject"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	ClassesAttended      int     `json:"classes_attended"`
	TotalClasses         int     `json:"total_classes"`
	CanBunkMore          int     `json:"can_bunk_more"`
	Status               string  `json:"status"`
	RecentAbsences       int     `json:"recent_absences_last_5"`
	DaysSinceLastPresent int     `json:"days_since_last_present"`
}

// InsufficientDataError reports that a population is too small or too uniform to fit a model.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s", e.Reason)
}

// ErrInsufficientData matches any *InsufficientDataError through errors.Is.
var ErrInsufficientData = &InsufficientDataError{}

func (e *InsufficientDataError) Is(target error) bool {
	_, ok := target.(*InsufficientDataError)
	return ok
}

// ErrNotInPopulation is returned when a target user is absent from the population slice.
var ErrNotInPopulation = errors.New("user not in population")

func insufficient(reason string) error {
	return &InsufficientDataError{Reason: reason}
}
