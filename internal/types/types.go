package types

import "time"

// Recommendation is one peer suggested by skill overlap
type Recommendation struct {
	UserID          int64    `json:"user_id"`
	Name            string   `json:"name"`
	Skills          []string `json:"skills"`
	TrustScore      int      `json:"trust_score"`
	SimilarityScore float64  `json:"similarity_score"`
}

type RecommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

type DetectionResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Flagged   int    `json:"flagged"`
	Evaluated int    `json:"evaluated"`
}

type TrustScoreResponse struct {
	UserID     int64 `json:"user_id"`
	TrustScore int   `json:"trust_score"`
}

// SkillGapRequest selects the project to compare the caller against
type SkillGapRequest struct {
	ProjectID int64 `json:"project_id" binding:"required,gt=0"`
}

type SkillGapResponse struct {
	ProjectID          int64    `json:"project_id"`
	MatchScore         int      `json:"match_score"`
	MissingSkills      []string `json:"missing_skills"`
	RecommendedCourses []string `json:"recommended_courses"`
}

type TrainModelResponse struct {
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	ModelID    string    `json:"model_id"`
	Version    int       `json:"version"`
	SnapshotID string    `json:"snapshot_id"`
	Records    int       `json:"records"`
	AtRisk     int       `json:"at_risk"`
	Safe       int       `json:"safe"`
	TrainedAt  time.Time `json:"trained_at"`
}

type Prediction struct {
	SubjectID            int64   `json:"subject_id"`
	Subject              string  `json:"subject"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	RiskProbability      float64 `json:"risk_probability"`
	Status               string  `json:"status"`
	Recommendation       string  `json:"recommendation"`
}

type PredictionResponse struct {
	Predictions []Prediction `json:"predictions"`
}

type AttendanceEntry struct {
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

type AttendanceSummaryResponse struct {
	Attendance []AttendanceEntry `json:"attendance"`
}

// MarkAttendanceRequest records one class for the caller.
// Attended defaults to true when omitted.
type MarkAttendanceRequest struct {
	SubjectID int64 `json:"subject_id" binding:"required,gt=0"`
	Attended  *bool `json:"attended"`
}

type Project struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	RequiredSkills []string `json:"required_skills"`
}

type ProjectsResponse struct {
	Projects []Project `json:"projects"`
}

// InsufficientDataResponse is returned with 200 when a population cannot support a model
type InsufficientDataResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	// Dependencies maps each checked dependency to its check result
	Dependencies interface{}            `json:"dependencies,omitempty"`
	Pools        map[string]interface{} `json:"pools,omitempty"`
	Metrics      map[string]interface{} `json:"metrics,omitempty"`
}
