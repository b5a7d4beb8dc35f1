package analysis

import "strings"

// AtRiskThreshold is the attendance percentage below which a record is labelled at risk.
const AtRiskThreshold = 75.0

type UserFeatures struct {
	SkillCount       int
	InterestCount    int
	EventsCreated    int
	MessagesSent     int
	MessagesReceived int
}

func ExtractUserFeatures(u UserProfile) UserFeatures {
	return UserFeatures{
		SkillCount:       len(u.Skills),
		InterestCount:    len(u.Interests),
		EventsCreated:    u.EventsCreated,
		MessagesSent:     u.MessagesSent,
		MessagesReceived: u.MessagesReceived,
	}
}

// AnomalyFeatures is the isolation forest input, ordered (skills, events, interests, sent).
type AnomalyFeatures struct {
	SkillCount    int
	EventsCreated int
	InterestCount int
	MessagesSent  int
}

const anomalyDims = 4

func ExtractAnomalyFeatures(u UserProfile) AnomalyFeatures {
	return AnomalyFeatures{
		SkillCount:    len(u.Skills),
		EventsCreated: u.EventsCreated,
		InterestCount: len(u.Interests),
		MessagesSent:  u.MessagesSent,
	}
}

func (f AnomalyFeatures) Vector() [anomalyDims]float64 {
	return [anomalyDims]float64{
		float64(f.SkillCount),
		float64(f.EventsCreated),
		float64(f.InterestCount),
		float64(f.MessagesSent),
	}
}

// AttendanceFeatures is the classifier input for one attendance record.
type AttendanceFeatures struct {
	TotalClasses         int
	ClassesAttended      int
	RecentAbsences       int
	AttendancePercentage float64
	DaysSinceLastPresent int
	EventsCreated        int
	SkillCount           int
}

const attendanceDims = 7

func ExtractAttendanceFeatures(s AttendanceSample) AttendanceFeatures {
	return AttendanceFeatures{
		TotalClasses:         s.TotalClasses,
		ClassesAttended:      s.ClassesAttended,
		RecentAbsences:       s.RecentAbsences,
		AttendancePercentage: AttendancePercentage(s.ClassesAttended, s.TotalClasses),
		DaysSinceLastPresent: s.DaysSinceLastPresent,
		EventsCreated:        s.EventsCreated,
		SkillCount:           s.SkillCount,
	}
}

func (f AttendanceFeatures) Vector() [attendanceDims]float64 {
	return [attendanceDims]float64{
		float64(f.TotalClasses),
		float64(f.ClassesAttended),
		float64(f.RecentAbsences),
		f.AttendancePercentage,
		float64(f.DaysSinceLastPresent),
		float64(f.EventsCreated),
		float64(f.SkillCount),
	}
}

// Label is 1 for an at-risk record and 0 otherwise.
func (f AttendanceFeatures) Label() int {
	if f.AttendancePercentage < AtRiskThreshold {
		return 1
	}
	return 0
}

// AttendancePercentage is 0 for a subject that has held no classes.
func AttendancePercentage(attended, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(attended) / float64(total)
}

func NormalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeTokens lowercases and trims every token, dropping blanks and repeats.
func NormalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		n := NormalizeToken(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// SplitTokens parses a comma separated skill list.
func SplitTokens(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return []string{}
	}
	return NormalizeTokens(strings.Split(csv, ","))
}
