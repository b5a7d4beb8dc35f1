package analysis

import (
	"context"
	"fmt"
)

// MinTrainingRecords is the smallest attendance population a classifier is fitted on.
const MinTrainingRecords = 5

const (
	StatusHighRisk   = "HIGH RISK"
	StatusMediumRisk = "Medium Risk"
	StatusSafe       = "Safe"

	StatusLowAttendance = "Low Attendance"
	StatusRisk          = "Risk"

	maxRecentAbsences = 5
	allowedMissRatio  = 0.25
	requiredRatio     = 0.75
)

// TrainingSet is the design matrix and labels derived from an attendance population.
type TrainingSet struct {
	X      [][]float64
	Y      []int
	Safe   int
	AtRisk int
}

// BuildTrainingSet rejects populations that are too small or carry a single label.
func BuildTrainingSet(samples []AttendanceSample) (*TrainingSet, error) {
	if len(samples) < MinTrainingRecords {
		return nil, insufficient(fmt.Sprintf("need at least %d attendance records, have %d", MinTrainingRecords, len(samples)))
	}

	ts := &TrainingSet{X: make([][]float64, len(samples)), Y: make([]int, len(samples))}
	for i, s := range samples {
		f := ExtractAttendanceFeatures(s)
		v := f.Vector()
		ts.X[i] = v[:]
		ts.Y[i] = f.Label()
		if ts.Y[i] == 1 {
			ts.AtRisk++
		} else {
			ts.Safe++
		}
	}
	if ts.AtRisk == 0 || ts.Safe == 0 {
		return nil, insufficient("need both safe and at-risk attendance records to train")
	}
	return ts, nil
}

// TrainAttendanceClassifier fits a logistic model on the full attendance population.
func TrainAttendanceClassifier(ctx context.Context, samples []AttendanceSample, cfg LogisticConfig) (*LogisticModel, *TrainingSet, error) {
	ts, err := BuildTrainingSet(samples)
	if err != nil {
		return nil, nil, err
	}
	model, err := FitLogistic(ctx, ts.X, ts.Y, cfg)
	if err != nil {
		return nil, nil, err
	}
	return model, ts, nil
}

func RiskStatus(p float64) string {
	switch {
	case p > 0.70:
		return StatusHighRisk
	case p > 0.40:
		return StatusMediumRisk
	default:
		return StatusSafe
	}
}

// Remediation tells a student how many consecutive classes bring them back to 75%.
func Remediation(attended, total int) string {
	if AttendancePercentage(attended, total) >= AtRiskThreshold {
		return "You are on track."
	}
	needed := int((requiredRatio*float64(total) - float64(attended)) / allowedMissRatio)
	if needed > 0 {
		return fmt.Sprintf("Attend next %d classes to stay safe.", needed)
	}
	return "Attend the next class to be safe."
}

// PredictRisk applies a fitted model to one user's attendance records.
func PredictRisk(model *LogisticModel, records []AttendanceSample) []RiskPrediction {
	out := make([]RiskPrediction, 0, len(records))
	for _, r := range records {
		f := ExtractAttendanceFeatures(r)
		v := f.Vector()
		p := model.Predict(v[:])
		out = append(out, RiskPrediction{
			SubjectID:            r.SubjectID,
			Subject:              r.SubjectName,
			AttendancePercentage: roundTo(f.AttendancePercentage, 2),
			RiskProbability:      roundTo(p, 2),
			Status:               RiskStatus(p),
			Recommendation:       Remediation(r.ClassesAttended, r.TotalClasses),
		})
	}
	return out
}

// CanBunkMore is the count of further absences allowed before dropping under the minimum.
// Negative values mean the student is already below it.
func CanBunkMore(attended, total int) int {
	allowed := int(float64(total) * allowedMissRatio)
	actual := total - attended
	return allowed - actual
}

func SummaryStatus(canBunk int) string {
	switch {
	case canBunk < 0:
		return StatusLowAttendance
	case canBunk <= 2:
		return StatusRisk
	default:
		return StatusSafe
	}
}

func SummarizeAttendance(records []AttendanceSample) []SubjectSummary {
	out := make([]SubjectSummary, 0, len(records))
	for _, r := range records {
		canBunk := CanBunkMore(r.ClassesAttended, r.TotalClasses)
		out = append(out, SubjectSummary{
			SubjectID:            r.SubjectID,
			Subject:              r.SubjectName,
			AttendancePercentage: roundTo(AttendancePercentage(r.ClassesAttended, r.TotalClasses), 2),
			ClassesAttended:      r.ClassesAttended,
			TotalClasses:         r.TotalClasses,
			CanBunkMore:          canBunk,
			Status:               SummaryStatus(canBunk),
			RecentAbsences:       r.RecentAbsences,
			DaysSinceLastPresent: r.DaysSinceLastPresent,
		})
	}
	return out
}

// ApplyAttendance records one new class for the subject and updates the student's counters.
func ApplyAttendance(r AttendanceSample, attended bool) AttendanceSample {
	r.TotalClasses++
	if attended {
		r.ClassesAttended++
		r.DaysSinceLastPresent = 0
		r.RecentAbsences = clampInt(r.RecentAbsences-1, 0, maxRecentAbsences)
	} else {
		r.DaysSinceLastPresent++
		r.RecentAbsences = clampInt(r.RecentAbsences+1, 0, maxRecentAbsences)
	}
	return r
}
