package analysis

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

var courseCatalog = map[string]string{
	"python":           "Python for Data Science Bootcamp",
	"machine learning": "Intro to Machine Learning with Scikit-Learn",
	"sql":              "SQL Database Masterclass",
	"docker":           "Docker & Kubernetes Basics",
	"react":            "React.js Frontend Development",
	"aws":              "AWS Certified Cloud Practitioner",
	"java":             "Java Programming Fundamentals",
}

// AnalyzeGap compares a user's skills with a project's required skills.
// An empty requirement set is a full match.
func AnalyzeGap(userSkills, requiredSkills []string) GapReport {
	required := NormalizeTokens(requiredSkills)
	have := make(map[string]struct{}, len(userSkills))
	for _, s := range NormalizeTokens(userSkills) {
		have[s] = struct{}{}
	}

	missing := make([]string, 0, len(required))
	for _, s := range required {
		if _, ok := have[s]; !ok {
			missing = append(missing, s)
		}
	}
	sort.Strings(missing)

	report := GapReport{
		MatchScore:         100,
		MissingSkills:      make([]string, len(missing)),
		RecommendedCourses: make([]string, len(missing)),
	}
	if len(required) > 0 {
		matched := float64(len(required) - len(missing))
		report.MatchScore = clampInt(int(math.Round(100*matched/float64(len(required)))), 0, 100)
	}

	for i, s := range missing {
		report.MissingSkills[i] = titleCase(s)
		report.RecommendedCourses[i] = CourseFor(s)
	}
	return report
}

// CourseFor returns the catalog course for a skill, or a generic foundations course.
func CourseFor(skill string) string {
	s := NormalizeToken(skill)
	if course, ok := courseCatalog[s]; ok {
		return course
	}
	return "Foundations of " + capitalize(s)
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// titleCase upper-cases the first letter of every word, where words break on non-letters.
func titleCase(s string) string {
	r := []rune(strings.ToLower(s))
	prevLetter := false
	for i, c := range r {
		if unicode.IsLetter(c) {
			if !prevLetter {
				r[i] = unicode.ToUpper(c)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
	}
	return string(r)
}
