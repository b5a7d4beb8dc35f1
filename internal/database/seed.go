package database

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
)

var (
	skillsPool    = []string{"python", "java", "react", "html", "css", "machine learning", "data science", "sql", "node.js", "docker", "aws"}
	interestsPool = []string{"hackathons", "ai research", "web dev", "app dev", "cloud computing", "open source", "cybersecurity"}
)

// DemoAdminEmail is the seeded account allowed to run privileged analytics
const DemoAdminEmail = "admin@college.edu"

// Seed fills an empty store with a demo campus: fifteen students, two bot
// accounts, an admin, projects, subjects and attendance. A store that already
// has users is left untouched. The same seed always produces the same data.
func Seed(ctx context.Context, repo *Repository, seed int64) error {
	n, err := repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("Store already populated, skipping demo seed", "users", n)
		return nil
	}

	rng := rand.New(rand.NewSource(seed))

	students := make([]int64, 0, 15)
	for i := 1; i <= 15; i++ {
		skills := sample(rng, skillsPool, 2+rng.Intn(4))
		interests := sample(rng, interestsPool, 1+rng.Intn(4))
		id, err := repo.CreateUser(ctx, NewUser(fmt.Sprintf("Student %d", i), fmt.Sprintf("student%d@college.edu", i)), skills, interests)
		if err != nil {
			return err
		}
		students = append(students, id)
	}

	admin := NewUser("Campus Admin", DemoAdminEmail)
	admin.IsAdmin = true
	if _, err := repo.CreateUser(ctx, admin, []string{"sql", "python"}, []string{"open source"}); err != nil {
		return err
	}

	botX, err := repo.CreateUser(ctx, NewUser("Bot User X", "botx@spam.com"), nil, nil)
	if err != nil {
		return err
	}
	botY, err := repo.CreateUser(ctx, NewUser("Spam Bot Y", "boty@spam.com"), nil, nil)
	if err != nil {
		return err
	}

	for i := 0; i < 10; i++ {
		if _, err := repo.CreateEvent(ctx, Event{CreatorID: botX, Title: fmt.Sprintf("Spam Event %d", i), Description: "Spam", Date: "2024-01-01"}); err != nil {
			return err
		}
	}
	if _, err := repo.CreateEvent(ctx, Event{CreatorID: students[0], Title: "Hackathon Prep", Description: "Let's build a team for the upcoming hackathon!", Date: "2026-03-10", Tags: "hackathon,coding"}); err != nil {
		return err
	}
	if _, err := repo.CreateEvent(ctx, Event{CreatorID: students[1], Title: "AI Study Group", Description: "Discussing Neural Networks.", Date: "2026-03-15", Tags: "ai,machine learning"}); err != nil {
		return err
	}

	projects := []Project{
		{Name: "Machine Learning Image Classifier", Description: "Build a CNN to classify common objects.", RequiredSkills: []string{"python", "machine learning", "sql"}},
		{Name: "Full-Stack Web Store", Description: "Develop a fully scalable web application.", RequiredSkills: []string{"react", "node.js", "aws", "sql"}},
		{Name: "Data Analytics Dashboard", Description: "Analyze large datasets and present visualized insights.", RequiredSkills: []string{"python", "data science", "sql"}},
	}
	for _, p := range projects {
		if _, err := repo.CreateProject(ctx, p); err != nil {
			return err
		}
	}

	messages := make([]Message, 0, 32)
	for i := 0; i < 3; i++ {
		messages = append(messages,
			Message{SenderID: students[1], ReceiverID: students[0], Content: "Hey, wanna collaborate on the ML project?"},
			Message{SenderID: students[0], ReceiverID: students[1], Content: "Yes! Let's meet at the library."},
		)
	}
	// botY floods the first three students, never receiving anything back
	for _, to := range students[:3] {
		for i := 0; i < 6; i++ {
			messages = append(messages, Message{SenderID: botY, ReceiverID: to, Content: "Hello! Get free crypto! Click my profile link!"})
		}
	}
	for i := 0; i < 4; i++ {
		messages = append(messages, Message{SenderID: students[4], ReceiverID: students[0], Content: "hi."})
	}
	for _, m := range messages {
		if _, err := repo.CreateMessage(ctx, m); err != nil {
			return err
		}
	}

	subjects := []Subject{
		{Name: "Data Structures", TotalClasses: 40},
		{Name: "DBMS", TotalClasses: 40},
		{Name: "Operating Systems", TotalClasses: 40},
		{Name: "Computer Networks", TotalClasses: 35},
		{Name: "Machine Learning", TotalClasses: 30},
	}
	for i := range subjects {
		id, err := repo.CreateSubject(ctx, subjects[i])
		if err != nil {
			return err
		}
		subjects[i].ID = id
	}

	isBot := map[int64]bool{botX: true, botY: true}
	for _, uid := range append(append([]int64{}, students...), botX, botY) {
		for _, s := range subjects {
			rec := AttendanceRecord{UserID: uid, SubjectID: s.ID}
			switch {
			case uid == students[0]:
				rec.ClassesAttended = between(rng, s.TotalClasses*75/100, s.TotalClasses)
				rec.RecentAbsences = rng.Intn(2)
				rec.DaysSinceLastPresent = rng.Intn(3)
			case isBot[uid]:
				rec.ClassesAttended = between(rng, 0, s.TotalClasses*40/100)
				rec.RecentAbsences = between(rng, 3, 5)
				rec.DaysSinceLastPresent = between(rng, 10, 30)
			default:
				rec.ClassesAttended = between(rng, s.TotalClasses*50/100, s.TotalClasses*95/100)
				rec.RecentAbsences = rng.Intn(5)
				rec.DaysSinceLastPresent = rng.Intn(11)
			}
			if _, err := repo.CreateAttendanceRecord(ctx, rec); err != nil {
				return err
			}
		}
	}

	slog.Info("Demo data seeded", "students", len(students), "bots", 2, "subjects", len(subjects), "projects", len(projects))
	return nil
}

// between returns a uniform int in [lo, hi]
func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// sample picks k distinct items in random order
func sample(rng *rand.Rand, pool []string, k int) []string {
	if k > len(pool) {
		k = len(pool)
	}
	out := make([]string, k)
	for i, j := range rng.Perm(len(pool))[:k] {
		out[i] = pool[j]
	}
	return out
}
