package database

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/campus-pulse/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(context.Background(), Options{Driver: DriverSQLite, DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mysql", DataDir: t.TempDir()})
	assert.Error(t, err)

	_, err = Open(context.Background(), Options{Driver: DriverPostgres})
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, "UPDATE users SET trust_score = $1 WHERE id = $2", pg.Rebind("UPDATE users SET trust_score = ? WHERE id = ?"))

	lite := &DB{driver: DriverSQLite}
	assert.Equal(t, "SELECT ? ", lite.Rebind("SELECT ? "))
}

func TestUserProfiles(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	alice, err := repo.CreateUser(ctx, NewUser("Alice", "Alice@College.edu"), []string{" Python", "SQL", "python", ""}, []string{"hackathons"})
	require.NoError(t, err)
	bob, err := repo.CreateUser(ctx, NewUser("Bob", "bob@college.edu"), nil, nil)
	require.NoError(t, err)

	_, err = repo.CreateEvent(ctx, Event{CreatorID: alice, Title: "Study night"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = repo.CreateMessage(ctx, Message{SenderID: bob, ReceiverID: alice, Content: "hi"})
		require.NoError(t, err)
	}

	profiles, err := repo.ListUserProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, alice, profiles[0].ID)
	assert.Equal(t, []string{"python", "sql"}, profiles[0].Skills)
	assert.Equal(t, []string{"hackathons"}, profiles[0].Interests)
	assert.Equal(t, 1, profiles[0].EventsCreated)
	assert.Equal(t, 3, profiles[0].MessagesReceived)
	assert.Equal(t, 50, profiles[0].TrustScore)

	assert.Empty(t, profiles[1].Skills)
	assert.Equal(t, 3, profiles[1].MessagesSent)

	one, err := repo.GetUserProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, profiles[0], one)

	_, err = repo.GetUserProfile(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	u, err := repo.GetUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice@college.edu", u.Email)
	assert.False(t, u.IsAdmin)

	_, err = repo.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyDetectionAndTrustScore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, _ := repo.CreateUser(ctx, NewUser("A", "a@x.edu"), []string{"go"}, nil)
	b, _ := repo.CreateUser(ctx, NewUser("B", "b@x.edu"), nil, nil)

	n, err := repo.ApplyDetection(ctx, []analysis.AnomalyDecision{
		{UserID: a, Flagged: false, TrustScore: 55},
		{UserID: b, Flagged: true, Reason: analysis.FlagNoSkills, TrustScore: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ub, err := repo.GetUser(ctx, b)
	require.NoError(t, err)
	assert.True(t, ub.IsSuspicious)
	assert.Equal(t, 0, ub.TrustScore)

	require.NoError(t, repo.UpdateTrustScore(ctx, a, 77))
	ua, _ := repo.GetUser(ctx, a)
	assert.Equal(t, 77, ua.TrustScore)
	assert.False(t, ua.IsSuspicious)

	assert.ErrorIs(t, repo.UpdateTrustScore(ctx, 404, 10), ErrNotFound)
}

func TestApplyDetectionStopsOnCancel(t *testing.T) {
	repo := newTestRepo(t)
	a, _ := repo.CreateUser(context.Background(), NewUser("A", "a@x.edu"), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := repo.ApplyDetection(ctx, []analysis.AnomalyDecision{{UserID: a, Flagged: true}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)

	u, _ := repo.GetUser(context.Background(), a)
	assert.False(t, u.IsSuspicious)
}

func TestAttendance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	uid, _ := repo.CreateUser(ctx, NewUser("A", "a@x.edu"), []string{"python", "sql"}, nil)
	_, _ = repo.CreateEvent(ctx, Event{CreatorID: uid, Title: "e"})
	dbms, _ := repo.CreateSubject(ctx, Subject{Name: "DBMS", TotalClasses: 40})
	osys, _ := repo.CreateSubject(ctx, Subject{Name: "Operating Systems", TotalClasses: 30})

	_, err := repo.CreateAttendanceRecord(ctx, AttendanceRecord{UserID: uid, SubjectID: dbms, ClassesAttended: 30, RecentAbsences: 9, DaysSinceLastPresent: 2})
	require.NoError(t, err)
	_, err = repo.CreateAttendanceRecord(ctx, AttendanceRecord{UserID: uid, SubjectID: osys, ClassesAttended: 12, RecentAbsences: 0})
	require.NoError(t, err)

	samples, err := repo.ListAttendanceSamples(ctx)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "DBMS", samples[0].SubjectName)
	assert.Equal(t, 40, samples[0].TotalClasses)
	assert.Equal(t, 5, samples[0].RecentAbsences)
	assert.Equal(t, 1, samples[0].EventsCreated)
	assert.Equal(t, 2, samples[0].SkillCount)

	mine, err := repo.ListUserAttendance(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, samples, mine)

	updated, err := repo.MarkAttendance(ctx, uid, dbms, true)
	require.NoError(t, err)
	assert.Equal(t, 41, updated.TotalClasses)
	assert.Equal(t, 31, updated.ClassesAttended)
	assert.Equal(t, 4, updated.RecentAbsences)
	assert.Equal(t, 0, updated.DaysSinceLastPresent)

	updated, err = repo.MarkAttendance(ctx, uid, osys, false)
	require.NoError(t, err)
	assert.Equal(t, 31, updated.TotalClasses)
	assert.Equal(t, 12, updated.ClassesAttended)
	assert.Equal(t, 1, updated.RecentAbsences)
	assert.Equal(t, 1, updated.DaysSinceLastPresent)

	reloaded, _ := repo.ListUserAttendance(ctx, uid)
	assert.Equal(t, 41, reloaded[0].TotalClasses)
	assert.Equal(t, 31, reloaded[0].ClassesAttended)

	_, err = repo.MarkAttendance(ctx, uid, 999, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjects(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateProject(ctx, Project{Name: "Web Store", RequiredSkills: []string{"React", " node.js", "", "react"}})
	require.NoError(t, err)

	p, err := repo.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"react", "node.js"}, p.RequiredSkills)

	_, err = repo.GetProject(ctx, id+1)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSeed(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, repo, 42))

	profiles, err := repo.ListUserProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 18)

	samples, err := repo.ListAttendanceSamples(ctx)
	require.NoError(t, err)
	assert.Len(t, samples, 17*5)
	for _, s := range samples {
		assert.GreaterOrEqual(t, s.RecentAbsences, 0)
		assert.LessOrEqual(t, s.RecentAbsences, 5)
		assert.LessOrEqual(t, s.ClassesAttended, s.TotalClasses)
	}

	projects, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 3)

	// seeding twice is a no-op
	require.NoError(t, Seed(ctx, repo, 42))
	n, _ := repo.CountUsers(ctx)
	assert.Equal(t, 18, n)
}

func TestSeedIsDeterministic(t *testing.T) {
	ctx := context.Background()
	a, b := newTestRepo(t), newTestRepo(t)
	require.NoError(t, Seed(ctx, a, 7))
	require.NoError(t, Seed(ctx, b, 7))

	pa, _ := a.ListUserProfiles(ctx)
	pb, _ := b.ListUserProfiles(ctx)
	assert.Equal(t, pa, pb)
}

func TestPoolStats(t *testing.T) {
	repo := newTestRepo(t)
	stats := repo.db.GetPoolStats()
	assert.Equal(t, DriverSQLite, stats["driver"])
	assert.NoError(t, repo.db.HealthCheck(context.Background()))
}
