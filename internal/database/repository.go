package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/campus-pulse/internal/analysis"
)

const (
	stmtListProfiles     = "list_profiles"
	stmtListSkills       = "list_skills"
	stmtListInterests    = "list_interests"
	stmtListAttendance   = "list_attendance"
	stmtUpdateDetection  = "update_detection"
	stmtUpdateTrustScore = "update_trust_score"
)

const profileSelect = `SELECT u.id, u.name, u.is_suspicious, u.trust_score,
	(SELECT COUNT(*) FROM events e WHERE e.creator_id = u.id),
	(SELECT COUNT(*) FROM messages m WHERE m.sender_id = u.id),
	(SELECT COUNT(*) FROM messages m WHERE m.receiver_id = u.id)
	FROM users u`

const attendanceSelect = `SELECT ar.id, ar.user_id, ar.subject_id, s.subject_name, s.total_classes,
	ar.classes_attended, ar.recent_absences_last_5, ar.days_since_last_present,
	(SELECT COUNT(*) FROM events e WHERE e.creator_id = ar.user_id),
	(SELECT COUNT(DISTINCT LOWER(TRIM(k.skill_name))) FROM skills k
		WHERE k.user_id = ar.user_id AND TRIM(k.skill_name) <> '')
	FROM attendance_records ar
	JOIN subjects s ON s.id = ar.subject_id`

// Repository handles database operations
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) stmt(name string) (*sql.Stmt, error) {
	return r.db.GetPreparedStatement(name)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (analysis.UserProfile, error) {
	var p analysis.UserProfile
	err := row.Scan(&p.ID, &p.Name, &p.IsSuspicious, &p.TrustScore,
		&p.EventsCreated, &p.MessagesSent, &p.MessagesReceived)
	return p, err
}

// ListUserProfiles returns every user with normalized skills, interests and activity counts, ordered by id
func (r *Repository) ListUserProfiles(ctx context.Context) ([]analysis.UserProfile, error) {
	stmt, err := r.stmt(stmtListProfiles)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	profiles := make([]analysis.UserProfile, 0)
	index := make(map[int64]int)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		index[p.ID] = len(profiles)
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	rows.Close()

	skills, err := r.tokensByUser(ctx, stmtListSkills)
	if err != nil {
		return nil, err
	}
	interests, err := r.tokensByUser(ctx, stmtListInterests)
	if err != nil {
		return nil, err
	}

	for id, i := range index {
		profiles[i].Skills = analysis.NormalizeTokens(skills[id])
		profiles[i].Interests = analysis.NormalizeTokens(interests[id])
	}
	return profiles, nil
}

func (r *Repository) tokensByUser(ctx context.Context, name string) (map[int64][]string, error) {
	stmt, err := r.stmt(name)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var (
			userID int64
			token  string
		)
		if err := rows.Scan(&userID, &token); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", name, err)
		}
		out[userID] = append(out[userID], token)
	}
	return out, rows.Err()
}

func (r *Repository) userTokens(ctx context.Context, query string, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return analysis.NormalizeTokens(tokens), nil
}

// GetUserProfile returns one user's profile or ErrNotFound
func (r *Repository) GetUserProfile(ctx context.Context, userID int64) (analysis.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(profileSelect+` WHERE u.id = ?`), userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return analysis.UserProfile{}, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	if p.Skills, err = r.userTokens(ctx, `SELECT skill_name FROM skills WHERE user_id = ? ORDER BY id`, userID); err != nil {
		return analysis.UserProfile{}, fmt.Errorf("failed to load skills: %w", err)
	}
	if p.Interests, err = r.userTokens(ctx, `SELECT interest_name FROM interests WHERE user_id = ? ORDER BY id`, userID); err != nil {
		return analysis.UserProfile{}, fmt.Errorf("failed to load interests: %w", err)
	}
	return p, nil
}

// GetUser returns the account row used for identity checks
func (r *Repository) GetUser(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT id, name, email, is_admin, is_suspicious, trust_score, created_at
		FROM users WHERE id = ?`), userID).Scan(
		&u.ID, &u.Name, &u.Email, &u.IsAdmin, &u.IsSuspicious, &u.TrustScore, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return &u, nil
}

// CountUsers is used by seeding and health reporting
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func scanSample(row rowScanner) (analysis.AttendanceSample, error) {
	var s analysis.AttendanceSample
	err := row.Scan(&s.RecordID, &s.UserID, &s.SubjectID, &s.SubjectName, &s.TotalClasses,
		&s.ClassesAttended, &s.RecentAbsences, &s.DaysSinceLastPresent,
		&s.EventsCreated, &s.SkillCount)
	return s, err
}

func collectSamples(rows *sql.Rows) ([]analysis.AttendanceSample, error) {
	defer rows.Close()

	samples := make([]analysis.AttendanceSample, 0)
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// ListAttendanceSamples returns every attendance record with owner features, ordered by record id
func (r *Repository) ListAttendanceSamples(ctx context.Context) ([]analysis.AttendanceSample, error) {
	stmt, err := r.stmt(stmtListAttendance)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return collectSamples(rows)
}

// ListUserAttendance returns one user's records, ordered by record id
func (r *Repository) ListUserAttendance(ctx context.Context, userID int64) ([]analysis.AttendanceSample, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(attendanceSelect+` WHERE ar.user_id = ? ORDER BY ar.id`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for user %d: %w", userID, err)
	}
	return collectSamples(rows)
}

func scanProject(row rowScanner) (Project, error) {
	var (
		p      Project
		skills string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &skills); err != nil {
		return Project{}, err
	}
	p.RequiredSkills = analysis.SplitTokens(skills)
	return p, nil
}

// GetProject returns a project requirement or ErrNotFound
func (r *Repository) GetProject(ctx context.Context, projectID int64) (*Project, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT id, project_name, description, required_skills FROM projects WHERE id = ?`), projectID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %d: %w", projectID, err)
	}
	return &p, nil
}

func (r *Repository) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, project_name, description, required_skills FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateTrustScore persists a recomputed score
func (r *Repository) UpdateTrustScore(ctx context.Context, userID int64, score int) error {
	stmt, err := r.stmt(stmtUpdateTrustScore)
	if err != nil {
		return err
	}
	res, err := stmt.ExecContext(ctx, score, userID)
	if err != nil {
		return fmt.Errorf("failed to update trust score: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyDetection writes each decision in its own transaction. It stops at the
// first error or when ctx is done and reports how many users were written.
func (r *Repository) ApplyDetection(ctx context.Context, decisions []analysis.AnomalyDecision) (int, error) {
	stmt, err := r.stmt(stmtUpdateDetection)
	if err != nil {
		return 0, err
	}

	for i, d := range decisions {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := r.inTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.StmtContext(ctx, stmt).ExecContext(ctx, d.Flagged, d.TrustScore, d.UserID)
			return err
		}); err != nil {
			return i, fmt.Errorf("failed to write detection for user %d: %w", d.UserID, err)
		}
	}
	return len(decisions), nil
}

// MarkAttendance records one new class of the subject for the user and returns the updated record
func (r *Repository) MarkAttendance(ctx context.Context, userID, subjectID int64, attended bool) (analysis.AttendanceSample, error) {
	var updated analysis.AttendanceSample

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, r.db.Rebind(attendanceSelect+` WHERE ar.user_id = ? AND ar.subject_id = ?`), userID, subjectID)
		current, err := scanSample(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load attendance record: %w", err)
		}

		updated = analysis.ApplyAttendance(current, attended)

		if _, err := tx.ExecContext(ctx, r.db.Rebind(`UPDATE subjects SET total_classes = total_classes + 1 WHERE id = ?`), subjectID); err != nil {
			return fmt.Errorf("failed to update subject: %w", err)
		}
		if _, err := tx.ExecContext(ctx, r.db.Rebind(`
			UPDATE attendance_records
			SET classes_attended = ?, recent_absences_last_5 = ?, days_since_last_present = ?
			WHERE id = ?`),
			updated.ClassesAttended, updated.RecentAbsences, updated.DaysSinceLastPresent, updated.RecordID,
		); err != nil {
			return fmt.Errorf("failed to update attendance record: %w", err)
		}
		return nil
	})
	return updated, err
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CreateUser inserts a user with its skills and interests
func (r *Repository) CreateUser(ctx context.Context, u *User, skills, interests []string) (int64, error) {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, r.db.Rebind(`
			INSERT INTO users (name, email, is_admin, is_suspicious, trust_score, created_at)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			u.Name, strings.ToLower(u.Email), u.IsAdmin, u.IsSuspicious, u.TrustScore, u.CreatedAt,
		).Scan(&u.ID); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		for _, s := range analysis.NormalizeTokens(skills) {
			if _, err := tx.ExecContext(ctx, r.db.Rebind(`INSERT INTO skills (user_id, skill_name) VALUES (?, ?)`), u.ID, s); err != nil {
				return fmt.Errorf("failed to add skill: %w", err)
			}
		}
		for _, i := range analysis.NormalizeTokens(interests) {
			if _, err := tx.ExecContext(ctx, r.db.Rebind(`INSERT INTO interests (user_id, interest_name) VALUES (?, ?)`), u.ID, i); err != nil {
				return fmt.Errorf("failed to add interest: %w", err)
			}
		}
		return nil
	})
	return u.ID, err
}

func (r *Repository) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query+` RETURNING id`), args...).Scan(&id)
	return id, err
}

func (r *Repository) CreateEvent(ctx context.Context, e Event) (int64, error) {
	id, err := r.insertReturningID(ctx, `INSERT INTO events (creator_id, title, description, event_date, tags) VALUES (?, ?, ?, ?, ?)`,
		e.CreatorID, e.Title, e.Description, e.Date, e.Tags)
	if err != nil {
		return 0, fmt.Errorf("failed to create event: %w", err)
	}
	return id, nil
}

func (r *Repository) CreateMessage(ctx context.Context, m Message) (int64, error) {
	id, err := r.insertReturningID(ctx, `INSERT INTO messages (sender_id, receiver_id, content) VALUES (?, ?, ?)`,
		m.SenderID, m.ReceiverID, m.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to create message: %w", err)
	}
	return id, nil
}

func (r *Repository) CreateSubject(ctx context.Context, s Subject) (int64, error) {
	id, err := r.insertReturningID(ctx, `INSERT INTO subjects (subject_name, total_classes) VALUES (?, ?)`,
		s.Name, s.TotalClasses)
	if err != nil {
		return 0, fmt.Errorf("failed to create subject: %w", err)
	}
	return id, nil
}

// CreateAttendanceRecord clamps recent absences into [0,5] before storing
func (r *Repository) CreateAttendanceRecord(ctx context.Context, a AttendanceRecord) (int64, error) {
	recent := a.RecentAbsences
	if recent < 0 {
		recent = 0
	}
	if recent > 5 {
		recent = 5
	}
	id, err := r.insertReturningID(ctx, `
		INSERT INTO attendance_records (user_id, subject_id, classes_attended, recent_absences_last_5, days_since_last_present)
		VALUES (?, ?, ?, ?, ?)`,
		a.UserID, a.SubjectID, a.ClassesAttended, recent, a.DaysSinceLastPresent)
	if err != nil {
		return 0, fmt.Errorf("failed to create attendance record: %w", err)
	}
	return id, nil
}

func (r *Repository) CreateProject(ctx context.Context, p Project) (int64, error) {
	id, err := r.insertReturningID(ctx, `INSERT INTO projects (project_name, description, required_skills) VALUES (?, ?, ?)`,
		p.Name, p.Description, strings.Join(analysis.NormalizeTokens(p.RequiredSkills), ","))
	if err != nil {
		return 0, fmt.Errorf("failed to create project: %w", err)
	}
	return id, nil
}
