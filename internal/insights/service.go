package insights

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/campus-pulse/internal/analysis"
	"github.com/ZanzyTHEbar/campus-pulse/internal/cache"
	"github.com/ZanzyTHEbar/campus-pulse/internal/database"
	"github.com/ZanzyTHEbar/campus-pulse/internal/errors"
	"github.com/ZanzyTHEbar/campus-pulse/internal/monitoring"
	"github.com/ZanzyTHEbar/campus-pulse/internal/resilience"
	"github.com/ZanzyTHEbar/campus-pulse/internal/types"
)

// Store is the slice of the repository the analytics operations read and write
type Store interface {
	ListUserProfiles(ctx context.Context) ([]analysis.UserProfile, error)
	GetUserProfile(ctx context.Context, userID int64) (analysis.UserProfile, error)
	GetUser(ctx context.Context, userID int64) (*database.User, error)
	ListAttendanceSamples(ctx context.Context) ([]analysis.AttendanceSample, error)
	ListUserAttendance(ctx context.Context, userID int64) ([]analysis.AttendanceSample, error)
	GetProject(ctx context.Context, projectID int64) (*database.Project, error)
	ListProjects(ctx context.Context) ([]database.Project, error)
	UpdateTrustScore(ctx context.Context, userID int64, score int) error
	ApplyDetection(ctx context.Context, decisions []analysis.AnomalyDecision) (int, error)
	MarkAttendance(ctx context.Context, userID, subjectID int64, attended bool) (analysis.AttendanceSample, error)
}

// Options tunes the analytics worker pool and model reuse
type Options struct {
	Workers         int
	FitTimeout      time.Duration
	PredictCacheTTL time.Duration
	Forest          analysis.ForestConfig
	Logistic        analysis.LogisticConfig
	Retry           resilience.RetryConfig
}

func DefaultOptions() Options {
	return Options{
		FitTimeout: 10 * time.Second,
		Forest:     analysis.DefaultForestConfig(),
		Logistic:   analysis.DefaultLogisticConfig(),
		Retry:      resilience.DefaultRetryConfig(),
	}
}

// Service runs the analytics operations against the store
type Service struct {
	store    Store
	pool     *resilience.Pool
	registry *analysis.ModelRegistry
	models   *cache.Cache[*analysis.LogisticModel]
	metrics  *monitoring.Metrics
	logger   *monitoring.Logger
	opts     Options
}

func NewService(store Store, opts Options, metrics *monitoring.Metrics, logger *monitoring.Logger) *Service {
	s := &Service{
		store:    store,
		pool:     resilience.NewPool(opts.Workers, opts.FitTimeout, metrics),
		registry: analysis.NewModelRegistry(opts.Logistic),
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
	}
	if opts.PredictCacheTTL > 0 {
		s.models = cache.New[*analysis.LogisticModel](opts.PredictCacheTTL, metrics)
	}
	return s
}

// Close stops the model cache sweeper
func (s *Service) Close() {
	if s.models != nil {
		s.models.Close()
	}
}

// Registry exposes the trained-model slot
func (s *Service) Registry() *analysis.ModelRegistry {
	return s.registry
}

// PoolSize is the number of concurrent analytics jobs allowed
func (s *Service) PoolSize() int {
	return s.pool.Size()
}

// RecommendStudents suggests up to five peers who share skills with userID
func (s *Service) RecommendStudents(ctx context.Context, userID int64) (resp *types.RecommendResponse, err error) {
	start := time.Now()
	population := 0
	defer func() { s.observe("recommend_students", population, start, err) }()

	profiles, err := read(ctx, s, s.store.ListUserProfiles)
	if err != nil {
		return nil, translate(err, "User", userID)
	}
	population = len(profiles)

	matches, err := resilience.Submit(ctx, s.pool, func(ctx context.Context) ([]analysis.Match, error) {
		return analysis.Recommend(userID, profiles)
	})
	if err != nil {
		return nil, translate(err, "User", userID)
	}

	byID := make(map[int64]analysis.UserProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	resp = &types.RecommendResponse{Recommendations: make([]types.Recommendation, 0, len(matches))}
	for _, m := range matches {
		p := byID[m.UserID]
		resp.Recommendations = append(resp.Recommendations, types.Recommendation{
			UserID:          p.ID,
			Name:            p.Name,
			Skills:          p.Skills,
			TrustScore:      p.TrustScore,
			SimilarityScore: m.Score,
		})
	}
	return resp, nil
}

// RunFakeDetection fits the isolation forest over every user and writes back flags and trust scores
func (s *Service) RunFakeDetection(ctx context.Context) (resp *types.DetectionResponse, err error) {
	start := time.Now()
	population := 0
	defer func() { s.observe("fake_detection", population, start, err) }()

	profiles, err := read(ctx, s, s.store.ListUserProfiles)
	if err != nil {
		return nil, translate(err, "", nil)
	}
	population = len(profiles)

	report, err := resilience.Submit(ctx, s.pool, func(ctx context.Context) (*analysis.AnomalyReport, error) {
		return analysis.DetectAnomalies(ctx, profiles, s.opts.Forest)
	})
	if err != nil {
		return nil, translate(err, "", nil)
	}
	if report.Insufficient {
		return nil, errors.NewInsufficientDataError(
			fmt.Sprintf("Need at least %d users to run fake account detection", analysis.MinDetectionPopulation), nil)
	}

	written, err := s.store.ApplyDetection(ctx, report.Decisions)
	if err != nil {
		return nil, translate(err, "", nil)
	}

	for _, d := range report.Decisions {
		if d.Flagged {
			s.logger.FlagLogger(d.UserID, string(d.Reason), d.Score, d.TrustScore)
		}
	}
	s.metrics.AddFlagged(report.Flagged)

	return &types.DetectionResponse{
		Status:    "success",
		Message:   "Fake account detection completed",
		Flagged:   report.Flagged,
		Evaluated: written,
	}, nil
}

// GetTrustScore recomputes the user's trust score from current activity and persists it
func (s *Service) GetTrustScore(ctx context.Context, userID int64) (*types.TrustScoreResponse, error) {
	profile, err := read(ctx, s, func(ctx context.Context) (analysis.UserProfile, error) {
		return s.store.GetUserProfile(ctx, userID)
	})
	if err != nil {
		return nil, translate(err, "User", userID)
	}

	score := analysis.TrustScore(analysis.ExtractUserFeatures(profile), profile.IsSuspicious)
	if err := s.store.UpdateTrustScore(ctx, userID, score); err != nil {
		return nil, translate(err, "User", userID)
	}

	return &types.TrustScoreResponse{UserID: userID, TrustScore: score}, nil
}

// AnalyzeSkillGap compares the user's skills with a project's requirements
func (s *Service) AnalyzeSkillGap(ctx context.Context, userID, projectID int64) (*types.SkillGapResponse, error) {
	profile, err := read(ctx, s, func(ctx context.Context) (analysis.UserProfile, error) {
		return s.store.GetUserProfile(ctx, userID)
	})
	if err != nil {
		return nil, translate(err, "User", userID)
	}

	project, err := read(ctx, s, func(ctx context.Context) (*database.Project, error) {
		return s.store.GetProject(ctx, projectID)
	})
	if err != nil {
		return nil, translate(err, "Project", projectID)
	}

	gap := analysis.AnalyzeGap(profile.Skills, project.RequiredSkills)
	return &types.SkillGapResponse{
		ProjectID:          project.ID,
		MatchScore:         gap.MatchScore,
		MissingSkills:      gap.MissingSkills,
		RecommendedCourses: gap.RecommendedCourses,
	}, nil
}

// TrainAttendanceModel fits the attendance classifier on every record and installs it in the registry
func (s *Service) TrainAttendanceModel(ctx context.Context) (resp *types.TrainModelResponse, err error) {
	start := time.Now()
	population := 0
	defer func() { s.observe("train_attendance_model", population, start, err) }()

	samples, err := read(ctx, s, s.store.ListAttendanceSamples)
	if err != nil {
		return nil, translate(err, "", nil)
	}
	population = len(samples)

	trained, err := resilience.Submit(ctx, s.pool, func(ctx context.Context) (*analysis.TrainedModel, error) {
		return s.registry.Train(ctx, samples)
	})
	if err != nil {
		return nil, translate(err, "", nil)
	}
	s.metrics.SetModelVersion(trained.Version)

	return &types.TrainModelResponse{
		Status:     "success",
		Message:    "Attendance model trained",
		ModelID:    trained.ID,
		Version:    trained.Version,
		SnapshotID: trained.SnapshotID,
		Records:    trained.Records,
		AtRisk:     trained.AtRisk,
		Safe:       trained.Safe,
		TrainedAt:  trained.TrainedAt,
	}, nil
}

// PredictAttendanceRisk fits a fresh classifier on the whole population and scores the user's subjects.
// The registry slot is never read here.
func (s *Service) PredictAttendanceRisk(ctx context.Context, userID int64) (resp *types.PredictionResponse, err error) {
	start := time.Now()
	population := 0
	defer func() { s.observe("predict_attendance_risk", population, start, err) }()

	if _, err := read(ctx, s, func(ctx context.Context) (*database.User, error) {
		return s.store.GetUser(ctx, userID)
	}); err != nil {
		return nil, translate(err, "User", userID)
	}

	samples, err := read(ctx, s, s.store.ListAttendanceSamples)
	if err != nil {
		return nil, translate(err, "", nil)
	}
	population = len(samples)

	ts, err := analysis.BuildTrainingSet(samples)
	if err != nil {
		return nil, translate(err, "", nil)
	}
	model, err := s.fitForSnapshot(ctx, ts)
	if err != nil {
		return nil, translate(err, "", nil)
	}

	mine := make([]analysis.AttendanceSample, 0, 8)
	for _, r := range samples {
		if r.UserID == userID {
			mine = append(mine, r)
		}
	}

	preds := analysis.PredictRisk(model, mine)
	resp = &types.PredictionResponse{Predictions: make([]types.Prediction, len(preds))}
	for i, p := range preds {
		resp.Predictions[i] = types.Prediction(p)
	}
	return resp, nil
}

// fitForSnapshot reuses a model fitted on an identical training set when the cache is enabled
func (s *Service) fitForSnapshot(ctx context.Context, ts *analysis.TrainingSet) (*analysis.LogisticModel, error) {
	var key string
	if s.models != nil {
		key = analysis.SnapshotID(ts)
		if m, ok := s.models.Get(key); ok {
			return m, nil
		}
	}

	model, err := resilience.Submit(ctx, s.pool, func(ctx context.Context) (*analysis.LogisticModel, error) {
		return analysis.FitLogistic(ctx, ts.X, ts.Y, s.opts.Logistic)
	})
	if err != nil {
		return nil, err
	}

	if s.models != nil {
		s.models.Set(key, model)
	}
	return model, nil
}

// AttendanceSummary reports per-subject attendance and remaining allowed absences
func (s *Service) AttendanceSummary(ctx context.Context, userID int64) (*types.AttendanceSummaryResponse, error) {
	if _, err := read(ctx, s, func(ctx context.Context) (*database.User, error) {
		return s.store.GetUser(ctx, userID)
	}); err != nil {
		return nil, translate(err, "User", userID)
	}

	records, err := read(ctx, s, func(ctx context.Context) ([]analysis.AttendanceSample, error) {
		return s.store.ListUserAttendance(ctx, userID)
	})
	if err != nil {
		return nil, translate(err, "", nil)
	}

	summaries := analysis.SummarizeAttendance(records)
	resp := &types.AttendanceSummaryResponse{Attendance: make([]types.AttendanceEntry, len(summaries))}
	for i, sum := range summaries {
		resp.Attendance[i] = types.AttendanceEntry(sum)
	}
	return resp, nil
}

// MarkAttendance records one class for the user in a subject
func (s *Service) MarkAttendance(ctx context.Context, userID, subjectID int64, attended bool) (*types.MessageResponse, error) {
	rec, err := s.store.MarkAttendance(ctx, userID, subjectID, attended)
	if err != nil {
		return nil, translate(err, "Attendance record", subjectID)
	}

	state := "absent"
	if attended {
		state = "present"
	}
	return &types.MessageResponse{
		Message: fmt.Sprintf("Marked %s for %s", state, rec.SubjectName),
	}, nil
}

func (s *Service) ListProjects(ctx context.Context) (*types.ProjectsResponse, error) {
	projects, err := read(ctx, s, s.store.ListProjects)
	if err != nil {
		return nil, translate(err, "", nil)
	}

	resp := &types.ProjectsResponse{Projects: make([]types.Project, len(projects))}
	for i, p := range projects {
		resp.Projects[i] = types.Project{
			ID:             p.ID,
			Name:           p.Name,
			Description:    p.Description,
			RequiredSkills: p.RequiredSkills,
		}
	}
	return resp, nil
}

// ModelStatus returns the model installed by the last successful training
func (s *Service) ModelStatus() (*analysis.TrainedModel, error) {
	m, ok := s.registry.CurrentModel()
	if !ok {
		return nil, errors.NewNotFoundError("Attendance model", "current")
	}
	return m, nil
}

// read retries store reads that fail with a transient error
func read[T any](ctx context.Context, s *Service, fn func(ctx context.Context) (T, error)) (T, error) {
	return resilience.RetryValue(ctx, s.opts.Retry, func() (T, error) {
		return fn(ctx)
	})
}

// translate maps store and analysis sentinels onto the error taxonomy
func translate(err error, resource string, id interface{}) error {
	var appErr *errors.AppError
	switch {
	case stdErrors.As(err, &appErr):
		return appErr
	case stdErrors.Is(err, analysis.ErrInsufficientData):
		msg := "Not enough data to train the model"
		var ide *analysis.InsufficientDataError
		if stdErrors.As(err, &ide) && ide.Reason != "" {
			msg = ide.Reason
		}
		return errors.NewInsufficientDataError(msg, err)
	case stdErrors.Is(err, database.ErrNotFound), stdErrors.Is(err, analysis.ErrNotInPopulation):
		if resource == "" {
			resource = "Record"
		}
		return errors.NewNotFoundError(resource, id)
	default:
		return errors.ToAppError(err)
	}
}

func (s *Service) observe(op string, population int, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		switch errors.ToAppError(err).Category {
		case errors.CategoryInsufficientData:
			outcome = "insufficient_data"
		case errors.CategoryTimeout:
			outcome = "timeout"
		case errors.CategoryNotFound:
			outcome = "not_found"
		default:
			outcome = "error"
		}
	}
	d := time.Since(start)
	s.metrics.RecordAnalytics(op, outcome, d)
	s.logger.AnalyticsLogger(op, population, outcome, d)
}
