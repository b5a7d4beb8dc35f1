package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TrainedModel is a fitted attendance classifier and the snapshot it was fitted on.
type TrainedModel struct {
	ID         string         `json:"id"`
	Model      *LogisticModel `json:"model"`
	Version    int            `json:"version"`
	SnapshotID string         `json:"snapshot_id"`
	Records    int            `json:"records"`
	AtRisk     int            `json:"at_risk"`
	Safe       int            `json:"safe"`
	TrainedAt  time.Time      `json:"trained_at"`
}

// ModelRegistry holds the most recently trained attendance model.
// Concurrent trainings are last-write-wins; each install bumps the version.
type ModelRegistry struct {
	mu      sync.RWMutex
	current *TrainedModel
	version int
	cfg     LogisticConfig
	now     func() time.Time
}

func NewModelRegistry(cfg LogisticConfig) *ModelRegistry {
	return &ModelRegistry{cfg: cfg, now: time.Now}
}

// Train fits on the given population and installs the result.
// On error the previously installed model is kept.
func (r *ModelRegistry) Train(ctx context.Context, samples []AttendanceSample) (*TrainedModel, error) {
	model, ts, err := TrainAttendanceClassifier(ctx, samples, r.cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.version++
	r.current = &TrainedModel{
		ID:         uuid.NewString(),
		Model:      model,
		Version:    r.version,
		SnapshotID: SnapshotID(ts),
		Records:    len(ts.Y),
		AtRisk:     ts.AtRisk,
		Safe:       ts.Safe,
		TrainedAt:  r.now().UTC(),
	}
	return r.current, nil
}

func (r *ModelRegistry) CurrentModel() (*TrainedModel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.current != nil
}

// SnapshotID hashes the design matrix and labels in order.
func SnapshotID(ts *TrainingSet) string {
	h := sha256.New()
	buf := make([]byte, 8)
	for i, row := range ts.X {
		for _, v := range row {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			h.Write(buf)
		}
		binary.LittleEndian.PutUint64(buf, uint64(ts.Y[i]))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
