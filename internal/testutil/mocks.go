package testutil

import (
	"context"
	"errors"
	"moodwave/internal/config"
	"moodwave/internal/model"
	"moodwave/internal/repository/db"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MockDatabase is a mock implementation of db.Database for testing
type MockDatabase struct {
	// Observation mocks
	AppendFunc     func(ctx context.Context, obs db.Observation) (*db.Observation, error)
	HistoryFunc    func(ctx context.Context, userID string) ([]db.Observation, error)
	AllHistoryFunc func(ctx context.Context) ([]db.Observation, error)

	// Model mocks
	SaveModelFunc   func(ctx context.Context, m db.StoredModel) (*db.StoredModel, error)
	LoadModelFunc   func(ctx context.Context, userID string) (*db.StoredModel, error)
	DeleteModelFunc func(ctx context.Context, userID string) error

	// Training run mocks
	RecordTrainingRunFunc func(ctx context.Context, run db.TrainingRun) error
	ListTrainingRunsFunc  func(ctx context.Context, userID string, limit int) ([]db.TrainingRun, error)
}

// Observation methods
func (m *MockDatabase) Append(ctx context.Context, obs db.Observation) (*db.Observation, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, obs)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) History(ctx context.Context, userID string) ([]db.Observation, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) AllHistory(ctx context.Context) ([]db.Observation, error) {
	if m.AllHistoryFunc != nil {
		return m.AllHistoryFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

// Model methods
func (m *MockDatabase) SaveModel(ctx context.Context, sm db.StoredModel) (*db.StoredModel, error) {
	if m.SaveModelFunc != nil {
		return m.SaveModelFunc(ctx, sm)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) LoadModel(ctx context.Context, userID string) (*db.StoredModel, error) {
	if m.LoadModelFunc != nil {
		return m.LoadModelFunc(ctx, userID)
	}
	return nil, db.ErrModelNotFound
}

func (m *MockDatabase) DeleteModel(ctx context.Context, userID string) error {
	if m.DeleteModelFunc != nil {
		return m.DeleteModelFunc(ctx, userID)
	}
	return errors.New("not implemented")
}

// Training run methods
func (m *MockDatabase) RecordTrainingRun(ctx context.Context, run db.TrainingRun) error {
	if m.RecordTrainingRunFunc != nil {
		return m.RecordTrainingRunFunc(ctx, run)
	}
	return nil
}

func (m *MockDatabase) ListTrainingRuns(ctx context.Context, userID string, limit int) ([]db.TrainingRun, error) {
	if m.ListTrainingRunsFunc != nil {
		return m.ListTrainingRunsFunc(ctx, userID, limit)
	}
	return []db.TrainingRun{}, nil
}

func (m *MockDatabase) Close() error {
	return nil
}

// MemoryDatabase is an in-memory db.Database with real append/replace semantics.
// Set Fail to make every call return a store error.
type MemoryDatabase struct {
	mu           sync.Mutex
	observations []db.Observation
	models       map[string]db.StoredModel
	runs         []db.TrainingRun
	nextID       int

	Fail error
}

var _ db.Database = (*MemoryDatabase)(nil)

// NewMemoryDatabase creates an empty in-memory store
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{models: make(map[string]db.StoredModel)}
}

func (m *MemoryDatabase) fail(op, userID string) error {
	if m.Fail != nil {
		return db.NewStoreError(op, userID, m.Fail)
	}
	return nil
}

func (m *MemoryDatabase) Append(ctx context.Context, obs db.Observation) (*db.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("append observation", obs.UserID); err != nil {
		return nil, err
	}
	m.nextID++
	obs.ID = "obs-" + strconv.Itoa(m.nextID)
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Unix(int64(m.nextID), 0).UTC()
	}
	m.observations = append(m.observations, obs)
	return &obs, nil
}

func (m *MemoryDatabase) History(ctx context.Context, userID string) ([]db.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("read history", userID); err != nil {
		return nil, err
	}
	history := []db.Observation{}
	for _, o := range m.observations {
		if o.UserID == userID {
			history = append(history, o)
		}
	}
	sort.SliceStable(history, func(i, j int) bool { return history[i].Timestamp.Before(history[j].Timestamp) })
	return history, nil
}

func (m *MemoryDatabase) AllHistory(ctx context.Context) ([]db.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("read all history", ""); err != nil {
		return nil, err
	}
	all := append([]db.Observation{}, m.observations...)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].UserID != all[j].UserID {
			return all[i].UserID < all[j].UserID
		}
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all, nil
}

func (m *MemoryDatabase) SaveModel(ctx context.Context, sm db.StoredModel) (*db.StoredModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("save model", sm.UserID); err != nil {
		return nil, err
	}
	sm.Version = m.models[sm.UserID].Version + 1
	sm.TrainedAt = time.Now().UTC()
	sm.Data = append([]byte(nil), sm.Data...)
	m.models[sm.UserID] = sm
	return &sm, nil
}

func (m *MemoryDatabase) LoadModel(ctx context.Context, userID string) (*db.StoredModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("load model", userID); err != nil {
		return nil, err
	}
	sm, ok := m.models[userID]
	if !ok {
		return nil, db.ErrModelNotFound
	}
	return &sm, nil
}

func (m *MemoryDatabase) DeleteModel(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete model", userID); err != nil {
		return err
	}
	delete(m.models, userID)
	return nil
}

func (m *MemoryDatabase) RecordTrainingRun(ctx context.Context, run db.TrainingRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("record training run", run.UserID); err != nil {
		return err
	}
	run.ID = "run-" + strconv.Itoa(len(m.runs)+1)
	run.CreatedAt = time.Now().UTC()
	m.runs = append(m.runs, run)
	return nil
}

func (m *MemoryDatabase) ListTrainingRuns(ctx context.Context, userID string, limit int) ([]db.TrainingRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list training runs", userID); err != nil {
		return nil, err
	}
	runs := []db.TrainingRun{}
	for i := len(m.runs) - 1; i >= 0 && len(runs) < limit; i-- {
		if m.runs[i].UserID == userID {
			runs = append(runs, m.runs[i])
		}
	}
	return runs, nil
}

func (m *MemoryDatabase) Close() error {
	return nil
}

// MockRegressor is a mock implementation of model.Regressor for testing
type MockRegressor struct {
	KindValue   model.Kind
	Window      int
	FitFunc     func(rows [][]float64, labels []float64) error
	PredictFunc func(window [][]float64) (float64, error)

	// Windows records a copy of every window passed to Predict
	Windows [][][]float64
}

func (m *MockRegressor) Kind() model.Kind {
	if m.KindValue == "" {
		return model.KindLinear
	}
	return m.KindValue
}

func (m *MockRegressor) WindowSize() int {
	if m.Window < 1 {
		return 1
	}
	return m.Window
}

func (m *MockRegressor) Fit(rows [][]float64, labels []float64) error {
	if m.FitFunc != nil {
		return m.FitFunc(rows, labels)
	}
	return nil
}

func (m *MockRegressor) Predict(window [][]float64) (float64, error) {
	m.Windows = append(m.Windows, model.Window(window, len(window)))
	if m.PredictFunc != nil {
		return m.PredictFunc(window)
	}
	return 0, nil
}

// NewMockConfig creates an AppConfig with test defaults
func NewMockConfig() *config.AppConfig {
	return &config.AppConfig{
		Server: config.ServerConfig{Port: "8080", SubmitBurst: 10, SubmitWindow: time.Minute},
		Database: config.DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "test.db",
		},
		Model: config.ModelConfig{
			Kind:      config.ModelKindLinear,
			TimeSteps: config.DefaultTimeSteps,
			Ridge:     config.DefaultRidge,
			Store:     config.ModelStoreDB,
		},
		Training: config.TrainingConfig{Policy: "always", Every: 1},
		Forecast: config.ForecastConfig{MaxHorizon: 30},
		Breaker:  config.BreakerConfig{FailureThreshold: 5, Timeout: time.Second},
		Identity: config.IdentityConfig{
			Secret:     []byte("test-secret-key-that-is-long-enough-32"),
			CookieName: "moodwave_uid",
			TTL:        time.Hour,
		},
	}
}
