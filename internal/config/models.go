package config

// Regressor variants. The linear variant never reads mood, so its
// multi-day forecasts hold a constant value.
const (
	ModelKindLinear   = "linear"
	ModelKindWindowed = "windowed"
)

// Model store backends
const (
	ModelStoreDB   = "db"
	ModelStoreFile = "file"
)

// Defaults for the model section
const (
	DefaultTimeSteps = 5
	DefaultRidge     = 1e-3
)

// ModelConfig selects and parameterizes the per-user regressor
type ModelConfig struct {
	Kind      string  `validate:"oneof=linear windowed"`
	TimeSteps int     `validate:"gte=1,lte=60"`
	Ridge     float64 `validate:"gt=0"`
	Store     string  `validate:"oneof=db file"`
	Dir       string  `validate:"required_if=Store file"`
}

// WindowSize returns how many trailing observations the configured model reads
func (mc ModelConfig) WindowSize() int {
	if mc.Kind == ModelKindWindowed {
		return mc.TimeSteps
	}
	return 1
}

// UsesFileStore reports whether models live on disk instead of the database
func (mc ModelConfig) UsesFileStore() bool {
	return mc.Store == ModelStoreFile
}
