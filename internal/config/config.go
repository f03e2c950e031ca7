package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
	Review  ReviewConfig  `mapstructure:"review"  validate:"required"`
	Log     LogConfig     `mapstructure:"log"     validate:"required"`
}

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// StorageConfig selects the medium holding the persistent card set.
type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=file sqlite"`
	// Path is the JSON file for the file backend or the database file for sqlite.
	Path string `mapstructure:"path" validate:"required"`
	// Location is the row key for the sqlite backend. Ignored by the file backend.
	Location string `mapstructure:"location" validate:"required"`
}

// ReviewConfig contains settings for the review loop.
type ReviewConfig struct {
	Policy          string `mapstructure:"policy"           validate:"required,oneof=beta linear"`
	ExclusionWindow int    `mapstructure:"exclusion_window" validate:"gte=0"`
	Reverse         bool   `mapstructure:"reverse"`
	Autosave        bool   `mapstructure:"autosave"`
	// Watch enables filesystem notifications for external edits (file backend only).
	Watch bool `mapstructure:"watch"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}
