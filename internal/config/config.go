package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed tuning.yaml
var tuningYAML []byte

type Config struct {
	Camera   CameraConfig
	Data     DataConfig
	Database DatabaseConfig
	Server   ServerConfig
	Tuning   TuningConfig
}

type CameraConfig struct {
	Device int // camera device index (default 0)
	Width  int // requested capture width (default 640)
	Height int // requested capture height (default 480)
}

type DataConfig struct {
	Dir         string // directory holding the detection cascade and index files
	CascadeFile string // Haar cascade XML file name inside Dir
}

type DatabaseConfig struct {
	Driver       string // "sqlite" (default) or "postgres"
	URL          string // postgres DSN, used when Driver is "postgres"
	SQLitePath   string // sqlite file path (default data dir + /veriface.db)
	MaxOpenConns int    // maximum open connections (default 25)
	MaxIdleConns int    // maximum idle connections (default 5)
}

type ServerConfig struct {
	Host string
	Port int
}

// TuningConfig carries the engine tuning defaults from the embedded tuning.yaml.
type TuningConfig struct {
	Engine     EngineTuning     `yaml:"engine"`
	Attendance AttendanceTuning `yaml:"attendance"`
	Enrollment EnrollmentTuning `yaml:"enrollment"`
}

type EngineTuning struct {
	ConfidenceThreshold   float64 `yaml:"confidence_threshold"`
	VerificationThreshold float64 `yaml:"verification_threshold"`
	RequiredConfirmations int     `yaml:"required_confirmations"`
	MismatchLimit         int     `yaml:"mismatch_limit"`
	NeighborCount         int     `yaml:"neighbor_count"`
	NeighborMajority      float64 `yaml:"neighbor_majority"`
	MaxFailedReads        int     `yaml:"max_failed_reads"`
	CameraOpenAttempts    int     `yaml:"camera_open_attempts"`
	CameraOpenBackoffMs   int     `yaml:"camera_open_backoff_ms"`
	FrameDelayMs          int     `yaml:"frame_delay_ms"`
}

// CameraOpenBackoff returns the backoff between camera open attempts.
func (t EngineTuning) CameraOpenBackoff() time.Duration {
	return time.Duration(t.CameraOpenBackoffMs) * time.Millisecond
}

// FrameDelay returns the yield between worker iterations.
func (t EngineTuning) FrameDelay() time.Duration {
	return time.Duration(t.FrameDelayMs) * time.Millisecond
}

type AttendanceTuning struct {
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// Cooldown returns the duplicate-suppression window for the attendance ledger.
func (t AttendanceTuning) Cooldown() time.Duration {
	return time.Duration(t.CooldownSeconds) * time.Second
}

type EnrollmentTuning struct {
	SampleQuota int `yaml:"sample_quota"`
	SampleEvery int `yaml:"sample_every"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envIndex is envInt that also accepts zero (camera device 0 is valid).
func envIndex(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var tuning TuningConfig
	if err := yaml.Unmarshal(tuningYAML, &tuning); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded tuning.yaml: " + err.Error())
	}

	dataDir := envString("VERIFACE_DATA_DIR", "data")

	return &Config{
		Camera: CameraConfig{
			Device: envIndex("CAMERA_DEVICE", 0),
			Width:  envInt("CAMERA_WIDTH", 640),
			Height: envInt("CAMERA_HEIGHT", 480),
		},
		Data: DataConfig{
			Dir:         dataDir,
			CascadeFile: envString("CASCADE_FILE", "haarcascade_frontalface_default.xml"),
		},
		Database: DatabaseConfig{
			Driver:       envString("DATABASE_DRIVER", "sqlite"),
			URL:          os.Getenv("DATABASE_URL"),
			SQLitePath:   envString("DATABASE_SQLITE_PATH", dataDir+"/veriface.db"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Server: ServerConfig{
			Host: envString("SERVER_HOST", "0.0.0.0"),
			Port: envInt("SERVER_PORT", 8080),
		},
		Tuning: tuning,
	}
}
