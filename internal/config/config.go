package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Benchmark BenchmarkConfig `yaml:"benchmark" json:"benchmark"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Archive   ArchiveConfig   `yaml:"archive" json:"archive"`
	Export    ExportConfig    `yaml:"export" json:"export"`
}

// BenchmarkConfig controls a single benchmark run: the frame-time target,
// warm-up and sampling windows, and the entity-count search space.
type BenchmarkConfig struct {
	TargetFrameTimeMs float64 `yaml:"target_frame_time_ms" json:"target_frame_time_ms"`
	WarmupFrames      int     `yaml:"warmup_frames" json:"warmup_frames"`
	SampleFrames      int     `yaml:"sample_frames" json:"sample_frames"`
	InitialEntities   int     `yaml:"initial_entities" json:"initial_entities"`
	MinEntities       int     `yaml:"min_entities" json:"min_entities"`
	MaxEntities       int     `yaml:"max_entities" json:"max_entities"`
	GrowthFactor      float64 `yaml:"growth_factor" json:"growth_factor"`
	// Binary search stops once the bracket is narrower than
	// max(TolerancePct * midpoint, ToleranceFloor) entities.
	TolerancePct   float64 `yaml:"tolerance_pct" json:"tolerance_pct"`
	ToleranceFloor int     `yaml:"tolerance_floor" json:"tolerance_floor"`
	// Workload tuning
	ChurnRate         float64 `yaml:"churn_rate" json:"churn_rate"`
	ArchetypeVariants int     `yaml:"archetype_variants" json:"archetype_variants"`
	// History length for the rolling frame-time window exposed to the dashboard
	FrameHistory int `yaml:"frame_history" json:"frame_history"`
}

type ServerConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Host         string        `yaml:"host" json:"host"`
	Port         int           `yaml:"port" json:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	DataPath string `yaml:"data_path" json:"data_path"`
	InMemory bool   `yaml:"in_memory" json:"in_memory"`
}

type ExportConfig struct {
	ResultsDir string `yaml:"results_dir" json:"results_dir"`
}

func Load(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func DefaultConfig() *Config {
	return &Config{
		Benchmark: BenchmarkConfig{
			TargetFrameTimeMs: 16.6,
			WarmupFrames:      60,
			SampleFrames:      120,
			InitialEntities:   10_000,
			MinEntities:       100,
			MaxEntities:       50_000_000,
			GrowthFactor:      2.0,
			TolerancePct:      0.01,
			ToleranceFloor:    1000,
			ChurnRate:         0.01,
			ArchetypeVariants: 8,
			FrameHistory:      300,
		},
		Server: ServerConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Archive: ArchiveConfig{
			Enabled:  true,
			DataPath: "./data/archive",
			InMemory: false,
		},
		Export: ExportConfig{
			ResultsDir: "./benchmark_results",
		},
	}
}

func loadFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to unmarshal YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return nil
}

func loadFromEnvironment(config *Config) {
	// Benchmark configuration
	if target := os.Getenv("BENCH_TARGET_FRAME_TIME_MS"); target != "" {
		if f, err := strconv.ParseFloat(target, 64); err == nil {
			config.Benchmark.TargetFrameTimeMs = f
		}
	}
	if warmup := os.Getenv("BENCH_WARMUP_FRAMES"); warmup != "" {
		if n, err := strconv.Atoi(warmup); err == nil {
			config.Benchmark.WarmupFrames = n
		}
	}
	if samples := os.Getenv("BENCH_SAMPLE_FRAMES"); samples != "" {
		if n, err := strconv.Atoi(samples); err == nil {
			config.Benchmark.SampleFrames = n
		}
	}
	if initial := os.Getenv("BENCH_INITIAL_ENTITIES"); initial != "" {
		if n, err := strconv.Atoi(initial); err == nil {
			config.Benchmark.InitialEntities = n
		}
	}
	if max := os.Getenv("BENCH_MAX_ENTITIES"); max != "" {
		if n, err := strconv.Atoi(max); err == nil {
			config.Benchmark.MaxEntities = n
		}
	}
	if growth := os.Getenv("BENCH_GROWTH_FACTOR"); growth != "" {
		if f, err := strconv.ParseFloat(growth, 64); err == nil {
			config.Benchmark.GrowthFactor = f
		}
	}

	// Server configuration
	if enabled := os.Getenv("BENCH_SERVER_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Server.Enabled = b
		}
	}
	if host := os.Getenv("BENCH_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("BENCH_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	// Logging configuration
	if level := os.Getenv("BENCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("BENCH_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	// Archive configuration
	if enabled := os.Getenv("BENCH_ARCHIVE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Archive.Enabled = b
		}
	}
	if dataPath := os.Getenv("BENCH_ARCHIVE_DATA_PATH"); dataPath != "" {
		config.Archive.DataPath = dataPath
	}
	if inMemory := os.Getenv("BENCH_ARCHIVE_IN_MEMORY"); inMemory != "" {
		if b, err := strconv.ParseBool(inMemory); err == nil {
			config.Archive.InMemory = b
		}
	}

	// Export configuration
	if dir := os.Getenv("BENCH_RESULTS_DIR"); dir != "" {
		config.Export.ResultsDir = dir
	}
}

func (c *Config) Validate() error {
	if err := c.Benchmark.Validate(); err != nil {
		return err
	}

	// Server validation
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return fmt.Errorf("invalid server port: %d", c.Server.Port)
		}
		if c.Server.ReadTimeout <= 0 {
			return fmt.Errorf("read timeout must be positive")
		}
		if c.Server.WriteTimeout <= 0 {
			return fmt.Errorf("write timeout must be positive")
		}
	}

	// Logging validation
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	validFormats := map[string]bool{
		"json": true, "text": true, "console": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	// Archive validation
	if c.Archive.Enabled && !c.Archive.InMemory && c.Archive.DataPath == "" {
		return fmt.Errorf("archive data path cannot be empty when not in-memory")
	}

	// Export validation
	if c.Export.ResultsDir == "" {
		return fmt.Errorf("results directory cannot be empty")
	}

	return nil
}

// Validate checks the benchmark section on its own so callers supplying a
// run configuration directly get the same rejections as Load.
func (b *BenchmarkConfig) Validate() error {
	if b.TargetFrameTimeMs <= 0 {
		return fmt.Errorf("target frame time must be positive: %f", b.TargetFrameTimeMs)
	}
	if b.WarmupFrames < 0 {
		return fmt.Errorf("warmup frames cannot be negative: %d", b.WarmupFrames)
	}
	if b.SampleFrames <= 0 {
		return fmt.Errorf("sample frames must be positive: %d", b.SampleFrames)
	}
	if b.MinEntities <= 0 {
		return fmt.Errorf("min entities must be positive: %d", b.MinEntities)
	}
	if b.MinEntities > b.MaxEntities {
		return fmt.Errorf("min entities %d exceeds max entities %d", b.MinEntities, b.MaxEntities)
	}
	if b.InitialEntities < b.MinEntities || b.InitialEntities > b.MaxEntities {
		return fmt.Errorf("initial entities %d outside [%d, %d]", b.InitialEntities, b.MinEntities, b.MaxEntities)
	}
	if b.GrowthFactor <= 1.0 {
		return fmt.Errorf("growth factor must be greater than 1.0: %f", b.GrowthFactor)
	}
	if b.TolerancePct <= 0 || b.TolerancePct >= 1 {
		return fmt.Errorf("tolerance pct must be in (0, 1): %f", b.TolerancePct)
	}
	if b.ToleranceFloor <= 0 {
		return fmt.Errorf("tolerance floor must be positive: %d", b.ToleranceFloor)
	}
	if b.ChurnRate <= 0 || b.ChurnRate > 1 {
		return fmt.Errorf("churn rate must be in (0, 1]: %f", b.ChurnRate)
	}
	if b.ArchetypeVariants <= 0 {
		return fmt.Errorf("archetype variants must be positive: %d", b.ArchetypeVariants)
	}
	if b.FrameHistory <= 0 {
		return fmt.Errorf("frame history must be positive: %d", b.FrameHistory)
	}
	return nil
}

func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}
