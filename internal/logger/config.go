package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel  string                  `mapstructure:"default_level" yaml:"default_level" json:"default_level"`
	Timezone      string                  `mapstructure:"timezone" yaml:"timezone" json:"timezone"` // "Local", "UTC" or an IANA name
	Console       *ConsoleOutput          `mapstructure:"console" yaml:"console" json:"console"`
	FileOutput    *FileOutput             `mapstructure:"file_output" yaml:"file_output" json:"file_output"`
	ModuleOutputs map[string]ModuleOutput `mapstructure:"modules" yaml:"modules" json:"modules"`
	ModuleLevels  map[string]string       `mapstructure:"module_levels" yaml:"module_levels" json:"module_levels"`
}

// ConsoleOutput writes human-readable text without timestamps; the supervisor
// (journald, docker) adds them.
type ConsoleOutput struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Level   string `mapstructure:"level" yaml:"level" json:"level"`
}

// FileOutput writes JSON lines rotated by lumberjack.
type FileOutput struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Path       string `mapstructure:"path" yaml:"path" json:"path"`
	Level      string `mapstructure:"level" yaml:"level" json:"level"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size" json:"max_size"`          // MB before rotation
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age" json:"max_age"`             // days to keep rotated files
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"` // rotated files to keep
	Compress   bool   `mapstructure:"compress" yaml:"compress" json:"compress"`
}

// ModuleOutput routes one module to its own file.
type ModuleOutput struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	FilePath    string `mapstructure:"file_path" yaml:"file_path" json:"file_path"`
	Level       string `mapstructure:"level" yaml:"level" json:"level"`
	ConsoleAlso bool   `mapstructure:"console_also" yaml:"console_also" json:"console_also"`
}

const (
	DefaultLogLevel       = "info"
	DefaultLogPath        = "logs/bpi.log"
	DefaultAccessLogPath  = "logs/access.log"
	DefaultAuthLogPath    = "logs/auth.log"
	DefaultMaxSize        = 100
	DefaultMaxAge         = 30
	DefaultMaxBackups     = 10
	DefaultConsoleEnabled = true
	DefaultFileEnabled    = true
)

func ensureModuleOutput(cfg *LoggingConfig, module, filePath string) {
	if _, exists := cfg.ModuleOutputs[module]; !exists {
		cfg.ModuleOutputs[module] = ModuleOutput{
			Enabled:  true,
			FilePath: filePath,
			Level:    DefaultLogLevel,
		}
	}
}

// applyConfigDefaults fills nil sections so an old config without a logging
// block still logs to console and file.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}
	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{Enabled: DefaultConsoleEnabled, Level: DefaultLogLevel}
	}
	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{
			Enabled:    DefaultFileEnabled,
			Path:       DefaultLogPath,
			Level:      DefaultLogLevel,
			MaxSize:    DefaultMaxSize,
			MaxAge:     DefaultMaxAge,
			MaxBackups: DefaultMaxBackups,
		}
	}
	if cfg.ModuleOutputs == nil {
		cfg.ModuleOutputs = make(map[string]ModuleOutput)
	}

	// request and sign-in trails go to their own files
	ensureModuleOutput(cfg, "access", DefaultAccessLogPath)
	ensureModuleOutput(cfg, "security", DefaultAuthLogPath)
}
