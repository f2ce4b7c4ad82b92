package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Convert     ConvertConfig     `yaml:"convert" mapstructure:"convert"`
	Chunk       ChunkConfig       `yaml:"chunk" mapstructure:"chunk"`
	Archetype   ArchetypeConfig   `yaml:"archetype" mapstructure:"archetype"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Extract     ExtractConfig     `yaml:"extract" mapstructure:"extract"`
	Consolidate ConsolidateConfig `yaml:"consolidate" mapstructure:"consolidate"`
	Report      ReportConfig      `yaml:"report" mapstructure:"report"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the job/fact database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ConvertConfig configures document-to-text conversion.
type ConvertConfig struct {
	// Provider is "tabula" (pure Go) or "pdftotext" (external binary).
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// ChunkConfig configures document chunking.
type ChunkConfig struct {
	MaxTokens     int `yaml:"max_tokens" mapstructure:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens" mapstructure:"overlap_tokens"`
}

// ArchetypeConfig points at the taxonomy files. Empty paths fall back to the
// embedded core taxonomy.
type ArchetypeConfig struct {
	CorePath      string `yaml:"core_path" mapstructure:"core_path"`
	ExtensionPath string `yaml:"extension_path" mapstructure:"extension_path"`
}

// LLMConfig configures the extraction model provider.
type LLMConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"` // "anthropic" or "openai"
	AnthropicKey   string  `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	OpenAIKey      string  `yaml:"openai_key" mapstructure:"openai_key"`
	OpenAIBaseURL  string  `yaml:"openai_base_url" mapstructure:"openai_base_url"`
	FastModel      string  `yaml:"fast_model" mapstructure:"fast_model"`
	StrongModel    string  `yaml:"strong_model" mapstructure:"strong_model"`
	MaxTokens      int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	CacheTTLMins   int     `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	MaxAttempts    int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ExtractConfig configures extraction behavior.
type ExtractConfig struct {
	EscalationConfidence float64 `yaml:"escalation_confidence" mapstructure:"escalation_confidence"`
	DeadLetter           bool    `yaml:"dead_letter" mapstructure:"dead_letter"`
}

// ConsolidateConfig configures the fact consolidation engine.
type ConsolidateConfig struct {
	Tolerance   float64 `yaml:"tolerance" mapstructure:"tolerance"`
	MaxEvidence int     `yaml:"max_evidence" mapstructure:"max_evidence"`
}

// ReportConfig configures review artifact generation.
type ReportConfig struct {
	OutDir  string   `yaml:"out_dir" mapstructure:"out_dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
}

// ServerConfig configures the jobs API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ESIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "esia-review.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("convert.provider", "tabula")
	v.SetDefault("convert.pdftotext_path", "pdftotext")
	v.SetDefault("chunk.max_tokens", 1800)
	v.SetDefault("chunk.overlap_tokens", 150)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.fast_model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.strong_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.requests_per_sec", 2.0)
	v.SetDefault("llm.cache_ttl_mins", 60)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("extract.escalation_confidence", 0.5)
	v.SetDefault("extract.dead_letter", true)
	v.SetDefault("consolidate.tolerance", 0.05)
	v.SetDefault("consolidate.max_evidence", 3)
	v.SetDefault("report.out_dir", ".")
	v.SetDefault("report.formats", []string{"xlsx", "html", "md"})
	v.SetDefault("batch.max_concurrent_documents", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
