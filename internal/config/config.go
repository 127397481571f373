package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel   string           `yaml:"log_level"`
	LLM        LLMConfig        `yaml:"llm"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Retriever  RetrieverConfig  `yaml:"retriever"`
	Extraction ExtractionConfig `yaml:"extraction"`
	OCR        OCRConfig        `yaml:"ocr"`
	Loader     LoaderConfig     `yaml:"loader"`
}

// LLMConfig selects the chat provider. Key is never read from the file,
// it is resolved from the environment variable named by KeyEnv.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	KeyEnv   string `yaml:"key_env"`
	Key      string `yaml:"-"`
}

// ChunkerConfig controls chunking. ChunkOverlap is a pointer so that an
// explicit 0 can be told apart from an unset value.
type ChunkerConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap *int     `yaml:"chunk_overlap"`
	Separators   []string `yaml:"separators"`
	Normalize    *bool    `yaml:"normalize"`
}

type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// ExtractionConfig holds the thresholds that decide whether directly
// extracted PDF text is trustworthy.
type ExtractionConfig struct {
	MinChars        int     `yaml:"min_chars"`
	MinWords        int     `yaml:"min_words"`
	MaxCharsPerWord float64 `yaml:"max_chars_per_word"`
}

type OCRConfig struct {
	DPI         float64 `yaml:"dpi"`
	Language    string  `yaml:"language"`
	PageSegMode int     `yaml:"page_seg_mode"`
	TempDir     string  `yaml:"temp_dir"`
}

type LoaderConfig struct {
	SiteAttempts   int `yaml:"site_attempts"`
	SiteRetryDelay int `yaml:"site_retry_delay_secs"`
}

const (
	DefaultChunkSize       = 6000
	DefaultChunkOverlap    = 1000
	DefaultTopK            = 3
	DefaultMinChars        = 100
	DefaultMinWords        = 10
	DefaultMaxCharsPerWord = 20
	DefaultDPI             = 300
	DefaultLanguage        = "por"
	DefaultPageSegMode     = 1
	DefaultSiteAttempts    = 5
	DefaultSiteRetryDelay  = 3
)

var DefaultSeparators = []string{"\n\n", "\n", ".", " "}

var defaultKeyEnv = map[string]string{
	"groq":   "GROQ_API_KEY",
	"openai": "OPENAI_API_KEY",
}

// LoadConfig reads the yaml file at path. A missing file yields the
// defaults. Variables from a .env file in the working directory are loaded
// before the API key is resolved.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyDefaults()

	_ = godotenv.Load()
	if cfg.LLM.KeyEnv != "" {
		cfg.LLM.Key = os.Getenv(cfg.LLM.KeyEnv)
	}
	return &cfg, nil
}

// Default returns a config with every field at its default value.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "groq"
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.Model = "gpt-4o-mini"
		case "ollama":
			c.LLM.Model = "llama3.1"
		default:
			c.LLM.Model = "llama-3.1-70b-versatile"
		}
	}
	if c.LLM.KeyEnv == "" {
		c.LLM.KeyEnv = defaultKeyEnv[c.LLM.Provider]
	}

	if c.Chunker.ChunkSize <= 0 {
		c.Chunker.ChunkSize = DefaultChunkSize
	}
	overlap := DefaultChunkOverlap
	if c.Chunker.ChunkOverlap != nil {
		overlap = max(*c.Chunker.ChunkOverlap, 0)
	}
	// overlap must leave room for new content in every chunk
	if overlap >= c.Chunker.ChunkSize {
		overlap = c.Chunker.ChunkSize / 2
	}
	c.Chunker.ChunkOverlap = &overlap
	if len(c.Chunker.Separators) == 0 {
		c.Chunker.Separators = append([]string(nil), DefaultSeparators...)
	}
	if c.Chunker.Normalize == nil {
		normalize := true
		c.Chunker.Normalize = &normalize
	}

	if c.Retriever.TopK <= 0 {
		c.Retriever.TopK = DefaultTopK
	}

	if c.Extraction.MinChars <= 0 {
		c.Extraction.MinChars = DefaultMinChars
	}
	if c.Extraction.MinWords <= 0 {
		c.Extraction.MinWords = DefaultMinWords
	}
	if c.Extraction.MaxCharsPerWord <= 0 {
		c.Extraction.MaxCharsPerWord = DefaultMaxCharsPerWord
	}

	if c.OCR.DPI <= 0 {
		c.OCR.DPI = DefaultDPI
	}
	if c.OCR.Language == "" {
		c.OCR.Language = DefaultLanguage
	}
	if c.OCR.PageSegMode <= 0 {
		c.OCR.PageSegMode = DefaultPageSegMode
	}

	if c.Loader.SiteAttempts <= 0 {
		c.Loader.SiteAttempts = DefaultSiteAttempts
	}
	if c.Loader.SiteRetryDelay <= 0 {
		c.Loader.SiteRetryDelay = DefaultSiteRetryDelay
	}
}
