// Package config handles pipeline configuration
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/subsight/subsight/internal/capture"
	"github.com/subsight/subsight/internal/preprocess"
	"github.com/subsight/subsight/internal/syncx"
)

// Periodic capture interval bounds in milliseconds.
const (
	MinCaptureIntervalMS = 50
	MaxCaptureIntervalMS = 2000
)

type Config struct {
	HTTPAddr string

	SourceLang string
	TargetLang string

	// Capture
	CaptureIntervalMS int
	Region            capture.Region

	// Preprocessing
	Preprocess     preprocess.Config
	DebugImagePath string // empty disables the debug artifact

	// OCR. API keys come from the environment only and are never serialized
	// back to clients.
	OCREngine      string // "tesseract" or "vision"
	TesseractPath  string
	TesseractLangs string
	VisionBaseURL  string
	VisionAPIKey   string `json:"-"`
	VisionModel    string

	// Translation providers
	ProviderOrder      []string // tried in order
	OpenAIAPIKey       string   `json:"-"`
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAIMaxRequests  int // per session, 0 = unlimited
	OpenAIContextLines int // prior translated lines sent as chat context
	OpenAIGameContext  string
	DeepLAPIKey        string `json:"-"`
	DeepLBaseURL       string
	GoogleBaseURL      string

	// Subtitle display
	HistoryLimit      int
	MaxLines          int
	DisplayDurationMS int

	// Stability gating
	DebounceWindowMS int
	EmptyExpiryCount int
	ImmediateCommit  bool
}

func Load() Config {
	return Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),

		SourceLang: getEnv("SOURCE_LANG", "en"),
		TargetLang: getEnv("TARGET_LANG", "pt"),

		CaptureIntervalMS: getEnvInt("CAPTURE_INTERVAL_MS", 500),
		Region: capture.Region{
			X:      getEnvInt("REGION_X", 0),
			Y:      getEnvInt("REGION_Y", 0),
			Width:  getEnvInt("REGION_WIDTH", 0),
			Height: getEnvInt("REGION_HEIGHT", 0),
			Mode:   capture.ParseMode(getEnv("CAPTURE_MODE", "fullscreen")),
		},

		Preprocess: preprocess.Config{
			Grayscale:     getEnvBool("PP_GRAYSCALE", true),
			Invert:        getEnvBool("PP_INVERT", false),
			Contrast:      getEnvFloat("PP_CONTRAST", 1.0),
			Threshold:     getEnvInt("PP_THRESHOLD", 0),
			Upscale:       getEnvFloat("PP_UPSCALE", 1.0),
			Blur:          getEnvFloat("PP_BLUR", 0),
			Dilate:        getEnvInt("PP_DILATE", 0),
			Erode:         getEnvInt("PP_ERODE", 0),
			EdgeDetection: getEnvInt("PP_EDGE_DETECTION", 0),
		},
		DebugImagePath: getEnv("DEBUG_IMAGE_PATH", ""),

		OCREngine:      getEnv("OCR_ENGINE", "tesseract"),
		TesseractPath:  getEnv("TESSERACT_PATH", "tesseract"),
		TesseractLangs: getEnv("TESSERACT_LANGS", "eng"),
		VisionBaseURL:  getEnv("VISION_BASE_URL", "https://api.openai.com/v1"),
		VisionAPIKey:   getEnv("VISION_API_KEY", ""),
		VisionModel:    getEnv("VISION_MODEL", "gpt-4o-mini"),

		ProviderOrder:      getEnvList("PROVIDER_ORDER", []string{"openai", "google"}),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxRequests:  getEnvInt("OPENAI_MAX_REQUESTS", 0),
		OpenAIContextLines: getEnvInt("OPENAI_CONTEXT_LINES", 5),
		OpenAIGameContext:  getEnv("OPENAI_GAME_CONTEXT", ""),
		DeepLAPIKey:        getEnv("DEEPL_API_KEY", ""),
		DeepLBaseURL:       getEnv("DEEPL_BASE_URL", "https://api-free.deepl.com"),
		GoogleBaseURL:      getEnv("GOOGLE_BASE_URL", "https://translate.googleapis.com"),

		HistoryLimit:      getEnvInt("HISTORY_LIMIT", 100),
		MaxLines:          getEnvInt("MAX_LINES", 3),
		DisplayDurationMS: getEnvInt("DISPLAY_DURATION_MS", 5000),

		DebounceWindowMS: getEnvInt("DEBOUNCE_WINDOW_MS", 300),
		EmptyExpiryCount: getEnvInt("EMPTY_EXPIRY_COUNT", 3),
		ImmediateCommit:  getEnvBool("IMMEDIATE_COMMIT", false),
	}
}

// CaptureInterval returns the periodic capture interval, clamped to the
// supported range.
func (c Config) CaptureInterval() time.Duration {
	ms := c.CaptureIntervalMS
	if ms < MinCaptureIntervalMS {
		ms = MinCaptureIntervalMS
	}
	if ms > MaxCaptureIntervalMS {
		ms = MaxCaptureIntervalMS
	}
	return time.Duration(ms) * time.Millisecond
}

// DisplayDuration returns how long a committed subtitle stays on screen.
func (c Config) DisplayDuration() time.Duration {
	return time.Duration(c.DisplayDurationMS) * time.Millisecond
}

// DebounceWindow returns how long a candidate must keep recurring before it
// is committed as stable.
func (c Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceWindowMS) * time.Millisecond
}

// Store holds the live configuration snapshot. The pipeline reads a fresh
// snapshot at the start of each cycle, so a hot-reloaded config takes effect
// on the next cycle without a restart.
type Store struct {
	cfg *syncx.RWGuard[Config]
}

// NewStore creates a store seeded with an initial snapshot.
func NewStore(cfg Config) *Store {
	return &Store{cfg: syncx.NewGuard(cfg)}
}

// Snapshot returns the current configuration by value.
func (s *Store) Snapshot() Config {
	return s.cfg.Get()
}

// Replace swaps in a new configuration wholesale.
func (s *Store) Replace(cfg Config) {
	s.cfg.Set(cfg)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
