package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	LLM      LLMConfig
	GigaChat GigaChatConfig
	OCR      OCRConfig
	Scan     ScanConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

// DSN returns the libpq keyword/value connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the connection string in URL form using the given scheme.
func (c DatabaseConfig) URL(scheme string) string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s?sslmode=%s",
		scheme, c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderGigaChat = "gigachat"
)

type LLMConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	// Timeout bounds one remote call. Zero means no timeout.
	Timeout time.Duration
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
}

const (
	EngineTesseract = "tesseract"
	EngineAzure     = "azure"
)

type OCRConfig struct {
	Engine        string
	Languages     []string
	AzureEndpoint string
	AzureKey      string
	AzureLanguage string
	MaxConcurrent int
	Preprocess    bool
}

type ScanConfig struct {
	UploadDir string
}

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

func Load() (*Config, error) {
	// .env is optional; plain environment variables work too
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "60"))
	bodyLimitMB, _ := strconv.Atoi(getEnv("SERVER_BODY_LIMIT_MB", "10"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	llmTimeout, _ := strconv.Atoi(getEnv("LLM_TIMEOUT_SECONDS", "0"))
	ocrMax, _ := strconv.Atoi(getEnv("OCR_MAX_CONCURRENT", "3"))

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini))
	baseURL := getEnv("LLM_BASE_URL", "")
	if baseURL == "" && provider == ProviderGemini {
		baseURL = geminiBaseURL
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
			BodyLimit:    bodyLimitMB * 1024 * 1024,
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "koins"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnv("DB_AUTO_MIGRATE", "true") == "true",
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		LLM: LLMConfig{
			Provider: provider,
			APIKey:   getEnv("LLM_API_KEY", ""),
			BaseURL:  baseURL,
			Model:    getEnv("LLM_MODEL", "gemini-2.0-flash"),
			Timeout:  time.Duration(llmTimeout) * time.Second,
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			InsecureSkipVerify: getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "false") == "true",
		},
		OCR: OCRConfig{
			Engine:        strings.ToLower(getEnv("OCR_ENGINE", EngineTesseract)),
			Languages:     splitList(getEnv("OCR_LANGUAGES", "spa,eng")),
			AzureEndpoint: getEnv("AZURE_VISION_ENDPOINT", ""),
			AzureKey:      getEnv("AZURE_VISION_KEY", ""),
			AzureLanguage: getEnv("AZURE_VISION_LANGUAGE", "es"),
			MaxConcurrent: ocrMax,
			Preprocess:    getEnv("OCR_PREPROCESS", "true") == "true",
		},
		Scan: ScanConfig{
			UploadDir: getEnv("SCAN_UPLOAD_DIR", os.TempDir()),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot be built from.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderGigaChat:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider)
	}

	switch c.OCR.Engine {
	case EngineTesseract:
	case EngineAzure:
		if c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "" {
			return fmt.Errorf("azure OCR engine requires AZURE_VISION_ENDPOINT and AZURE_VISION_KEY")
		}
	default:
		return fmt.Errorf("unsupported OCR_ENGINE %q", c.OCR.Engine)
	}

	if c.OCR.MaxConcurrent < 1 {
		return fmt.Errorf("OCR_MAX_CONCURRENT must be positive, got %d", c.OCR.MaxConcurrent)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("LLM_TIMEOUT_SECONDS must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
