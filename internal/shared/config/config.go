package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	Port          string
	Env           string
	PublicBaseURL string

	// LLM settings. GeminiKey is the shared default credential; a
	// business record may carry its own key which takes precedence
	// for that tenant's calls.
	LLMProvider string
	GeminiKey   string
	OpenAIKey   string
	LLMModel    string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Port:          os.Getenv("PORT"),
		Env:           os.Getenv("ENV"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		LLMProvider:   os.Getenv("LLM_PROVIDER"),
		GeminiKey:     os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		LLMModel:      os.Getenv("LLM_MODEL"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "gemini"
	}

	return cfg
}
