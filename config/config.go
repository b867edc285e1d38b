package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	JWTKey    string
	SaltRound int

	AccessTokenMinutes int // access token lifetime
	RefreshTokenDays   int // refresh token lifetime

	EmailSender    string
	SendgridApiKey string
	FrontendURL    string

	PaystackSecretKey    string
	FlutterwaveSecretKey string

	GeoApiURL string // IP geolocation endpoint
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		AccessTokenMinutes: getEnvInt("JWT_ACCESS_TOKEN_MINUTES", 15),
		RefreshTokenDays:   getEnvInt("JWT_REFRESH_TOKEN_DAYS", 7),

		EmailSender:    getEnv("EMAIL_SENDER", "no-reply@nclexvirtualschool.com"),
		SendgridApiKey: getEnv("SENDGRID_API_KEY", ""),
		FrontendURL:    getEnv("FRONTEND_URL", "https://app.nclexvirtualschool.com"),

		PaystackSecretKey:    getEnv("PAYSTACK_SECRET_KEY", ""),
		FlutterwaveSecretKey: getEnv("FLUTTERWAVE_SECRET_KEY", ""),

		GeoApiURL: getEnv("GEO_API_URL", "http://ip-api.com/json"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.SendgridApiKey == "" {
		log.Println("Warning: SENDGRID_API_KEY not set. Outbound email will fail.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
