package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Default configuration
	cfg := getDefaultConfig()

	// Load from config file
	configFile := getConfigFile()
	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnv(cfg)

	// Validate configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// getDefaultConfig returns default configuration values
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			TLS: TLSConfig{
				Enabled: false,
			},
		},
		Repository: RepositoryConfig{
			Backend:  "memory",
			Filename: "./data/queue.db",
			Autoload: true,
		},
		Worker: WorkerConfig{
			DefaultPoolSize: 4,
			ShutdownTimeout: 30 * time.Second,
			Pools:           map[string]int{},
		},
		Processing: ProcessingConfig{
			TempDirectory:     "./temp",
			Timeout:           2 * time.Minute,
			ObjectStoreURL:    "localhost:9000",
			ObjectStoreKey:    "minioadmin",
			ObjectStoreSecret: "minioadmin123",
			UseSSL:            false,
			Bucket:            "rendered-documents",
			OutputDirectory:   "./output",
		},
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		},
	}
}

// getConfigFile determines which config file to use
func getConfigFile() string {
	// Check environment variable first
	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		return configFile
	}

	// Check for environment-specific config files
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	configPaths := []string{
		fmt.Sprintf("configs/%s.yaml", env),
		fmt.Sprintf("configs/%s.yml", env),
		"config.yaml",
		"config.yml",
	}

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) {
	// Server configuration
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p := parseInt(port); p > 0 {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}

	// Repository configuration
	if backend := os.Getenv("REPOSITORY_BACKEND"); backend != "" {
		cfg.Repository.Backend = backend
	}
	if filename := os.Getenv("REPOSITORY_FILENAME"); filename != "" {
		cfg.Repository.Filename = filename
	}

	// Worker configuration
	if poolSize := os.Getenv("WORKER_DEFAULT_POOL_SIZE"); poolSize != "" {
		if p := parseInt(poolSize); p > 0 {
			cfg.Worker.DefaultPoolSize = p
		}
	}

	// Processing configuration
	if tempDir := os.Getenv("PROCESSING_TEMP_DIRECTORY"); tempDir != "" {
		cfg.Processing.TempDirectory = tempDir
	}
	if objectStoreURL := os.Getenv("PROCESSING_OBJECT_STORE_URL"); objectStoreURL != "" {
		cfg.Processing.ObjectStoreURL = objectStoreURL
	}
	if key := os.Getenv("PROCESSING_OBJECT_STORE_KEY"); key != "" {
		cfg.Processing.ObjectStoreKey = key
	}
	if secret := os.Getenv("PROCESSING_OBJECT_STORE_SECRET"); secret != "" {
		cfg.Processing.ObjectStoreSecret = secret
	}
	if bucket := os.Getenv("PROCESSING_BUCKET"); bucket != "" {
		cfg.Processing.Bucket = bucket
	}
	if outputDir := os.Getenv("PROCESSING_OUTPUT_DIRECTORY"); outputDir != "" {
		cfg.Processing.OutputDirectory = outputDir
	}

	// Logger configuration
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logger.Level = strings.ToLower(logLevel)
	}
	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		cfg.Logger.Format = strings.ToLower(logFormat)
	}
}

// validate validates the configuration
func validate(cfg *Config) error {
	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	// Validate repository configuration
	if cfg.Repository.Backend != "memory" && cfg.Repository.Backend != "bolt" {
		return fmt.Errorf("invalid repository backend: %s", cfg.Repository.Backend)
	}
	if cfg.Repository.Backend == "bolt" && cfg.Repository.Filename == "" {
		return fmt.Errorf("repository filename is required for the bolt backend")
	}

	// Validate worker configuration
	if cfg.Worker.DefaultPoolSize <= 0 {
		return fmt.Errorf("worker default pool size must be positive: %d", cfg.Worker.DefaultPoolSize)
	}

	// Create directories if they don't exist
	dirs := []string{cfg.Processing.TempDirectory}
	if cfg.Repository.Backend == "bolt" {
		dirs = append(dirs, filepath.Dir(cfg.Repository.Filename))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Validate logger configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[cfg.Logger.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Logger.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validLogFormats[cfg.Logger.Format] {
		return fmt.Errorf("invalid log format: %s", cfg.Logger.Format)
	}

	return nil
}

// Helper functions for parsing environment variables
func parseInt(s string) int {
	var result int
	fmt.Sscanf(s, "%d", &result)
	return result
}

// GetConfigPath returns the absolute path to a config file
func GetConfigPath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}

	// Look in configs directory first
	configsPath := filepath.Join("configs", filename)
	if _, err := os.Stat(configsPath); err == nil {
		abs, _ := filepath.Abs(configsPath)
		return abs
	}

	// Fall back to current directory
	abs, _ := filepath.Abs(filename)
	return abs
}
