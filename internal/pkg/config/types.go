package config

import (
	"time"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Repository RepositoryConfig `yaml:"repository" json:"repository"`
	Worker     WorkerConfig     `yaml:"worker" json:"worker"`
	Processing ProcessingConfig `yaml:"processing" json:"processing"`
	Logger     LoggerConfig     `yaml:"logger" json:"logger"`
}

// ServerConfig represents HTTP admin-surface configuration
type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLS          TLSConfig     `yaml:"tls" json:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	CertFile string `yaml:"cert_file" json:"cert_file"`
	KeyFile  string `yaml:"key_file" json:"key_file"`
}

// RepositoryConfig selects and configures the embedded document store
// backend the Queue persists jobs to.
type RepositoryConfig struct {
	Backend  string `yaml:"backend" json:"backend"` // memory, bolt
	Filename string `yaml:"filename" json:"filename"`
	Autoload bool   `yaml:"autoload" json:"autoload"`
}

// WorkerConfig represents default worker-pool sizing and shutdown
// behavior, keyed by job type.
type WorkerConfig struct {
	DefaultPoolSize int            `yaml:"default_pool_size" json:"default_pool_size"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	Pools           map[string]int `yaml:"pools" json:"pools"`
}

// ProcessingConfig configures the sample document-rendering processor
// wired to gofpdf/gg/minio for the "render-document" job type.
type ProcessingConfig struct {
	TempDirectory string        `yaml:"temp_directory" json:"temp_directory"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`

	// ObjectStoreURL selects the sink: when empty, the processor falls
	// back to writing rendered artifacts under OutputDirectory instead
	// of uploading them to an S3-compatible store.
	ObjectStoreURL    string `yaml:"object_store_url" json:"object_store_url"`
	ObjectStoreKey    string `yaml:"object_store_key" json:"-"`
	ObjectStoreSecret string `yaml:"object_store_secret" json:"-"`
	UseSSL            bool   `yaml:"use_ssl" json:"use_ssl"`
	Bucket            string `yaml:"bucket" json:"bucket"`

	OutputDirectory string `yaml:"output_directory" json:"output_directory"`
}

// LoggerConfig represents logger configuration
type LoggerConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json, text
	Output     string `yaml:"output" json:"output"` // stdout, stderr, file
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}
