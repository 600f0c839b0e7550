package config

import (
	"fmt"
	"os"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d configuration validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors ValidationErrors

	if err := c.validateServer(); err != nil {
		if validationErrs, ok := err.(ValidationErrors); ok {
			errors = append(errors, validationErrs...)
		} else {
			errors = append(errors, ValidationError{Field: "server", Message: err.Error()})
		}
	}

	if err := c.validateRepository(); err != nil {
		if validationErrs, ok := err.(ValidationErrors); ok {
			errors = append(errors, validationErrs...)
		} else {
			errors = append(errors, ValidationError{Field: "repository", Message: err.Error()})
		}
	}

	if err := c.validateProcessing(); err != nil {
		if validationErrs, ok := err.(ValidationErrors); ok {
			errors = append(errors, validationErrs...)
		} else {
			errors = append(errors, ValidationError{Field: "processing", Message: err.Error()})
		}
	}

	if err := c.validateLogger(); err != nil {
		if validationErrs, ok := err.(ValidationErrors); ok {
			errors = append(errors, validationErrs...)
		} else {
			errors = append(errors, ValidationError{Field: "logger", Message: err.Error()})
		}
	}

	if err := c.validateWorker(); err != nil {
		if validationErrs, ok := err.(ValidationErrors); ok {
			errors = append(errors, validationErrs...)
		} else {
			errors = append(errors, ValidationError{Field: "worker", Message: err.Error()})
		}
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	var errors ValidationErrors

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if c.Server.ReadTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}

	if c.Server.WriteTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}

	if c.Server.IdleTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// validateRepository validates repository backend configuration
func (c *Config) validateRepository() error {
	var errors ValidationErrors

	if c.Repository.Backend != "memory" && c.Repository.Backend != "bolt" {
		errors = append(errors, ValidationError{
			Field:   "repository.backend",
			Message: "backend must be one of: memory, bolt",
		})
	}

	if c.Repository.Backend == "bolt" && c.Repository.Filename == "" {
		errors = append(errors, ValidationError{
			Field:   "repository.filename",
			Message: "filename is required for the bolt backend",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// validateProcessing validates the sample processor's configuration
func (c *Config) validateProcessing() error {
	var errors ValidationErrors

	if c.Processing.TempDirectory == "" {
		errors = append(errors, ValidationError{
			Field:   "processing.temp_directory",
			Message: "temp directory cannot be empty",
		})
	} else {
		if info, err := os.Stat(c.Processing.TempDirectory); err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(c.Processing.TempDirectory, 0755); err != nil {
					errors = append(errors, ValidationError{
						Field:   "processing.temp_directory",
						Message: fmt.Sprintf("cannot create temp directory: %v", err),
					})
				}
			} else {
				errors = append(errors, ValidationError{
					Field:   "processing.temp_directory",
					Message: fmt.Sprintf("cannot access temp directory: %v", err),
				})
			}
		} else if !info.IsDir() {
			errors = append(errors, ValidationError{
				Field:   "processing.temp_directory",
				Message: "temp directory path is not a directory",
			})
		}
	}

	if c.Processing.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.timeout",
			Message: "timeout must be positive",
		})
	}

	if c.Processing.ObjectStoreURL == "" {
		if c.Processing.OutputDirectory == "" {
			errors = append(errors, ValidationError{
				Field:   "processing.output_directory",
				Message: "output directory is required when no object store is configured",
			})
		}
	} else if c.Processing.Bucket == "" {
		errors = append(errors, ValidationError{
			Field:   "processing.bucket",
			Message: "bucket cannot be empty when an object store is configured",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// validateLogger validates logger configuration
func (c *Config) validateLogger() error {
	var errors ValidationErrors

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	if !validLevels[c.Logger.Level] {
		errors = append(errors, ValidationError{
			Field:   "logger.level",
			Message: "level must be one of: debug, info, warn, error, fatal",
		})
	}

	validOutputs := map[string]bool{
		"stdout": true,
		"stderr": true,
		"file":   true,
	}

	if !validOutputs[c.Logger.Output] {
		errors = append(errors, ValidationError{
			Field:   "logger.output",
			Message: "output must be one of: stdout, stderr, file",
		})
	}

	if c.Logger.Output == "file" && c.Logger.File == "" {
		errors = append(errors, ValidationError{
			Field:   "logger.file",
			Message: "file path is required when output is 'file'",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// validateWorker validates worker-pool configuration
func (c *Config) validateWorker() error {
	var errors ValidationErrors

	if c.Worker.DefaultPoolSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "worker.default_pool_size",
			Message: "default pool size must be positive",
		})
	}

	if c.Worker.ShutdownTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "worker.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	for jobType, size := range c.Worker.Pools {
		if size <= 0 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("worker.pools.%s", jobType),
				Message: "pool size must be positive",
			})
		}
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// SetDefaults sets default values for missing configuration
func (c *Config) SetDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}

	if c.Repository.Backend == "" {
		c.Repository.Backend = "memory"
	}

	if c.Processing.TempDirectory == "" {
		c.Processing.TempDirectory = "./temp"
	}
	if c.Processing.Timeout == 0 {
		c.Processing.Timeout = 5 * time.Minute
	}
	if c.Processing.ObjectStoreURL != "" && c.Processing.Bucket == "" {
		c.Processing.Bucket = "rendered-documents"
	}
	if c.Processing.ObjectStoreURL == "" && c.Processing.OutputDirectory == "" {
		c.Processing.OutputDirectory = "./output"
	}

	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Output == "" {
		c.Logger.Output = "stdout"
	}

	if c.Worker.DefaultPoolSize == 0 {
		c.Worker.DefaultPoolSize = 4
	}
	if c.Worker.ShutdownTimeout == 0 {
		c.Worker.ShutdownTimeout = 30 * time.Second
	}
	if c.Worker.Pools == nil {
		c.Worker.Pools = map[string]int{}
	}
}
