// Package config handles patchtool configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/patchtables/pkg/farfile"
)

// Config holds all patchtool settings.
type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Tessellation TessellationConfig `yaml:"tessellation"`
	Output       OutputConfig       `yaml:"output"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// TessellationConfig holds limit surface export settings.
type TessellationConfig struct {
	Level     int  `yaml:"level"`   // segments per patch edge
	Workers   int  `yaml:"workers"` // 0 uses every CPU
	Normals   bool `yaml:"normals"`
	UVChannel int  `yaml:"uv_channel"` // face-varying channel holding the vertex file's uvs
}

// Output format names for converted tables.
const (
	FormatBinary = "ptbl"
	FormatYAML   = "yaml"
)

// OutputConfig holds settings for written patch tables.
type OutputConfig struct {
	Compression farfile.Compression `yaml:"compression"`
	Format      string              `yaml:"format"` // used when the output extension is ambiguous
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Tessellation: TessellationConfig{
			Level:   8,
			Workers: 0,
			Normals: true,
		},
		Output: OutputConfig{
			Compression: farfile.CompressionZstd,
			Format:      FormatBinary,
		},
	}
}

// Validate reports settings that no command can work with.
func (c *Config) Validate() error {
	if c.Tessellation.Level < 1 {
		return fmt.Errorf("%w: tessellation level %d", ErrInvalidConfig, c.Tessellation.Level)
	}
	if c.Tessellation.Workers < 0 {
		return fmt.Errorf("%w: negative worker count %d", ErrInvalidConfig, c.Tessellation.Workers)
	}
	if c.Tessellation.UVChannel < 0 {
		return fmt.Errorf("%w: negative uv channel %d", ErrInvalidConfig, c.Tessellation.UVChannel)
	}
	switch c.Output.Format {
	case FormatBinary, FormatYAML:
	default:
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, c.Output.Format)
	}
	return nil
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")
