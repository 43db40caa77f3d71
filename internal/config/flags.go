package config

import (
	"flag"

	"github.com/Faultbox/patchtables/pkg/farfile"
)

// Flags holds the command-line overrides shared by patchtool commands.
type Flags struct {
	config      *string
	debug       *bool
	level       *int
	workers     *int
	compression *string
}

// BindFlags registers the shared flags on fs. Call it before fs.Parse.
func BindFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:      fs.String("config", "", "Path to config file"),
		debug:       fs.Bool("debug", false, "Enable debug logging"),
		level:       fs.Int("level", 0, "Tessellation segments per patch edge"),
		workers:     fs.Int("workers", -1, "Concurrent patch evaluations (0 = all CPUs)"),
		compression: fs.String("compression", "", "Output compression: none or zstd"),
	}
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// applyFlags applies CLI flag overrides to the config.
func (f *Flags) applyFlags(cfg *Config) error {
	if f == nil {
		return nil
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.level > 0 {
		cfg.Tessellation.Level = *f.level
	}
	if *f.workers >= 0 {
		cfg.Tessellation.Workers = *f.workers
	}
	if *f.compression != "" {
		c, err := farfile.ParseCompression(*f.compression)
		if err != nil {
			return err
		}
		cfg.Output.Compression = c
	}
	return nil
}
