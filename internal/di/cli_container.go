package di

import (
	"github.com/spf13/pflag"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phish-detect/internal/config"
	"github.com/mikey/phish-detect/internal/logging"
)

// ScanFlags contains all command line flags for the scan command
type ScanFlags struct {
	// Input and output
	InputFile  string
	OutputFile string

	// Pipeline flags
	BackendURL  string
	Blocklist   []string
	MaxInFlight int
	DedupKey    string

	// Logging and configuration
	Verbose    bool
	JSONLog    bool
	ConfigFile string

	fs *pflag.FlagSet
}

// ParseScanFlags parses the scan command line
func ParseScanFlags(args []string) (*ScanFlags, error) {
	flags := &ScanFlags{}
	fs := pflag.NewFlagSet("phish-scan", pflag.ContinueOnError)

	fs.StringVarP(&flags.InputFile, "file", "f", "", "Saved webmail page to scan")
	fs.StringVarP(&flags.OutputFile, "out", "o", "", "Write the annotated page to this path")

	fs.StringVar(&flags.BackendURL, "backend", "http://localhost:8000", "Base URL of the classification service")
	fs.StringSliceVar(&flags.Blocklist, "blocklist", nil, "Comma-separated sender addresses to treat as blocklisted")
	fs.IntVar(&flags.MaxInFlight, "max-in-flight", 0, "Maximum concurrent classifications (0 means unbounded)")
	fs.StringVar(&flags.DedupKey, "dedup-key", "message-id", "Message identity strategy (message-id, node, content)")

	fs.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVarP(&flags.ConfigFile, "config", "c", "", "Path to config file (flags given explicitly take precedence)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if flags.InputFile == "" && fs.NArg() > 0 {
		flags.InputFile = fs.Arg(0)
	}
	flags.fs = fs
	return flags, nil
}

// changed reports whether a flag was given explicitly
func (f *ScanFlags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// BuildScanContainer creates and configures a dependency injection container
// for the scan command
func BuildScanContainer(flags *ScanFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *ScanFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *ScanFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *ScanFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.New(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		applyScanFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}
	return container, nil
}

// applyScanFlags overlays the command line onto the configuration
func applyScanFlags(cfg *config.Config, flags *ScanFlags) {
	v := cfg.GetViper()

	// Scans always read a saved page and never serve metrics
	v.Set("host.type", "file")
	v.Set("host.file", flags.InputFile)
	v.Set("metrics.enabled", false)

	if flags.changed("backend") {
		v.Set("classifier.backend_url", flags.BackendURL)
	}
	if flags.changed("max-in-flight") {
		v.Set("pipeline.max_in_flight", flags.MaxInFlight)
	}
	if flags.changed("dedup-key") {
		v.Set("dedup.strategy", flags.DedupKey)
	}
	if len(flags.Blocklist) > 0 {
		seed := append(cfg.GetStringSlice("blocklist.seed"), flags.Blocklist...)
		v.Set("blocklist.seed", seed)
	}
}
