package cli

import (
	charmlog "github.com/charmbracelet/log"
	"github.com/cloo-solutions/supportbot/internal/config"
	"github.com/cloo-solutions/supportbot/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// envAnnotation names the SUPPORTBOT_* variable a flag overrides.
	envAnnotation = "supportbot_env"
	// configAnnotation marks commands that load the environment config.
	configAnnotation = "supportbot_config"
)

// AddConfigFlags registers flags that override environment configuration.
func AddConfigFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String("knowledge-url", "", "Knowledge document URL")
	fs.Bool("debug", false, "Enable debug logging")
	fs.String("log-format", "", "Log format: text, json or logfmt")
	fs.String("fallback-mode", "", "No-match fallback: marker, prefix or keywords")
	fs.Int("top-k", 0, "Number of knowledge sections sent to the model")

	bindEnv(fs, "knowledge-url", "KNOWLEDGE_URL")
	bindEnv(fs, "debug", "DEBUG")
	bindEnv(fs, "log-format", "LOG_FORMAT")
	bindEnv(fs, "fallback-mode", "FALLBACK_MODE")
	bindEnv(fs, "top-k", "TOP_K")
}

// bindEnv records which environment variable the flag overrides and appends
// it to the usage text.
func bindEnv(fs *pflag.FlagSet, name, key string) {
	f := fs.Lookup(name)
	if f == nil {
		return
	}
	env := "SUPPORTBOT_" + key
	_ = fs.SetAnnotation(name, envAnnotation, []string{env})
	f.Usage += " (overrides " + env + ")"
}

// usesConfig marks cmd as one that reads the environment config.
func usesConfig(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = make(map[string]string)
	}
	cmd.Annotations[configAnnotation] = "true"
	return cmd
}

// ApplyOverrides copies explicitly set flags onto cfg and re-validates it.
func ApplyOverrides(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("knowledge-url") {
		cfg.KnowledgeURL, _ = fs.GetString("knowledge-url")
	}
	if fs.Changed("debug") {
		cfg.Debug, _ = fs.GetBool("debug")
	}
	if fs.Changed("log-format") {
		cfg.LogFormat, _ = fs.GetString("log-format")
	}
	if fs.Changed("fallback-mode") {
		cfg.FallbackMode, _ = fs.GetString("fallback-mode")
	}
	if fs.Changed("top-k") {
		cfg.TopK, _ = fs.GetInt("top-k")
	}
	if fs.Changed("port") {
		cfg.Port, _ = fs.GetString("port")
	}
	return cfg.Validate()
}

// loadConfig loads environment config, applies flag overrides and builds the
// logger every command shares.
func loadConfig(cmd *cobra.Command) (*config.Config, *charmlog.Logger, error) {
	cfg, err := config.LoadEnv()
	if err != nil {
		return nil, nil, err
	}
	if err := ApplyOverrides(cmd.Flags(), cfg); err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.Config{
		Debug:  cfg.Debug,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}
