package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/playmetrics-tools/pmctl/pkg/pmctl/auth"
	"github.com/playmetrics-tools/pmctl/pkg/pmctl/config"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

type runtimeState struct {
	configPath      string
	statePath       string
	storageOverride string
	nonInteractive  bool
	verbose         bool
	writer          io.Writer
	settings        config.Settings
	log             *zap.SugaredLogger
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:   "pmctl",
		Short: "Export PlayMetrics data to CSV",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.statePath == "" {
				rt.statePath = os.Getenv("PMCTL_STATE")
			}
			if rt.statePath == "" {
				rt.statePath = config.DefaultStatePath()
			}
			if rt.storageOverride == "" {
				rt.storageOverride = os.Getenv("PMCTL_STORAGE")
			}
			if !rt.nonInteractive {
				rt.nonInteractive = strings.EqualFold(os.Getenv("PMCTL_NON_INTERACTIVE"), "true")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("PMCTL_VERBOSE"), "true")
			}

			settings, err := config.LoadSettings(rt.configPath)
			if err != nil {
				return err
			}
			rt.settings = settings
			rt.log = newLogger(rt.verbose)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVar(&rt.statePath, "state", "", "Path to the session state file")
	root.PersistentFlags().StringVar(&rt.storageOverride, "storage", "", "Session storage backend: file or keychain")
	root.PersistentFlags().BoolVar(&rt.nonInteractive, "non-interactive", false, "Fail instead of prompting for MFA codes")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable debug output")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewExportCommand(),
		NewAuthCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func newLogger(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return log.Sugar()
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) storageMode() auth.StorageMode {
	mode := rt.storageOverride
	if mode == "" {
		mode = rt.settings.Storage
	}
	if strings.EqualFold(mode, string(auth.StorageKeychain)) {
		return auth.StorageKeychain
	}
	return auth.StorageFile
}

func (rt *runtimeState) store() *auth.Store {
	return &auth.Store{Path: rt.statePath, Mode: rt.storageMode()}
}

func (rt *runtimeState) prompter() auth.CodePrompter {
	if rt.nonInteractive {
		return auth.NonInteractivePrompter{}
	}
	return &auth.TerminalPrompter{In: os.Stdin, Out: rt.Writer()}
}
