package commands

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/haivivi/starside/pkg/bridge"
	"github.com/haivivi/starside/pkg/cli"
	"github.com/haivivi/starside/pkg/interp"
	"github.com/haivivi/starside/pkg/settings"
	"github.com/haivivi/starside/pkg/value"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	outputFormat string
	outputFile   string
	importPaths  []string
	scripts      []string
	imports      []string

	// Global configuration (loaded before every command)
	globalConfig *cli.Config
	logger       *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "starside",
	Short: "Run Starlark scripts behind a host bridge",
	Long: `starside - embed Starlark scripts in a host application.

Scripts share one interpreter. Values crossing into the host are converted
to plain data; everything else travels as an opaque handle.

Configuration is read from the OS config directory:
  macOS:   ~/Library/Application Support/starside/config.yaml
  Linux:   ~/.config/starside/config.yaml
  Windows: %AppData%/starside/config.yaml

Examples:
  # Evaluate an expression
  starside eval '[x*x for x in range(5)]'

  # Call a function defined by a script
  starside call -s app.star greet '["world"]'

  # Run a script and print the events it sends
  starside run app.star --call main

  # Serve the interpreter to a remote UI
  starside serve -s app.star --addr :8765`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&configPath, "config", "", "config file (default is the OS config directory)")
	pf.StringVarP(&outputFormat, "output", "o", "repr", "output format: repr, json, yaml, raw")
	pf.StringVar(&outputFile, "output-file", "", "write results to a file instead of stdout")
	pf.StringSliceVarP(&importPaths, "path", "I", nil, "prepend a directory to the module search path")
	pf.StringSliceVarP(&scripts, "script", "s", nil, "execute a script file before the command")
	pf.StringSliceVarP(&imports, "import", "m", nil, "import a module before the command")
}

func initConfig(cmd *cobra.Command, args []string) error {
	var (
		cfg *cli.Config
		err error
	)
	if configPath != "" {
		cfg, err = cli.LoadConfigFrom(configPath)
	} else {
		cfg, err = cli.LoadConfig()
	}
	if err != nil {
		return err
	}
	globalConfig = cfg

	level, _ := cli.ParseLogLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// openSettings opens the store behind the settings script module.
func openSettings(cfg *cli.Config) (settings.Store, error) {
	if cfg.Settings.Backend != "badger" {
		return settings.NewMemory(nil), nil
	}
	dir := cfg.SettingsDir()
	cli.PrintVerbose(verbose, "settings: badger at %s", dir)
	return settings.NewBadger(settings.BadgerOptions{Dir: dir, Logger: logger})
}

// openInterpreter creates the interpreter for one command run. The caller
// shuts it down.
func openInterpreter() (*interp.Interpreter, error) {
	cfg := globalConfig
	store, err := openSettings(cfg)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}

	paths := append([]string(nil), cfg.ImportPaths...)
	if p, err := cli.NewPaths(); err == nil {
		paths = append(paths, p.ScriptsDir())
	}

	opts := []interp.Option{
		interp.WithImportPaths(paths...),
		interp.WithLogger(logger),
		interp.WithSettings(store),
		interp.WithPrint(func(_, msg string) { fmt.Fprintln(os.Stdout, msg) }),
	}
	if cfg.MaxDepth > 0 {
		opts = append(opts, interp.WithMaxDepth(cfg.MaxDepth))
	}
	return interp.New(opts...), nil
}

func apiVersion() (bridge.Version, error) {
	if globalConfig.APIVersion == "" {
		return bridge.Latest, nil
	}
	return bridge.ParseVersion(globalConfig.APIVersion)
}

// session is an interpreter plus one bridge, prepared with the --script
// and --import flags.
type session struct {
	in *interp.Interpreter
	b  *bridge.Bridge
}

func openSession() (*session, error) {
	v, err := apiVersion()
	if err != nil {
		return nil, err
	}
	in, err := openInterpreter()
	if err != nil {
		return nil, err
	}
	b, err := bridge.New(v, bridge.WithInterpreter(in), bridge.WithLogger(logger))
	if err != nil {
		in.Shutdown()
		return nil, err
	}
	// Commands return errors directly.
	b.OnError(func(msg string) { logger.Debug("starside error", "error", msg) })

	s := &session{in: in, b: b}
	if err := s.prepare(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) prepare() error {
	for _, p := range slices.Backward(importPaths) {
		s.b.AddImportPath(p)
	}
	for _, m := range imports {
		if _, err := s.b.ImportModuleSync(m); err != nil {
			return err
		}
	}
	for _, f := range scripts {
		cli.PrintVerbose(verbose, "exec %s", f)
		if err := s.in.ExecFile(f); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the bridge and shuts the interpreter down, running the
// script's atexit callback.
func (s *session) Close() {
	s.b.Close()
	s.in.Shutdown()
}

func output(v value.Value) error {
	f, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.Output(v, cli.OutputOptions{Format: f, File: outputFile})
}
