package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kbukum/httpdispatch/config"
	"github.com/kbukum/httpdispatch/dispatcher"
	"github.com/kbukum/httpdispatch/transport"
	"github.com/kbukum/httpdispatch/version"
)

const serviceName = "httpdispatch"

var outputFormats = []string{"text", "json", "yaml"}

type rootOptions struct {
	configFile string
	envPrefix  string
	baseURL    string
	timeout    time.Duration
	http2      string
	insecure   bool
	retries    int
	verbose    bool
	noColor    bool
	output     string
}

// NewRootCommand builds the httpdispatch command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   serviceName,
		Short: "Dispatch typed HTTP requests from the command line",
		Long: `httpdispatch sends one HTTP request through the dispatcher and reports
the classified outcome: a value, or a transport, parse, invalid response
or server error.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(outputFormats, opts.output) {
				return usageError(fmt.Errorf("output must be one of %v (got: %s)", outputFormats, opts.output))
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Config file (default: ./config.yml and the usual search paths)")
	pf.StringVar(&opts.envPrefix, "env-prefix", "HTTPDISPATCH", "Prefix of environment overrides")
	pf.StringVar(&opts.baseURL, "base-url", "", "Base URL relative request URLs are resolved against")
	pf.DurationVar(&opts.timeout, "timeout", 0, "Timeout of one exchange (e.g. 5s)")
	pf.StringVar(&opts.http2, "http2", "", "HTTP/2 mode: auto, force or h2c")
	pf.BoolVarP(&opts.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	pf.IntVar(&opts.retries, "retries", 0, "Attempts for retryable failures, 0 disables retry")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log exchanges to stderr")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	pf.StringVarP(&opts.output, "output", "o", "text", "Output format: text, json or yaml")

	root.AddCommand(
		newDoCommand(opts),
		newBenchCommand(opts),
		newVersionCommand(opts),
	)
	return root
}

// Execute runs the command with the process arguments and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewRootCommand(), os.Args[1:], os.Stderr)
}

func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if !ee.silent {
			fmt.Fprintln(stderr, "error:", ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(stderr, "error:", err)
	return ExitUsageError
}

// loadConfig loads the dispatcher configuration and applies flags the user
// set explicitly on top of it.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*dispatcher.Config, error) {
	loaderOpts := []config.LoaderOption{
		config.WithEnvPrefix(o.envPrefix),
		config.WithDefault("logging.output", "stderr"),
		config.WithDefault("logging.level", "warn"),
	}
	if o.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(o.configFile))
	}

	cfg, err := dispatcher.LoadConfig(serviceName, loaderOpts...)
	if err != nil {
		return nil, err
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if changed["base-url"] {
		cfg.Transport.BaseURL = o.baseURL
	}
	if changed["timeout"] {
		cfg.Transport.Timeout = o.timeout
	}
	if changed["http2"] {
		cfg.Transport.HTTP2 = o.http2
	}
	if o.insecure {
		if cfg.Transport.TLS == nil {
			cfg.Transport.TLS = &transport.TLSConfig{}
		}
		cfg.Transport.TLS.SkipVerify = true
	}
	if o.retries > 0 {
		cfg.Transport.Retry = &transport.RetryConfig{MaxAttempts: o.retries}
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// start loads the configuration and starts a dispatcher component.
func (o *rootOptions) start(cmd *cobra.Command) (*dispatcher.Component, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, configError(err)
	}
	comp := dispatcher.NewComponent(*cfg)
	if err := comp.Start(cmd.Context()); err != nil {
		return nil, configError(err)
	}
	return comp, nil
}

func (o *rootOptions) printer(cmd *cobra.Command) printer {
	return printer{w: cmd.OutOrStdout(), format: o.output, noColor: o.noColor}
}
