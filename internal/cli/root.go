// internal/cli/root.go
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arc-language/pgformula"
	"github.com/arc-language/pgformula/pkg/core"
	"github.com/arc-language/pgformula/pkg/registry"
)

var (
	cfgFile string
	prefix  string
	envFile string
	debug   bool
	config  *core.Config

	// Unrecognized --flags stripped from the command line. They still
	// reach the platform facts, where the formula's declared options
	// decide whether they matter.
	extraFlags []string
)

// optionsAnnotation marks commands that take build option flags
const optionsAnnotation = "pgformula/options"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pgformula",
	Short: "PostgreSQL build formula",
	Long: `pgformula - PostgreSQL build formula

Plans and runs a from-source PostgreSQL build for a Homebrew prefix:
configure arguments, compiler environment, launchd service descriptor
and post-install guidance.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command. An interrupt cancels the running
// build.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var args []string
	args, extraFlags = prepareArgs(rootCmd, os.Args[1:])
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/pgformula/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", "", "Homebrew prefix (default /usr/local)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with build environment overrides")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add commands
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(plistCmd)
	rootCmd.AddCommand(caveatsCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		config = core.DefaultConfig()
	}

	// Override config with flags
	if prefix != "" {
		config.HomebrewPrefix = prefix
	}
	if envFile != "" {
		config.EnvFile = envFile
	}
	if debug {
		config.Debug = true
	}
}

func newManager(opts *pgformula.Options) (*pgformula.Manager, error) {
	m, err := pgformula.NewManager(config, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing: %w", err)
	}
	return m, nil
}

// formulaArg defaults to postgresql when no formula is named
func formulaArg(args []string) string {
	if len(args) == 0 {
		return "postgresql"
	}
	return args[0]
}

// builtinOptions are the options declared by the formulae compiled into
// the binary, first declaration wins
var builtinOptions = func() []registry.Option {
	all, err := registry.New("").All()
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []registry.Option
	for _, f := range all {
		for _, o := range f.Options {
			if !seen[o.Flag] {
				seen[o.Flag] = true
				out = append(out, o)
			}
		}
	}
	return out
}()

// addOptionFlags registers the built-in formula options on cmd and marks
// it so prepareArgs strips flags it does not recognize
func addOptionFlags(cmd *cobra.Command) {
	for _, o := range builtinOptions {
		cmd.Flags().Bool(o.Flag, false, o.Description)
	}
	if cmd.Annotations == nil {
		cmd.Annotations = make(map[string]string)
	}
	cmd.Annotations[optionsAnnotation] = "true"
}

// optionFlags returns the options set on cmd followed by the stripped
// unknown flags
func optionFlags(cmd *cobra.Command) []string {
	var flags []string
	for _, o := range builtinOptions {
		if on, err := cmd.Flags().GetBool(o.Flag); err == nil && on {
			flags = append(flags, o.Flag)
		}
	}
	return append(flags, extraFlags...)
}

// prepareArgs removes flags the target command does not define, so an
// unknown switch never swallows the argument after it. Bare unknown
// --flags are returned in extra. Everything after "--" is kept as is.
func prepareArgs(root *cobra.Command, args []string) (kept, extra []string) {
	cmd, _, err := root.Find(args)
	if err != nil || cmd.Annotations[optionsAnnotation] == "" {
		return args, nil
	}
	cmd.InitDefaultHelpFlag()

	known := func(name string) bool {
		return cmd.Flags().Lookup(name) != nil || cmd.InheritedFlags().Lookup(name) != nil
	}
	knownShort := func(c string) bool {
		return cmd.Flags().ShorthandLookup(c) != nil || cmd.InheritedFlags().ShorthandLookup(c) != nil
	}

	kept = make([]string, 0, len(args))
	for i, arg := range args {
		switch {
		case arg == "--":
			return append(kept, args[i:]...), extra
		case strings.HasPrefix(arg, "--"):
			name, _, hasValue := strings.Cut(arg[2:], "=")
			if known(name) {
				kept = append(kept, arg)
			} else if !hasValue && name != "" {
				extra = append(extra, name)
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			if knownShort(arg[1:2]) {
				kept = append(kept, arg)
			}
		default:
			kept = append(kept, arg)
		}
	}
	return kept, extra
}

func printWarnings(warnings []string) {
	yellow := color.New(color.FgYellow, color.Bold)
	for _, w := range warnings {
		yellow.Fprint(os.Stderr, "Warning: ")
		fmt.Fprintln(os.Stderr, w)
	}
}
