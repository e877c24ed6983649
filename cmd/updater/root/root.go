package root

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/GriffinCanCode/AgentOS/updater/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	store       string
	storePath   string
	hotRoot     string
	persistRoot string
	tempRoot    string
	logLevel    string
	metricsFile string
	output      string
}

func (g globalFlags) apply(cfg *config.Config) {
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Store.Backend, g.store)
	override(&cfg.Store.Path, g.storePath)
	override(&cfg.Paths.HotRoot, g.hotRoot)
	override(&cfg.Paths.PersistRoot, g.persistRoot)
	override(&cfg.Paths.TempRoot, g.tempRoot)
	override(&cfg.Logging.Level, g.logLevel)
}

type cli struct {
	flags globalFlags
	app   *app
}

// newRootCmd creates the root command for updater. c receives the app built
// before the subcommand runs.
func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "updater",
		Short: "Download, activate and roll back over-the-air web bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(c.flags.output); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.flags.apply(cfg)

			c.app, err = newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			c.app.format = c.flags.output
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&c.flags.store, "store", "", "Key-value backend: file, redis or memory")
	pf.StringVar(&c.flags.storePath, "store-path", "", "State file for the file backend")
	pf.StringVar(&c.flags.hotRoot, "hot-root", "", "Hot bundle tree")
	pf.StringVar(&c.flags.persistRoot, "persist-root", "", "Persistent bundle tree")
	pf.StringVar(&c.flags.tempRoot, "temp-root", "", "Scratch directory for downloads")
	pf.StringVar(&c.flags.logLevel, "log-level", "", "Log level")
	pf.StringVarP(&c.flags.output, "output", "o", FormatJSON, "Output format: json, yaml or toml")
	pf.StringVar(&c.flags.metricsFile, "metrics-file", "", "Write prometheus metrics to this file on exit")

	get := func() *app { return c.app }

	// Subcommands
	cmd.AddCommand(
		newCheckCmd(get),
		newDownloadCmd(get),
		newListCmd(get),
		newInfoCmd(get),
		newRenameCmd(get),
		newSetCmd(get),
		newCommitCmd(get),
		newRollbackCmd(get),
		newResetCmd(get),
		newDeleteCmd(get),
		newNextCmd(get),
		newCurrentCmd(get),
		newFallbackCmd(get),
		newDirCmd(get),
	)

	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	return execute(context.Background(), args, os.Stdout, os.Stderr)
}

// execute runs one invocation and releases the app whether or not the
// command failed.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{}
	cmd := newRootCmd(c)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if c.app != nil {
		err = errors.Join(err, c.app.close(c.flags.metricsFile))
	}
	return err
}
