package root

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/updater/internal/domain/bundle"
	"github.com/GriffinCanCode/AgentOS/updater/internal/domain/updater"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errRejected is returned when the manager reports a negative outcome
var errRejected = errors.New("rejected")

type appFunc func() *app

func newCheckCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "check [endpoint]",
		Short: "Ask the update server for the newest bundle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			endpoint := a.cfg.Remote.LatestURL
			if len(args) == 1 {
				endpoint = args[0]
			}
			if endpoint == "" {
				return errors.New("no update endpoint: pass one or set UPDATER_LATEST_URL")
			}

			latest := a.manager.CheckLatest(cmd.Context(), endpoint)
			if latest == nil || latest.URL == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no update available")
				return err
			}
			return get().print(cmd, latestOf(latest))
		},
	}
}

func newDownloadCmd(get appFunc) *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "download <url> <version>",
		Short: "Download and install a bundle without activating it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()

			last := -1
			unsubscribe := a.manager.OnProgress(func(ev updater.ProgressEvent) {
				if ev.Percent == last {
					return
				}
				last = ev.Percent
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %3d%%\n", ev.ID, ev.Percent)
			})
			defer unsubscribe()

			info, err := a.manager.Download(ctx, args[0], args[1])
			if err != nil {
				if !keep && info.ID != "" && !a.manager.Discard(ctx, info.ID) {
					a.logger.Warn("Failed download not cleaned up", zap.String("id", info.ID))
				}
				return fmt.Errorf("download %s: %w", args[0], err)
			}
			return get().print(cmd, viewOf(info))
		},
	}
	cmd.Flags().BoolVar(&keep, "keep-failed", false, "Keep the record of a failed download")
	return cmd
}

func newListCmd(get appFunc) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed bundles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			infos := a.manager.List(cmd.Context())
			if pattern == "" {
				return a.print(cmd, viewsOf(infos))
			}

			if !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("invalid version pattern %q", pattern)
			}
			matched := make([]bundle.Info, 0, len(infos))
			for _, info := range infos {
				if ok, _ := doublestar.Match(pattern, info.Version); ok {
					matched = append(matched, info)
				}
			}
			return a.print(cmd, viewsOf(matched))
		},
	}
	cmd.Flags().StringVar(&pattern, "version", "", "Only list bundles whose version matches this glob, e.g. \"1.2.*\"")
	return cmd
}

func newInfoCmd(get appFunc) *cobra.Command {
	var byVersion bool

	cmd := &cobra.Command{
		Use:   "info <id>",
		Short: "Show the record of a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := get().manager
			if byVersion {
				info, ok := m.BundleInfoByVersionName(cmd.Context(), args[0])
				if !ok {
					return fmt.Errorf("no bundle with version %q", args[0])
				}
				return get().print(cmd, viewOf(info))
			}
			return get().print(cmd, viewOf(m.BundleInfo(cmd.Context(), args[0])))
		},
	}
	cmd.Flags().BoolVar(&byVersion, "version-name", false, "Look the bundle up by version name")
	return cmd
}

func newRenameCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <version>",
		Short: "Change the version name of a bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().manager.SetVersionName(cmd.Context(), args[0], args[1])
		},
	}
}

func newSetCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id>",
		Short: "Point the current bundle at an installed bundle",
		Long:  "Point the current bundle at an installed bundle. Use \"builtin\" to return to the shipped assets.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !get().manager.Set(cmd.Context(), args[0]) {
				return fmt.Errorf("%w: bundle %s is not installed", errRejected, args[0])
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), args[0])
			return err
		},
	}
}

// target resolves an optional id argument, defaulting to the current bundle
func target(cmd *cobra.Command, a *app, args []string) bundle.Info {
	if len(args) == 1 {
		return a.manager.BundleInfo(cmd.Context(), args[0])
	}
	return a.manager.CurrentBundle(cmd.Context())
}

func newCommitCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "commit [id]",
		Short: "Mark a bundle as good and make it the fallback",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			return a.manager.Commit(cmd.Context(), target(cmd, a, args))
		},
	}
}

func newRollbackCmd(get appFunc) *cobra.Command {
	var revert bool

	cmd := &cobra.Command{
		Use:   "rollback [id]",
		Short: "Mark a bundle as failed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if err := a.manager.Rollback(ctx, target(cmd, a, args)); err != nil {
				return err
			}
			if !revert {
				return nil
			}

			fallback := a.manager.FallbackVersion(ctx)
			if !a.manager.SetBundle(ctx, fallback) {
				return fmt.Errorf("%w: fallback %s is not installed", errRejected, fallback.ID)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), fallback.ID)
			return err
		},
	}
	cmd.Flags().BoolVar(&revert, "revert", false, "Also point current at the fallback bundle")
	return cmd
}

func newResetCmd(get appFunc) *cobra.Command {
	var internal bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Return to the builtin bundle and clear the fallback and next pointers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().manager.Reset(cmd.Context(), internal)
		},
	}
	cmd.Flags().BoolVar(&internal, "internal", false, "Do not report a stats event")
	return cmd
}

func newDeleteCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a bundle from both trees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !get().manager.Delete(cmd.Context(), args[0]) {
				return fmt.Errorf("%w: bundle %s was not deleted", errRejected, args[0])
			}
			return nil
		},
	}
}

func newNextCmd(get appFunc) *cobra.Command {
	var clearNext bool

	cmd := &cobra.Command{
		Use:   "next [id]",
		Short: "Show or stage the bundle for the next load",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := get().manager
			ctx := cmd.Context()

			switch {
			case clearNext:
				if !m.SetNextVersion(ctx, "") {
					return fmt.Errorf("%w: next bundle not cleared", errRejected)
				}
				return nil
			case len(args) == 1:
				if !m.SetNextVersion(ctx, args[0]) {
					return fmt.Errorf("%w: bundle %s is not installed", errRejected, args[0])
				}
				return nil
			}

			next, ok := m.NextVersion(ctx)
			if !ok {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no next bundle")
				return err
			}
			return get().print(cmd, viewOf(next))
		},
	}
	cmd.Flags().BoolVar(&clearNext, "clear", false, "Clear the next bundle")
	return cmd
}

func newCurrentCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the current bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().print(cmd, viewOf(get().manager.CurrentBundle(cmd.Context())))
		},
	}
}

func newFallbackCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "fallback",
		Short: "Show the fallback bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().print(cmd, viewOf(get().manager.FallbackVersion(cmd.Context())))
		},
	}
}

func newDirCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "dir [id]",
		Short: "Print the directory to serve for a bundle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := get().manager
			bundleID := m.CurrentBundleID(cmd.Context())
			if len(args) == 1 {
				bundleID = args[0]
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), m.BundleDirectory(bundleID))
			return err
		},
	}
}
