package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/elliotnunn/seqview/internal/config"
	"github.com/elliotnunn/seqview/internal/seqsource"
)

// cliFlags holds the command's named flags: pattern/config, plus radius and
// remote-identity. The one positional input is passed to runView separately.
type cliFlags struct {
	pattern        string
	showConfig     bool
	radius         uint64
	remoteIdentity string
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   "seqview [input]",
		Short: "A sequence-aware image viewer",
		Long: "seqview opens a file, matches it against configured filename patterns with '#' as\n" +
			"digit placeholders, then navigates the sequence by changing the numeric index and\n" +
			"checking for the constructed filename, locally or over SSH.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.showConfig {
				return runShowConfig(cmd)
			}
			if len(args) == 0 {
				return errors.New("input file is required (unless using --config)")
			}
			return runView(cmd, args[0], flags, logger)
		},
	}

	cmd.Flags().StringVar(&flags.pattern, "pattern", "", `optional pattern override, e.g. "image_#####.png"`)
	cmd.Flags().BoolVar(&flags.showConfig, "config", false, "show config file path and content, then exit")
	cmd.Flags().Uint64Var(&flags.radius, "radius", 10, "cache window radius, in strides")
	cmd.Flags().StringVar(&flags.remoteIdentity, "remote-identity", "", "path to an SSH private key (default: ~/.ssh/id_ed25519, then ~/.ssh/id_rsa, then $SSH_AUTH_SOCK)")

	return cmd
}

func runShowConfig(cmd *cobra.Command) error {
	path, err := config.Path()
	if err != nil {
		return errors.Wrap(err, "determine config path")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Config path:", path)
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	if len(cfg.Patterns) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Config file does not exist or has no patterns.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nConfigured patterns:")
	for i, p := range cfg.Patterns {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d) %s\n", i+1, p)
	}
	return nil
}

// resolveInput classifies input as Local or Remote and splits it into a
// source plus the bare filename pickSequence matches against.
func resolveInput(input string) (seqsource.Source, string, error) {
	if userHost, dir, ok := seqsource.ParseRemoteInput(input); ok {
		fileDir, fileName := splitDirAndFile(dir)
		return seqsource.Remote(userHost, fileDir), fileName, nil
	}

	info, err := os.Stat(input)
	if err != nil {
		return seqsource.Source{}, "", errors.Wrapf(err, "stat %s", input)
	}
	if info.IsDir() {
		return seqsource.Source{}, "", errors.Errorf("input must be an image file, not a directory: %s", input)
	}
	dir, fileName := splitDirAndFile(input)
	return seqsource.Local(dir), fileName, nil
}
