package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/elliotnunn/seqview/internal/config"
	"github.com/elliotnunn/seqview/internal/imagecache"
	"github.com/elliotnunn/seqview/internal/remotetransport"
	"github.com/elliotnunn/seqview/internal/remoteworker"
	"github.com/elliotnunn/seqview/internal/seqsource"
	"github.com/elliotnunn/seqview/internal/termui"
	"github.com/elliotnunn/seqview/internal/uiadapter"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := newRootCmd(logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "seqview:", err)
		os.Exit(1)
	}
}

// runView is the command's main body once --config has been ruled out: it
// resolves input into a Source, matches it against the configured (plus any
// --pattern override) templates, wires up a remote worker when needed, and
// hands off to the terminal front end.
func runView(cmd *cobra.Command, input string, flags cliFlags, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	candidates := cfg
	if flags.pattern != "" {
		// Tried ahead of the saved patterns; it reaches the config file only
		// if it is the pattern that matches (see below).
		candidates.Patterns = append([]string{flags.pattern}, cfg.Patterns...)
	}

	source, fileName, err := resolveInput(input)
	if err != nil {
		return err
	}

	resolved, err := pickSequence(candidates, fileName, source)
	if err != nil {
		return err
	}

	// A pattern that matched but was not already known is worth remembering
	// for next time.
	config.AddPattern(&cfg, resolved.pattern)
	if err := config.Save(cfg); err != nil {
		logger.Warn("could not persist config", "err", err)
	}

	var group errgroup.Group

	var remoteFetcher imagecache.RemoteFetcher
	var worker *remoteworker.Worker
	liveness := remoteworker.NewLivenessRange()

	if source.IsRemote() {
		auth, err := resolveAuthMethods(flags.remoteIdentity)
		if err != nil {
			return errors.Wrap(err, "resolve ssh authentication")
		}
		transport, err := remotetransport.Dial(source.UserHost, remotetransport.Options{Auth: auth})
		if err != nil {
			return errors.Wrapf(err, "connect to %s", source.UserHost)
		}
		limiter := rate.NewLimiter(rate.Limit(50), 10)
		worker = remoteworker.New(transport, liveness, remoteworker.Options{Limiter: limiter, Logger: logger})
		group.Go(func() error {
			worker.Run()
			return nil
		})
		remoteFetcher = worker
	}

	cache := imagecache.New(source, resolved.tmpl, imagecache.Options{
		Radius:   flags.radius,
		Remote:   remoteFetcher,
		Liveness: liveness,
	})

	adapter := uiadapter.New(cache, source, resolved.tmpl)
	driver := termui.NewDriver(adapter, os.Stdin, cmd.OutOrStdout(), 80, 24, logger)
	adapter.MoveTo(resolved.index, driver.Uploader())
	runErr := driver.Run()

	// Closing the cache first stops new remote fetches from being enqueued;
	// closing the worker then drains whatever is left and tears down the
	// SSH session before the group is awaited.
	cache.Close()
	if worker != nil {
		worker.Close()
	}
	if err := group.Wait(); err != nil {
		logger.Warn("remote worker exited with error", "err", err)
	}

	return runErr
}
