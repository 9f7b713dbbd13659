package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bimmerbailey/cwl4/internal/config"
	"github.com/bimmerbailey/cwl4/internal/convert"
	"github.com/bimmerbailey/cwl4/internal/filter"
	"github.com/bimmerbailey/cwl4/internal/logger"
	"github.com/bimmerbailey/cwl4/internal/output"
	"github.com/bimmerbailey/cwl4/internal/tail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const progName = "cwl4"

var rootCmd = &cobra.Command{
	Use:   "cwl4 [flags] [logfile...]",
	Short: "Convert cw2dmk level 5-7 logs to level 4",
	Long: `cwl4 strips the extra tokens cw2dmk writes at log levels 5 to 7 so that
the result matches what a level 4 run would have logged.

With no file arguments it filters standard input to standard output.
Each named file X.ext is filtered into a new file X-l4.ext; an existing
output file is never overwritten.

Examples:
  cwl4 < capture.log > capture-l4.log
  cwl4 disk1.log disk2.log
  cwl4 --keep-going --stats --format table logs/*.log
  cwl4 --encoding cp437 DISK.LOG
  cwl4 --follow capture.log`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Execute is called by main.main(). It runs the root command and reports
// any failure on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		reporter := output.NewReporter(rootCmd.ErrOrStderr(), progName,
			output.ParseColorMode(viper.GetString("color")))
		reporter.Error(err)
	}
	return err
}

func init() {
	flags := rootCmd.Flags()
	flags.String("suffix", config.DefaultSuffix, "suffix inserted before the extension of output file names")
	flags.BoolP("keep-going", "k", false, "continue with the remaining files after a failure")
	flags.StringP("encoding", "e", "utf-8", "character set of the logs (utf-8, cp437, cp850, latin1, ...)")
	flags.BoolP("follow", "F", false, "keep filtering data appended to a single file until interrupted")
	flags.Bool("follow-rotate", false, "with --follow, continue when the file is renamed or removed")
	flags.Bool("stats", false, "print per-file statistics to stderr")
	flags.StringP("format", "f", "text", "statistics format (text, json, table)")
	flags.String("color", "auto", "color diagnostics (auto, always, never)")
	flags.BoolP("verbose", "v", false, "enable verbose output")

	_ = viper.BindPFlag("suffix", flags.Lookup("suffix"))
	_ = viper.BindPFlag("keep_going", flags.Lookup("keep-going"))
	_ = viper.BindPFlag("encoding", flags.Lookup("encoding"))
	_ = viper.BindPFlag("follow", flags.Lookup("follow"))
	_ = viper.BindPFlag("follow_rotate", flags.Lookup("follow-rotate"))
	_ = viper.BindPFlag("stats", flags.Lookup("stats"))
	_ = viper.BindPFlag("format", flags.Lookup("format"))
	_ = viper.BindPFlag("color", flags.Lookup("color"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))

	config.SetDefaults(viper.GetViper())
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	enc, err := config.ResolveEncoding(cfg.Encoding)
	if err != nil {
		return err
	}

	log := logger.New(cmd.ErrOrStderr(), cfg.Verbose)
	reporter := output.NewReporter(cmd.ErrOrStderr(), progName, output.ParseColorMode(cfg.Color))
	lf := filter.New(filter.WithEncoding(enc))

	if cfg.Follow {
		return runFollow(cmd, cfg, lf, log, reporter, args)
	}
	if cfg.FollowRotate {
		return fmt.Errorf("--follow-rotate requires --follow")
	}

	conv := convert.New(lf, cfg.Suffix, log)

	var results []convert.Result
	var runErr error
	if len(args) == 0 {
		res, err := conv.ConvertStream("<stdin>", cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		results = []convert.Result{res}
	} else {
		files, err := config.ExpandGlobs(args)
		if err != nil {
			return fmt.Errorf("invalid file pattern: %w", err)
		}

		results, runErr = conv.ConvertFiles(files, cfg.KeepGoing)

		var batch *convert.BatchError
		if errors.As(runErr, &batch) {
			for _, e := range batch.Errs {
				reporter.Error(e)
			}
		}
	}

	if cfg.Stats {
		w := output.New(cmd.ErrOrStderr(), output.ParseFormat(cfg.Format))
		if err := w.WriteResults(results); err != nil {
			return err
		}
	}

	return runErr
}

func runFollow(cmd *cobra.Command, cfg config.Config, lf *filter.LineFilter, log *slog.Logger, reporter *output.Reporter, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("--follow requires exactly one file")
	}
	filePath := args[0]

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	follower := tail.New(tail.Options{
		FilePath:     filePath,
		FollowRotate: cfg.FollowRotate,
		Filter:       lf,
		Output:       cmd.OutOrStdout(),
		Logger:       log,
	})

	err := follower.Run(ctx)
	if errors.Is(err, tail.ErrRotated) {
		reporter.Warn("%s was rotated; stopping (use --follow-rotate to keep following)", filePath)
		err = nil
	}

	if cfg.Stats {
		w := output.New(cmd.ErrOrStderr(), output.ParseFormat(cfg.Format))
		if werr := w.WriteResults([]convert.Result{{Input: filePath, Stats: follower.Stats()}}); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
