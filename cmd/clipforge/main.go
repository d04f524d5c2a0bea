package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"clipforge/internal/command"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/perception"
	"clipforge/internal/runner"
	"clipforge/internal/session"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Edit flags
	retries    int
	timeout    time.Duration
	model      string
	provider   string
	scratchDir string

	// Probe flags
	probeConcurrency int

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clipforge",
	Short: "clipforge - natural-language media editing on top of ffmpeg",
	Long: `clipforge turns plain-English instructions into validated ffmpeg/ffprobe
commands. Each instruction is generated, executed, and checked; failed
attempts feed their output back into the next generation until the retry
budget is spent.

Every successful edit produces a new file and a history entry, so the
original media is never touched.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := logging.Initialize("."); err != nil {
			logger.Warn("debug logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// editCmd runs one instruction against one media file
var editCmd = &cobra.Command{
	Use:   "edit [file] [instruction...]",
	Short: "Apply a natural-language edit to a media file",
	Long: `Opens the file, generates an ffmpeg/ffprobe command for the instruction,
runs it, and prints the produced artifact.

Example:
  clipforge edit talk.mp4 extract the audio as mp3
  clipforge edit talk.mp4 "trim to the first 30 seconds"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEdit,
}

// probeCmd inspects media files with ffprobe
var probeCmd = &cobra.Command{
	Use:   "probe [file...]",
	Short: "Print container and stream information for media files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProbe,
}

// kindsCmd prints the extension allow-list
var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the supported media extensions",
	Run: func(cmd *cobra.Command, args []string) {
		for _, ext := range media.AllowedExtensions() {
			kind, _ := media.KindForFilename("x." + ext)
			fmt.Printf("  .%-5s %s\n", ext, kind)
		}
	},
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pcfg := perception.Config{
		Provider: perception.Provider(cfg.LLM.Provider),
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.GetLLMTimeout(),
	}
	if pcfg.APIKey == "" {
		detected, err := perception.DetectProvider()
		if err != nil {
			return err
		}
		if model != "" {
			detected.Model = model
		}
		detected.Timeout = pcfg.Timeout
		pcfg = detected
	}

	client, err := perception.NewClient(ctx, pcfg)
	if err != nil {
		return err
	}

	sink := &session.WriterSink{W: cmd.OutOrStdout()}
	sess, err := session.New(cfg, client, runner.NewDirectRunnerWithTimeout(cfg.GetExecutionTimeout()), sink)
	if err != nil {
		return err
	}

	if _, err := sess.Open(args[0]); err != nil {
		return err
	}

	instruction := strings.Join(args[1:], " ")
	logger.Info("submitting edit",
		zap.String("file", args[0]),
		zap.String("instruction", instruction))

	rec, err := sess.Submit(ctx, instruction)
	if err != nil {
		return err
	}
	if !rec.IsOrigin() {
		fmt.Fprintln(cmd.OutOrStdout(), rec.Artifact.Location)
	}
	return nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := media.NewStore(cfg.Execution.ScratchDir)
	if err != nil {
		return err
	}
	run := runner.NewDirectRunnerWithTimeout(cfg.GetExecutionTimeout())

	// Probe files concurrently but report in input order.
	outputs := make([]string, len(args))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(probeConcurrency)
	for i, path := range args {
		eg.Go(func() error {
			art, err := store.Import(path)
			if err != nil {
				return err
			}
			desc := command.Descriptor{
				Program:   command.ProgramFFprobe,
				Args:      []string{"-hide_banner", "-show_format", "-show_streams"},
				OutputExt: command.OutputNone,
			}
			argv := command.Assemble(desc, store.ResolvePath(art), "")
			res, err := run.Run(egCtx, runner.Command{Argv: argv})
			if err != nil {
				return err
			}
			if res.ExitCode != 0 {
				return fmt.Errorf("ffprobe failed for %s: %s", path, strings.TrimSpace(res.Stderr))
			}
			outputs[i] = res.Stdout
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, out := range outputs {
		fmt.Fprintf(cmd.OutOrStdout(), "=== %s ===\n%s\n", args[i], out)
	}
	return nil
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if retries >= 0 {
		cfg.Execution.Retries = retries
	}
	if timeout > 0 {
		cfg.Execution.Timeout = timeout.String()
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	if provider != "" {
		cfg.LLM.Provider = provider
	}
	if scratchDir != "" {
		cfg.Execution.ScratchDir = scratchDir
	}
	return cfg, nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to config file")

	editCmd.Flags().IntVar(&retries, "retries", -1, "retry budget after the first failed attempt")
	editCmd.Flags().DurationVar(&timeout, "timeout", 0, "per-command execution timeout")
	editCmd.Flags().StringVar(&model, "model", "", "model name override")
	editCmd.Flags().StringVar(&provider, "provider", "", "LLM provider (gemini, openai)")
	editCmd.Flags().StringVar(&scratchDir, "scratch", "", "directory for produced files")

	probeCmd.Flags().IntVar(&probeConcurrency, "concurrency", 4, "maximum concurrent probes")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(kindsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
