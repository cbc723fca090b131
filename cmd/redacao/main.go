package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/config"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/logging"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/services"
)

var (
	// Global flags
	configPath string
	corpusDir  string
	verbose    bool
	timeout    time.Duration

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "redacao",
	Short: "Retrieval-augmented ENEM essay grading",
	Long: `redacao scores ENEM essays on the five official competencies.

Each competency is evaluated against reference passages retrieved from the
indexed corpus, then validated, clamped to the rubric and aggregated into a
report out of 1000 points.

Without --config it runs fully offline: mock backend, in-memory store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New(level, false)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration (default: offline mock setup)")
	rootCmd.PersistentFlags().StringVar(&corpusDir, "corpus", "", "Markdown corpus to index before running")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(structureCmd)
	rootCmd.AddCommand(repertoireCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(configPath)
}

// openApp builds the services for one command. The caller must Close it.
func openApp(ctx context.Context) (*services.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if corpusDir != "" {
		cfg.Retrieval.CorpusDir = corpusDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return services.NewApp(ctx, cfg, logger, nil)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, timeout)
}
