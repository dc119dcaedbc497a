// FinSum: stock news summarization and risk dashboard
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/finsum/api"
	"github.com/seenimoa/finsum/internal/app"
	"github.com/seenimoa/finsum/internal/config"
	"github.com/seenimoa/finsum/internal/logger"
	"github.com/seenimoa/finsum/pkg/models"
	"github.com/seenimoa/finsum/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set in PersistentPreRunE.
var (
	cfg *config.Config
	log *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "finsum",
	Short: "FinSum — stock news, sentiment and risk at a glance",
	Long: `FinSum tracks a watch list of stocks: it fetches quotes and recent
headlines, scores headline sentiment, rates risk, and summarizes or answers
questions about articles with a hosted language model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = cfg.Logging.Level
			if cmd.Name() != "serve" {
				level = "warn" // keep one-shot command output readable
			}
		}
		log, err = logger.New(level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("FinSum %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the refresh scheduler and the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := api.NewServer(a, version)
		if err := a.Refresher.Start(ctx); err != nil {
			return err
		}
		defer a.Refresher.Stop()

		fmt.Printf("🌐 Starting FinSum API server on %s\n", cfg.API.Addr())
		return srv.ListenAndServe(ctx, cfg.API.Addr())
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [symbol...]",
	Short: "Analyze one or more stocks now",
	Long:  "Fetch quotes and news, score sentiment and rate risk for the given symbols (comma or space separated).",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, log)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		symbols := utils.SplitSymbols(strings.Join(args, " "))
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		res, err := a.Analyzer.Analyze(ctx, symbols)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), res.Ordered())
		}
		for _, s := range res.Ordered() {
			printAnalysis(cmd.OutOrStdout(), s)
		}
		for _, sym := range res.Symbols {
			if err, ok := res.Failed[sym]; ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %s: %v\n", sym, err)
			}
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "print results as JSON")
}

// --- Refresh Command ---

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh cycle over the configured watch list",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, log)
		if err != nil {
			return err
		}
		snap, err := a.Refresher.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🔄 Refreshed %d stocks in %v (cycle %s)\n\n",
			len(snap.Stocks), snap.Duration.Round(time.Millisecond), snap.CycleID)
		for _, s := range snap.Ordered() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-6s %10.2f %+7.2f%%  %-8s %s risk\n",
				s.Symbol, s.Price, s.ChangePct, s.SentimentTrend, s.RiskLevel)
		}
		return nil
	},
}

// --- Summarize Command ---

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize an article read from --file or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, log)
		if err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")
		title, _ := cmd.Flags().GetString("title")

		content, err := readArticle(cmd, file)
		if err != nil {
			return err
		}
		if title == "" {
			title = "User provided text"
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.Engine.Summarize(cmd.Context(), title, content))
		return nil
	},
}

func init() {
	summarizeCmd.Flags().String("title", "", "article title")
	summarizeCmd.Flags().String("file", "", "read the article from this file instead of stdin")
}

// --- Ask Command ---

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question about an article read from --file or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, log)
		if err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")
		question, _ := cmd.Flags().GetString("question")

		content, err := readArticle(cmd, file)
		if err != nil {
			return err
		}
		res := a.Engine.AnalyzeText(cmd.Context(), content, question)
		fmt.Fprintf(cmd.OutOrStdout(), "📝 Summary\n%s\n\n❓ %s\n💬 %s\n", res.Summary, res.Question, res.Answer)
		return nil
	},
}

func init() {
	askCmd.Flags().String("question", "", "question to answer from the article")
	askCmd.Flags().String("file", "", "read the article from this file instead of stdin")
	_ = askCmd.MarkFlagRequired("question")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and API key status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  FinSum — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Time (UTC):    %s\n", time.Now().UTC().Format(time.RFC3339))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Model:     %s\n", cfg.LLM.Model)
		fmt.Printf("    Sentiment:     %s\n", sentimentBackend(cfg))
		fmt.Printf("    Refresh:       every %v, %d symbols\n", cfg.Refresh.RefreshInterval(), len(cfg.Refresh.Symbols))
		fmt.Printf("    Watch list:    %s\n", strings.Join(utils.NormalizeSymbols(cfg.Refresh.Symbols), ", "))
		fmt.Printf("    Live sources:  %v\n", !cfg.Sources.DisablePrimary)
		fmt.Printf("    API Server:    %s\n", cfg.API.Addr())
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		if err := cfg.Validate(); err != nil {
			fmt.Println()
			fmt.Printf("  ⚠️  Configuration problems:\n    %s\n", strings.ReplaceAll(err.Error(), "\n", "\n    "))
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Helpers ---

func sentimentBackend(c *config.Config) string {
	if c.Sentiment.UseFinBERT {
		return "FinBERT (" + c.Sentiment.FinBERTURL + ")"
	}
	return "lexicon"
}

func readArticle(cmd *cobra.Command, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read article: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read article from stdin: %w", err)
	}
	return string(data), nil
}

func printAnalysis(w io.Writer, s *models.StockAnalysis) {
	source := s.QuoteSource
	if s.SyntheticQuote {
		source += ", estimated"
	}
	fmt.Fprintf(w, "📈 %s  %.2f (%+.2f%%)  [%s]\n", s.Symbol, s.Price, s.ChangePct, source)
	fmt.Fprintf(w, "   Sentiment: %s (%.3f)   Risk: %s (%d pts)\n", s.SentimentTrend, s.AvgSentiment, s.RiskLevel, s.RiskPoints)
	for _, n := range s.News {
		fmt.Fprintf(w, "   • [%s %+.2f] %s\n     %s\n", n.LocalSentiment, n.LocalCompound, n.Title, n.URL)
	}
	fmt.Fprintln(w)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
