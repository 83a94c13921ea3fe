package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/disputalabs/disputa/internal/benchmark"
	"github.com/disputalabs/disputa/internal/config"
	"github.com/disputalabs/disputa/internal/core"
	"github.com/disputalabs/disputa/internal/engine"
	"github.com/disputalabs/disputa/internal/eval"
	"github.com/disputalabs/disputa/internal/export"
	"github.com/disputalabs/disputa/internal/extract"
	"github.com/disputalabs/disputa/internal/gateway"
	"github.com/disputalabs/disputa/internal/session"
	"github.com/disputalabs/disputa/internal/strategy"
	"github.com/disputalabs/disputa/web/handlers"
)

var (
	dbPath    string
	cfgPath   string
	debugFlag bool
	mockFlag  bool
	appConfig *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "disputa",
	Short: "Multi-agent dialogue evaluation tool",
	Long: `disputa orchestrates two-agent dialogues over a single language model
and measures whether debate-style prompting improves benchmark accuracy.

Ask a one-off question, evaluate dialogue strategies against reasoning
benchmarks, or serve the live web interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgPath != "" {
			appConfig, err = config.LoadFrom(cfgPath)
		} else {
			appConfig, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := slog.LevelInfo
		if debugFlag {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Session database path (default: ~/.disputa/disputa.db)")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file path (default: ~/.disputa/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&mockFlag, "mock", false, "Use the offline mock gateway instead of the API")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(strategiesCmd)
	rootCmd.AddCommand(benchmarksCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
}

func getStore() (session.Store, error) {
	path := dbPath
	if path == "" && appConfig != nil {
		path = appConfig.Server.DBPath
	}
	if path == "" {
		path = session.DefaultDBPath()
	}

	store, err := session.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func getGateway() gateway.Gateway {
	if mockFlag {
		return gateway.NewMock()
	}
	return gateway.NewOpenAI(func(o *gateway.OpenAIOptions) {
		o.APIKey = appConfig.API.Key
		o.BaseURL = appConfig.API.BaseURL
		o.Model = appConfig.API.Model
	})
}

func pacing() time.Duration {
	return time.Duration(appConfig.Defaults.PacingSeconds * float64(time.Second))
}

// findSession resolves a session ID prefix against the store.
func findSession(store session.Store, prefix string) (string, error) {
	summaries, err := store.ListSessions(100, 0)
	if err != nil {
		return "", err
	}
	for _, s := range summaries {
		if strings.HasPrefix(s.ID, prefix) {
			return s.ID, nil
		}
	}
	return "", fmt.Errorf("session not found: %s", prefix)
}

// ============================================================================
// ASK COMMAND
// ============================================================================

var askStrategyFlag string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Run both dialogue protocols on a single question",
	Long: `Run the simulated and dual-agent dialogue protocols on a question and
print the turns live. The finished dialogue is saved as a session.

Examples:
  disputa ask "Is the halting problem decidable for finite-state machines?"
  disputa ask --strategy cooperative "What is the capital of Australia?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askStrategyFlag, "strategy", "s", "", "Dialogue strategy (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	strategyID := askStrategyFlag
	if strategyID == "" {
		strategyID = appConfig.Defaults.Strategy
	}
	base := strategy.Get(strategyID)
	if base == nil {
		return fmt.Errorf("unknown strategy %q (available: %s)", strategyID, strings.Join(strategy.List(), ", "))
	}
	strat := base.WithFormat(core.FormatCustom)

	store, err := getStore()
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	defer store.Close()

	now := time.Now()
	sess := &core.Session{
		ID:        uuid.NewString(),
		Question:  question,
		Strategy:  strategyID,
		Status:    core.StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateSession(sess); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	fmt.Printf("\nQuestion: %s\n", question)
	fmt.Printf("Strategy: %s | Session: %s\n\n", strategyID, sess.ID[:8])
	fmt.Println(strings.Repeat("─", 60))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\nInterrupted.")
		cancel()
	}()

	eng := engine.New(getGateway(), strat, core.FormatCustom, func(o *engine.Options) {
		o.Pacing = pacing()
		o.Callback = func(mode core.Mode, agent, content string) {
			fmt.Printf("\n[%s] %s\n", mode, agent)
			fmt.Println(strings.Repeat("─", 40))
			fmt.Println(content)
		}
	})

	runs := []struct {
		mode core.Mode
		fn   func(context.Context, string, string) (*engine.Result, error)
	}{
		{core.ModeSimulated, eng.RunSimulated},
		{core.ModeDual, eng.RunDual},
	}

	number := 0
	var runErr error
	for _, run := range runs {
		fmt.Printf("\n%s\n== %s protocol ==\n", strings.Repeat("═", 60), run.mode)

		result, err := run.fn(ctx, sess.ID, question)
		if result != nil {
			number = saveTranscript(store, sess.ID, run.mode, result.Transcript, number)
			printOutcome(result)
		}
		if err != nil {
			runErr = err
			break
		}
	}

	completed := time.Now()
	sess.CompletedAt = &completed
	if runErr != nil {
		sess.Status = core.StatusFailed
		sess.Error = runErr.Error()
	} else {
		sess.Status = core.StatusCompleted
	}
	if err := store.UpdateSession(sess); err != nil {
		slog.Error("Failed to finalize session", "session_id", sess.ID, "error", err)
	}

	if runErr != nil {
		if ctx.Err() != nil {
			fmt.Printf("\nDialogue interrupted. Use 'disputa sessions show %s' to view progress.\n", sess.ID[:8])
			return nil
		}
		return fmt.Errorf("dialogue failed: %w", runErr)
	}

	fmt.Printf("\nSaved session %s. Export with: disputa export %s --format markdown\n", sess.ID[:8], sess.ID[:8])
	return nil
}

// saveTranscript persists a finished protocol's spoken turns and notices,
// continuing the session-wide numbering.
func saveTranscript(store session.Store, sessionID string, mode core.Mode, transcript []core.Message, number int) int {
	for _, msg := range transcript {
		if msg.Agent == "" {
			continue
		}
		number++
		turn := &core.SessionTurn{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Mode:      mode,
			Agent:     msg.Agent,
			Number:    number,
			Content:   core.BodyOf(msg),
			CreatedAt: time.Now(),
		}
		if err := store.AddTurn(turn); err != nil {
			slog.Error("Failed to persist turn", "session_id", sessionID, "number", number, "error", err)
		}
	}
	return number
}

func printOutcome(result *engine.Result) {
	answer := extract.FromTranscript(result.Transcript, core.FormatCustom)
	if answer == "" {
		answer = "(none)"
	}

	fmt.Println()
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("Final agent: %s | Final answer: %s\n", result.FinalAgent, answer)
	if result.Converged {
		fmt.Println("Agents converged; dialogue stopped early.")
	}
	fmt.Printf("Elapsed: %.1fs | Tokens: %d\n", result.Elapsed, result.Usage.TotalTokens)
}

// ============================================================================
// EVAL COMMAND
// ============================================================================

var (
	evalBenchmarkFlag  string
	evalStrategiesFlag []string
	evalMaxFlag        int
	evalResultsFlag    string
	evalDataFlag       string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate dialogue strategies on a benchmark",
	Long: `Run both dialogue protocols over benchmark questions and write result,
conversation-log, and comparison artifacts to the results directory.

Examples:
  disputa eval --benchmark gpqa --max 20
  disputa eval --benchmark aime --strategy debate --strategy cooperative`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVarP(&evalBenchmarkFlag, "benchmark", "b", "", "Benchmark to evaluate (default from config)")
	evalCmd.Flags().StringArrayVarP(&evalStrategiesFlag, "strategy", "s", nil, "Strategy to evaluate (repeatable; default from config)")
	evalCmd.Flags().IntVarP(&evalMaxFlag, "max", "m", 10, "Maximum questions to evaluate (0 = all)")
	evalCmd.Flags().StringVar(&evalResultsFlag, "results-dir", "", "Artifact directory (default from config)")
	evalCmd.Flags().StringVar(&evalDataFlag, "data-dir", "", "Benchmark dataset directory (default from config)")
}

func runEval(cmd *cobra.Command, args []string) error {
	benchName := evalBenchmarkFlag
	if benchName == "" {
		benchName = appConfig.Defaults.Benchmark
	}
	dataDir := evalDataFlag
	if dataDir == "" {
		dataDir = appConfig.Results.DataDir
	}
	resultsDir := evalResultsFlag
	if resultsDir == "" {
		resultsDir = appConfig.Results.Dir
	}
	strategies := evalStrategiesFlag
	if len(strategies) == 0 {
		strategies = []string{appConfig.Defaults.Strategy}
	}

	bench, err := benchmark.Open(benchName, dataDir)
	if err != nil {
		return err
	}

	sink, err := eval.NewDirSink(resultsDir)
	if err != nil {
		return fmt.Errorf("failed to prepare results directory: %w", err)
	}

	manager := eval.NewManager(bench, getGateway(), sink, func(o *eval.Options) {
		o.Pacing = pacing()
	})

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("\nEvaluating %s with strategies [%s], up to %d questions\n",
		bench.Name(), strings.Join(strategies, ", "), evalMaxFlag)

	if len(strategies) == 1 {
		runID, output, err := manager.Run(ctx, strategies[0], evalMaxFlag)
		if err != nil {
			return err
		}
		printRunSummary(output)
		fmt.Printf("\nArtifacts written to %s (run %s)\n", sink.Dir(), runID)
		return nil
	}

	outputs, err := manager.RunMany(ctx, strategies, evalMaxFlag)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(outputs))
	for id := range outputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		printRunSummary(outputs[id])
	}
	fmt.Printf("\nArtifacts and strategy comparison written to %s\n", sink.Dir())
	return nil
}

func printRunSummary(output *eval.RunOutput) {
	s := output.Summary
	fmt.Printf("\nStrategy: %s\n", output.Strategy)
	fmt.Println(strings.Repeat("─", 60))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Questions\t%d\n", s.TotalQuestions)
	fmt.Fprintf(w, "Simulated accuracy\t%.1f%% (%d correct)\n", s.SimulatedAccuracy*100, s.SimulatedCorrect)
	fmt.Fprintf(w, "Dual accuracy\t%.1f%% (%d correct)\n", s.DualAccuracy*100, s.DualCorrect)
	fmt.Fprintf(w, "Tokens\t%d simulated / %d dual / %d total\n",
		s.TokenUsage.SimulatedTokens, s.TokenUsage.DualTokens, s.TokenUsage.TotalTokens)
	w.Flush()

	if es := output.EvolutionSummary; es != nil {
		fmt.Println("\nAgreement patterns:")
		printTally(es.AgreementCounts)
		fmt.Println("Correctness patterns:")
		printTally(es.CorrectnessCounts)
	}
}

func printTally(tally map[string]int) {
	names := make([]string, 0, len(tally))
	for name := range tally {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if tally[name] > 0 {
			fmt.Printf("  %-35s %d\n", name, tally[name])
		}
	}
}

// ============================================================================
// LIST COMMANDS
// ============================================================================

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available dialogue strategies",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("\nAvailable Strategies:")
		fmt.Println(strings.Repeat("─", 60))

		for _, s := range strategy.Defaults() {
			fmt.Printf("\n%s (%s)\n", s.Name, s.ID)
			fmt.Printf("  %s\n", s.Description)
			fmt.Printf("  turns: %d | temperature: %.1f\n", s.NumTurns, s.Temperature)
		}
	},
}

var benchmarksCmd = &cobra.Command{
	Use:   "benchmarks",
	Short: "List supported benchmarks",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("\nSupported Benchmarks:")
		fmt.Println(strings.Repeat("─", 60))
		for _, name := range benchmark.Names() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Printf("\nDataset snapshots are read from the data directory (%s).\n", appConfig.Results.DataDir)
	},
}

// ============================================================================
// SESSIONS COMMAND
// ============================================================================

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved dialogue sessions",
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStore()
		if err != nil {
			return err
		}
		defer store.Close()

		summaries, err := store.ListSessions(50, 0)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("No sessions found. Start one with: disputa ask \"Your question\"")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tQUESTION\tSTRATEGY\tSTATUS\tTURNS\tCREATED")
		for _, s := range summaries {
			question := s.Question
			if len(question) > 40 {
				question = question[:37] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				s.ID[:8], question, s.Strategy, s.Status, s.TurnCount,
				s.CreatedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a session's dialogue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := findSession(store, args[0])
		if err != nil {
			return err
		}

		sess, err := store.GetSession(id)
		if err != nil {
			return err
		}
		turns, err := store.GetTurns(id)
		if err != nil {
			return err
		}

		fmt.Printf("\nQuestion: %s\n", sess.Question)
		fmt.Printf("   ID: %s\n", sess.ID)
		fmt.Printf("   Strategy: %s\n", sess.Strategy)
		fmt.Printf("   Status: %s\n", sess.Status)
		fmt.Printf("   Created: %s\n", sess.CreatedAt.Format(time.RFC3339))
		if sess.Error != "" {
			fmt.Printf("   Error: %s\n", sess.Error)
		}

		currentMode := core.Mode("")
		for _, turn := range turns {
			if turn.Mode != currentMode {
				currentMode = turn.Mode
				fmt.Printf("\n%s\n== %s protocol ==\n", strings.Repeat("═", 60), currentMode)
			}
			fmt.Printf("\nTurn %d - %s\n", turn.Number, turn.Agent)
			fmt.Println(strings.Repeat("─", 40))
			fmt.Println(turn.Content)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := findSession(store, args[0])
		if err != nil {
			return err
		}
		if err := store.DeleteSession(id); err != nil {
			return err
		}
		fmt.Printf("Deleted session: %s\n", id)
		return nil
	},
}

// ============================================================================
// EXPORT COMMAND
// ============================================================================

var (
	exportFormatFlag string
	exportOutputFlag string
)

var exportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export a session to markdown, JSON, or PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := findSession(store, args[0])
		if err != nil {
			return err
		}

		sess, err := store.GetSession(id)
		if err != nil {
			return err
		}
		turns, err := store.GetTurns(id)
		if err != nil {
			return err
		}

		exporter, err := export.GetExporter(export.Format(exportFormatFlag))
		if err != nil {
			return err
		}

		path := exportOutputFlag
		if path == "" {
			path = export.GenerateFilename(sess, exporter.FileExtension())
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		if err := exporter.Export(sess, turns, f); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		abs, _ := filepath.Abs(path)
		fmt.Printf("Exported session %s to %s\n", id[:8], abs)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormatFlag, "format", "f", "markdown", "Export format (markdown, json, pdf)")
	exportCmd.Flags().StringVarP(&exportOutputFlag, "output", "o", "", "Output file path (default: generated name)")
}

// ============================================================================
// CONFIG COMMAND
// ============================================================================

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(config.GenerateExample()), 0644); err != nil {
			return err
		}
		fmt.Printf("Wrote example config to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *appConfig
		if shown.API.Key != "" {
			shown.API.Key = "********"
		}
		data, err := yaml.Marshal(&shown)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

// ============================================================================
// SERVE COMMAND
// ============================================================================

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStore()
		if err != nil {
			return fmt.Errorf("failed to initialize session store: %w", err)
		}
		defer store.Close()

		port := servePort
		if port == 0 {
			port = appConfig.Server.Port
		}

		h := handlers.New(store, getGateway(), func(o *handlers.Options) {
			o.Pacing = pacing()
		})

		addr := fmt.Sprintf(":%d", port)
		server := &http.Server{
			Addr:    addr,
			Handler: h.Routes(),
		}

		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh
			slog.Info("Shutting down...")
			server.Close()
		}()

		fmt.Printf("\nStarting disputa web server on http://localhost%s\n\n", addr)
		fmt.Println("Available endpoints:")
		fmt.Printf("  POST http://localhost%s/api/sessions             - Start a dialogue\n", addr)
		fmt.Printf("  GET  http://localhost%s/api/sessions             - List sessions\n", addr)
		fmt.Printf("  GET  http://localhost%s/api/sessions/:id/stream  - Stream turns (SSE)\n", addr)
		fmt.Println("\nPress Ctrl+C to stop the server")

		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Server port (default from config)")
}
