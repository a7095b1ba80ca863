// lmsready - LM Studio readiness CLI
// Makes sure a local LM Studio server is up and has the configured model.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jxmullins/lmsready/internal/config"
	"github.com/jxmullins/lmsready/internal/lmstudio"
	"github.com/jxmullins/lmsready/internal/provider"
	"github.com/jxmullins/lmsready/internal/tui"
	"github.com/jxmullins/lmsready/internal/version"
)

var (
	cfgFile   string
	verbose   bool
	plain     bool
	model     string
	homeDir   string
	ask       bool
	noStream  bool
	skipCheck bool
	system    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, styles().RenderError(err))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lmsready",
	Short: "Check that LM Studio is running and has your model",
	Long: `lmsready verifies that a local LM Studio server is reachable,
lists the models it serves, and downloads the configured model
with the lms CLI when it is missing.

Example:
  lmsready ensure
  lmsready ensure --model qwen/qwen3-4b --ask
  lmsready models
  lmsready chat "Summarize the Go memory model in two sentences"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging("")
		return nil
	},
}

var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Make sure the configured model is available, downloading it if needed",
	Args:  cobra.NoArgs,
	RunE:  runEnsure,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the LM Studio server",
	Args:  cobra.NoArgs,
	RunE:  runListModels,
}

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Send a prompt to the configured model",
	Long: `Run the readiness check, then send a single prompt to the
configured model through LM Studio's OpenAI-compatible API.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "disable colors and borders")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "model to use (default from config)")

	ensureCmd.Flags().StringVar(&homeDir, "home", "", "home directory used to find ~/.lmstudio/bin/lms")
	ensureCmd.Flags().BoolVar(&ask, "ask", false, "confirm before downloading a missing model")

	chatCmd.Flags().BoolVar(&noStream, "no-stream", false, "disable streaming output")
	chatCmd.Flags().BoolVar(&skipCheck, "skip-check", false, "skip the readiness check")
	chatCmd.Flags().StringVar(&system, "system", "", "system prompt")

	rootCmd.AddCommand(ensureCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging configures the global zerolog logger on stderr. level is
// the configured level; --verbose forces debug.
func setupLogging(level string) {
	lvl := parseLogLevel(level)
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
		NoColor:    plain,
	}).With().Timestamp().Logger()
}

// parseLogLevel converts a string log level to a zerolog.Level.
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := findConfig()
	if err != nil {
		return nil, err
	}

	if model != "" {
		cfg.Model = model
	}
	setupLogging(cfg.Logging.Level)

	return cfg, nil
}

func findConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}

	// Try default locations
	locations := []string{
		"./config/config.yaml",
		"./config.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "lmsready", "config.yaml"))
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			log.Debug().Str("path", loc).Msg("Loading config")
			return config.Load(loc)
		}
	}

	log.Debug().Strs("tried", locations).Msg("No config file found, using built-in defaults")
	return config.Default(), nil
}

func styles() tui.Styles {
	if plain {
		return tui.PlainStyles()
	}
	return tui.DefaultStyles()
}

func baseURL(cfg *config.Config) string {
	p, _ := cfg.GetProvider(config.LMStudioProviderID)
	return p.BaseURL
}

func runEnsure(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ensurer := lmstudio.NewEnsurer()
	ensurer.HomeDir = homeDir
	if ask {
		ensurer.Confirm = tui.ConfirmDownload
	}

	res, err := ensurer.EnsureReady(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	fmt.Print(styles().RenderResult(baseURL(cfg), res))
	return nil
}

func runListModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	client, err := lmstudio.NewClientFromConfig(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	models, err := client.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}

	fmt.Print(styles().RenderModels(client.BaseURL(), models, cfg.ResolveModel("")))
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !skipCheck {
		if _, err := lmstudio.EnsureReady(cmd.Context(), cfg); err != nil {
			return fmt.Errorf("readiness check: %w", err)
		}
	}

	lms, err := provider.NewLMStudioFromConfig(cfg, "")
	if err != nil {
		return err
	}

	return chat(cmd.Context(), lms, provider.Request{Prompt: args[0], SystemPrompt: system})
}

// chat sends req to p and prints the reply. With --skip-check only the
// server's health is verified first.
func chat(ctx context.Context, p provider.Provider, req provider.Request) error {
	if skipCheck {
		if err := p.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s health check: %w", p.Name(), err)
		}
	}

	if noStream {
		resp, err := p.Invoke(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(resp.Content)
		log.Debug().Str("model", resp.Model).Int("tokens", resp.TokensUsed).Str("finish_reason", resp.FinishReason).Msg("Completion finished")
		return nil
	}

	chunks, err := p.Stream(ctx, req)
	if err != nil {
		return err
	}
	for chunk := range chunks {
		if chunk.Error != nil {
			fmt.Println()
			return chunk.Error
		}
		fmt.Print(chunk.Content)
	}
	fmt.Println()

	return nil
}
