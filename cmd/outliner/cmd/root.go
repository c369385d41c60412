package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mfenderov/outliner/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "outliner",
	Short: "Outliner: expand markdown outlines into prose",
	Long: `Outliner turns every list item of an outline document into a generated
paragraph and writes the result next to it. Generated sections are cached in the
outline's front matter, so only changed items are sent to the model again.

Commands:
  update   Regenerate the output of one or more outlines
  watch    Re-run updates on a schedule
  inspect  Show the cached sections stored in an outline
  search   Search generated sections (requires Elasticsearch)
  serve    Start the MCP server`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cfg.Validate()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/outliner")
		viper.AddConfigPath(".")
	}

	// OUTLINER_GENERATOR_MODEL -> generator.model
	viper.SetEnvPrefix("OUTLINER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for _, key := range []string{
		"generator.provider",
		"generator.model",
		"generator.api_key",
		"generator.base_url",
		"generator.socket_path",
		"generator.max_tokens",
		"generator.max_retries",
		"generator.timeout",
		"outline.extension",
		"outline.output_extension",
		"storage.backend",
		"storage.root",
		"storage.endpoint",
		"storage.bucket",
		"storage.access_key_id",
		"storage.secret_access_key",
		"storage.use_ssl",
		"storage.prefix",
		"index.enabled",
		"elasticsearch.index",
		"elasticsearch.username",
		"elasticsearch.password",
		"embeddings.enabled",
		"embeddings.socket_path",
		"embeddings.model",
		"watch.schedule",
		"mcp.name",
		"mcp.version",
	} {
		viper.BindEnv(key, "OUTLINER_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: addresses as comma-separated string from env
	if addrs := os.Getenv("OUTLINER_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}

	// Fall back to the provider's conventional key variable
	if cfg.Generator.APIKey == "" {
		switch cfg.Generator.Provider {
		case "openai":
			cfg.Generator.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.Generator.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}
