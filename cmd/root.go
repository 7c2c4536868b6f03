package cmd

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/wisy/internal/link"
	"github.com/spigell/wisy/internal/matcher"
	"github.com/spigell/wisy/internal/reply"
	"github.com/spigell/wisy/internal/responder"
	"github.com/spigell/wisy/internal/server"
	"github.com/spigell/wisy/internal/shopify"
)

const (
	app = "wisy"
)

type Config struct {
	CatalogFile string           `mapstructure:"catalog-file"`
	Link        link.Config      `mapstructure:"link"`
	Matcher     MatcherConfig    `mapstructure:"matcher"`
	Reply       reply.Config     `mapstructure:"reply"`
	Responder   responder.Config `mapstructure:"responder"`
	Server      server.Config    `mapstructure:"server"`
	AI          *AIConfig        `mapstructure:"ai"`
	Shopify     shopify.Config   `mapstructure:"shopify"`
}

type MatcherConfig struct {
	matcher.Config `mapstructure:",squash"`
	Rules          []matcher.SynonymSpec `mapstructure:"synonyms"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey          string   `mapstructure:"api-key" json:"-"`
	APIKeyFile      string   `mapstructure:"api-key-file"`
	Models          []string `mapstructure:"models"`
	MaxRetries      int      `mapstructure:"max-retries"`
	MaxOutputTokens int32    `mapstructure:"max-output-tokens"`
	MaxLogLength    int      `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "wisy answers customer questions about the clinic's treatments",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	bindEnv("catalog-file", "WISY_CATALOG_FILE")
	bindEnv("link.url", "WISY_CONTACT_URL")
	bindEnv("server.addr", "WISY_ADDR")
	bindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE")
	bindEnv("shopify.shop-name", "SHOPIFY_SHOP_NAME")
	bindEnv("shopify.token-file", "SHOPIFY_TOKEN_FILE")

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is wisy.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func bindEnv(key, env string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Fatalf("binding %s environment variable: %v", env, err)
	}
}

func setDefaults() {
	viper.SetDefault("catalog-file", "treatments.json")
	viper.SetDefault("link.label", link.DefaultLabel)
	viper.SetDefault("link.details-label", link.DefaultDetailsLabel)
	viper.SetDefault("matcher.threshold", matcher.DefaultThreshold)
	viper.SetDefault("reply.max-description-length", reply.DefaultMaxDescriptionLength)
	viper.SetDefault("responder.max-message-length", responder.DefaultMaxMessageLength)
	viper.SetDefault("responder.timeout", responder.DefaultTimeout)
	viper.SetDefault("server.addr", server.DefaultAddr)
	viper.SetDefault("server.allowed-origins", []string{"*"})
	viper.SetDefault("ai.enabled", true)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.models", []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"})
	viper.SetDefault("ai.gemini.max-retries", 2)
	viper.SetDefault("ai.gemini.max-output-tokens", 120)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("shopify.api-version", shopify.DefaultAPIVersion)
	viper.SetDefault("shopify.output", "treatments.json")
}

func initConfig() {
	// Version does not need any configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	// Deployments keep secrets and the contact url in .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config everything may come from env and defaults.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	return config, nil
}
