package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "jobscout"
)

type Config struct {
	DataDir string    `mapstructure:"data-dir"`
	Listen  string    `mapstructure:"listen"`
	AI      *AIConfig `mapstructure:"ai"`
}

type AIConfig struct {
	Provider       string        `mapstructure:"provider"`
	MaxCandidates  int           `mapstructure:"max-candidates"`
	VoteDelay      time.Duration `mapstructure:"vote-delay"`
	CandidateDelay time.Duration `mapstructure:"candidate-delay"`
	Gemini         *GeminiConfig `mapstructure:"gemini"`
	Facets         *FacetConfig  `mapstructure:"facets"`
}

type GeminiConfig struct {
	APIKeyFile       string        `mapstructure:"api-key-file"`
	Models           []string      `mapstructure:"models"`
	CallTimeout      time.Duration `mapstructure:"call-timeout"`
	RateLimitRetries int           `mapstructure:"rate-limit-retries"`
}

type FacetConfig struct {
	Technical bool `mapstructure:"technical"`
	Culture   bool `mapstructure:"culture"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobscout is an AI-assisted job search: it reasons about your query, proposes postings and cross-checks every one of them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobscout.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("data-dir", "./data")
	viper.SetDefault("listen", ":8080")
}

func initConfig() {
	// Config needed only for the search and serve commands.
	if searchCmd.CalledAs() == "" && serveCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing default config file is fine: defaults, flags and
		// environment variables still apply. An explicit --config must exist.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
