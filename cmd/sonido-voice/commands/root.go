package commands

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-voice/analysis"
	"github.com/RyanBlaney/sonido-voice/asr"
	"github.com/RyanBlaney/sonido-voice/config"
	"github.com/RyanBlaney/sonido-voice/goals"
	"github.com/RyanBlaney/sonido-voice/logging"
	"github.com/RyanBlaney/sonido-voice/transcode"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sonido-voice",
	Short: "Voice quality analysis",
	Long: `sonido-voice measures breathiness, roughness, strain and resonance
brightness in speech recordings, compares them against goal presets, and
scores live audio over a websocket.

Configuration comes from defaults, an optional YAML file (--config), a .env
file and SONIDO_* environment variables, e.g. SONIDO_SERVER_ADDRESS=:9000.

Examples:
  sonido-voice serve
  sonido-voice analyze take.wav --goal clean_smooth --voice-lab
  sonido-voice clean take.m4a take_clean.wav
  sonido-voice presets`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logging.SetGlobalLogger(cfg.NewLogger())
		globalConfig = cfg
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(presetsCmd)
}

// catalog returns the built-in presets, overlaid with presets.path if set
func catalog(cfg *config.Config) (*goals.Catalog, error) {
	if cfg.Presets.Path == "" {
		return goals.Builtin(), nil
	}
	return goals.LoadCatalog(cfg.Presets.Path)
}

// newAnalyzer wires the loader, presets and transcriber from cfg
func newAnalyzer(cfg *config.Config) (*analysis.Analyzer, *asr.Client, error) {
	cat, err := catalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	a := analysis.NewAnalyzer(transcode.NewLoader(cfg.LoaderConfig()), cat)

	client := asr.NewClient(cfg.ASR.URL, cfg.ASR.Language, cfg.ASR.Timeout)
	if client.Enabled() {
		a = a.WithTranscriber(client)
	}
	return a, client, nil
}
