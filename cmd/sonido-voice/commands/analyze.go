package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-voice/analysis"
	"github.com/RyanBlaney/sonido-voice/config"
	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

var (
	analyzeGoal       string
	analyzeTranscribe bool
	analyzeVoiceLab   bool
	analyzeOutput     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a recording and print the result as JSON",
	Long: `Analyze a recording: global voice-quality features, the frame-level
brightness timeline, the quality summary and the comparison against a goal.

WAV is read natively; other formats need ffmpeg on PATH (see decoder.ffmpeg_path).

Examples:
  sonido-voice analyze take.wav
  sonido-voice analyze take.m4a --goal light_and_bright --voice-lab -o result.json
  SONIDO_ASR_URL=http://localhost:9000 sonido-voice analyze take.wav --transcribe`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := globalConfig
		analyzer, _, err := newAnalyzer(cfg)
		if err != nil {
			return err
		}

		opts := analysisDefaults(cfg)
		if cmd.Flags().Changed("goal") {
			opts.Goal = analyzeGoal
		}
		if cmd.Flags().Changed("transcribe") {
			opts.Transcribe = analyzeTranscribe
		}
		if cmd.Flags().Changed("voice-lab") {
			opts.VoiceLab = analyzeVoiceLab
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result, err := analyzer.AnalyzeFile(ctx, args[0], opts)
		if err != nil {
			if voiceerr.KindOf(err) != voiceerr.KindUnknown {
				return errors.New(voiceerr.UserMessage(err))
			}
			return err
		}
		return writeResult(result, analyzeOutput)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeGoal, "goal", "g", "", "goal preset (default from analysis.default_goal)")
	analyzeCmd.Flags().BoolVar(&analyzeTranscribe, "transcribe", false, "align words from the transcription service")
	analyzeCmd.Flags().BoolVar(&analyzeVoiceLab, "voice-lab", false, "add formants, vocal tract, LTAS and articulation measures")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output file (default: stdout)")
}

func analysisDefaults(cfg *config.Config) analysis.Options {
	return analysis.Options{
		Goal:       cfg.Analysis.DefaultGoal,
		Transcribe: cfg.Analysis.Transcribe,
		VoiceLab:   cfg.Analysis.VoiceLab,
	}
}

func writeResult(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
