package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-voice/transcode"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <input> <output.wav>",
	Short: "Band-limit and normalize a recording into a WAV file",
	Long: `Filter a recording to 80-8000 Hz with a zero-phase Butterworth bandpass,
normalize it to -1 dBFS and write a 16 kHz mono WAV.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := transcode.NewLoader(globalConfig.LoaderConfig())
		sig, err := loader.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := transcode.Validate(sig, transcode.MinUtilitySeconds); err != nil {
			return err
		}

		cleaned := transcode.Clean(sig)
		data, err := transcode.EncodeWAV(cleaned.Samples, cleaned.SampleRate)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[1], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%.2f s)\n", args[1], cleaned.Duration())
		return nil
	},
}
