package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-voice/logging"
	"github.com/RyanBlaney/sonido-voice/server"
	"github.com/RyanBlaney/sonido-voice/store"
	"github.com/RyanBlaney/sonido-voice/stream"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and streaming endpoint",
	Long: `Serve the batch API and the live scoring websocket.

Routes:
  POST /api/analyze          multipart "audio" file, optional goal/transcribe/voice_lab fields
  GET  /api/analyze/status   decoder and transcriber availability
  GET  /api/analyses/{id}    a stored result
  POST /api/clean            multipart "audio" file, returns a cleaned WAV
  GET  /api/presets          goal presets
  GET  /ws                   live scoring (audio_chunk in, analysis_update out)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := globalConfig
		if serveAddr != "" {
			cfg.Server.Address = serveAddr
		}
		logger := logging.WithFields(logging.Fields{"component": "serve"})

		analyzer, client, err := newAnalyzer(cfg)
		if err != nil {
			return err
		}
		if err := analyzer.Loader().Decoder().Available(); err != nil {
			logger.Warn("Only WAV uploads can be analyzed", logging.Fields{"reason": err.Error()})
		}

		results, err := store.Open(store.Options{
			Dir:      cfg.Storage.Path,
			InMemory: cfg.Storage.InMemory,
			TTL:      cfg.Storage.TTL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer results.Close()

		registry := stream.NewRegistry(cfg.Stream)
		defer registry.CloseAll()

		opts := server.Options{
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			Defaults:       analysisDefaults(cfg),
		}
		if client.Enabled() {
			opts.ASR = client
		}
		srv := &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      server.New(analyzer, results, registry, opts).Router(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Server starting", logging.Fields{"address": cfg.Server.Address})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-quit:
		}

		logger.Info("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Info("Server exited")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
}
