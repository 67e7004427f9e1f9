package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"remote-shoot-backend/internal/config"
	"remote-shoot-backend/internal/controller"
	"remote-shoot-backend/internal/rtc"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cameraServer string
	cameraFrame  string
)

var cameraCmd = &cobra.Command{
	Use:   "camera <token>",
	Short: "Run the phone-side camera for one session",
	Args:  cobra.ExactArgs(1),
	RunE:  runCamera,
}

func init() {
	cameraCmd.Flags().StringVar(&cameraServer, "server", "http://localhost:8080", "relay base URL")
	cameraCmd.Flags().StringVar(&cameraFrame, "frame", "", "path to a JPEG served for every capture")
}

// fileFrames serves the configured JPEG for every capture command. It stands
// in for a live camera on machines without one.
type fileFrames struct {
	path string
}

func (f fileFrames) Frame(context.Context) ([]byte, error) {
	return os.ReadFile(f.path)
}

func runCamera(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.Log.Level)

	if cameraFrame == "" {
		return fmt.Errorf("--frame is required")
	}
	if _, err := os.Stat(cameraFrame); err != nil {
		return fmt.Errorf("frame file: %w", err)
	}

	ctx := cmd.Context()
	cam := controller.NewCamera(controller.CameraConfig{
		Client:  controller.NewClient(cameraServer),
		Token:   args[0],
		NewPeer: rtc.NewFactory(cfg.WebRTC),
		Frames:  fileFrames{path: cameraFrame},
		Logger:  log.Logger,
	})
	defer cam.Close()

	if err := cam.Load(ctx); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if err := cam.Start(ctx); err != nil {
		return fmt.Errorf("failed to start camera: %w", err)
	}
	log.Info().Str("session_id", cam.SessionID()).Msg("Camera ready, waiting for the photographer")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Camera shutting down")
	return nil
}
