package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"remote-shoot-backend/internal/config"
	"remote-shoot-backend/internal/controller"
	"remote-shoot-backend/internal/models"
	"remote-shoot-backend/internal/rtc"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var photographerServer string

var photographerCmd = &cobra.Command{
	Use:   "photographer <token>",
	Short: "Run the photographer console for one session",
	Args:  cobra.ExactArgs(1),
	RunE:  runPhotographer,
}

func init() {
	photographerCmd.Flags().StringVar(&photographerServer, "server", "http://localhost:8080", "relay base URL")
}

func statusLabel(status models.SessionStatus) string {
	switch status {
	case models.StatusWaiting:
		return "Waiting for camera"
	case models.StatusReady:
		return "Camera ready"
	case models.StatusShooting:
		return "Shooting"
	case models.StatusEnded:
		return "Ended"
	}
	return string(status)
}

func runPhotographer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.Log.Level)

	ctx := cmd.Context()
	client := controller.NewClient(photographerServer)

	var lastStatus models.SessionStatus
	p := controller.NewPhotographer(controller.PhotographerConfig{
		Client:  client,
		Token:   args[0],
		NewPeer: rtc.NewFactory(cfg.WebRTC),
		OnCountdown: func(n int) {
			fmt.Printf("  %d...\n", n)
		},
		OnSessionUpdate: func(info controller.SessionInfo) {
			if info.Status != lastStatus {
				lastStatus = info.Status
				fmt.Printf("\n[%s]\n> ", statusLabel(info.Status))
			}
		},
		Logger: log.Logger,
	})
	defer p.Close()

	if err := p.Load(ctx); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	lastStatus = p.Status()
	go p.RunStatusLoop(ctx)

	fmt.Printf("Session %s  [%s]\n", p.SessionID(), statusLabel(p.Status()))
	fmt.Println("Commands: start | capture | next | end | status | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		switch scanner.Text() {
		case "start":
			if err := p.StartShooting(ctx); err != nil {
				fmt.Printf("start failed: %v\n", err)
				continue
			}
			fmt.Println("Shooting started, waiting for the camera connection...")
		case "capture":
			if err := p.RequestCapture(ctx); err != nil {
				if errors.Is(err, controller.ErrNotShooting) {
					fmt.Println("start shooting first")
					continue
				}
				if errors.Is(err, controller.ErrChannelNotOpen) {
					fmt.Println("camera is not connected yet")
					continue
				}
				fmt.Printf("capture failed: %v\n", err)
				continue
			}
			fmt.Println("Capture requested")
		case "next":
			p.NextCut()
			fmt.Println("Ready for the next cut")
		case "end":
			if err := p.EndShooting(ctx); err != nil {
				fmt.Printf("end failed: %v\n", err)
				continue
			}
			fmt.Println("Session ended")
			return nil
		case "status":
			connected := "disconnected"
			if p.Connected() {
				connected = "connected"
			}
			fmt.Printf("[%s] photos: %d, peer: %s", statusLabel(p.Status()), p.PhotoCount(), connected)
			if at := p.LastCaptureAt(); at != "" {
				fmt.Printf(", last capture: %s", at)
			}
			fmt.Println()
		case "quit":
			return nil
		case "":
		default:
			fmt.Println("Commands: start | capture | next | end | status | quit")
		}
	}
}
