package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/ocr/paddle"
	"github.com/jackzampolin/bindery/internal/ocrserver"
	"github.com/jackzampolin/bindery/internal/svcctx"
)

var (
	ocrLogsTail    string
	ocrWaitTimeout time.Duration
)

var ocrServerCmd = &cobra.Command{
	Use:   "ocr-server",
	Short: "Manage the local PaddleOCR container",
	Long: `Manage the PaddleOCR serving container used by the paddle provider.

The container runs in Docker with downloaded models cached under
{home}/paddleocr-models/.

Examples:
  bindery ocr-server start   # Pull, create and start the container
  bindery ocr-server status  # Check container status and health
  bindery ocr-server stop    # Stop the container (models preserved)`,
}

var ocrServerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the PaddleOCR container",
	Long: `Start the PaddleOCR container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := ocrManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		say(cmd, "Starting PaddleOCR (first start downloads models)...")
		if err := mgr.Start(cmd.Context()); err != nil {
			return fmt.Errorf("failed to start PaddleOCR: %w", err)
		}
		say(cmd, "PaddleOCR is running at %s", mgr.URL())
		return nil
	},
}

var ocrServerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the PaddleOCR container",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := ocrManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		if err := mgr.Stop(cmd.Context()); err != nil {
			return fmt.Errorf("failed to stop PaddleOCR: %w", err)
		}
		say(cmd, "PaddleOCR stopped")
		return nil
	},
}

var ocrServerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show PaddleOCR container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr, err := ocrManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		out := cmd.OutOrStdout()
		switch status {
		case ocrserver.StatusRunning:
			fmt.Fprintf(out, "Status: %s\n", status)
			fmt.Fprintf(out, "URL: %s\n", mgr.URL())
			client := paddle.New(paddle.Config{URL: mgr.URL(), Timeout: 5 * time.Second})
			if err := client.HealthCheck(ctx); err != nil {
				fmt.Fprintf(out, "Health: unhealthy (%v)\n", err)
			} else {
				fmt.Fprintln(out, "Health: healthy")
			}
		case ocrserver.StatusStopped:
			fmt.Fprintf(out, "Status: %s (use 'bindery ocr-server start' to start)\n", status)
		case ocrserver.StatusNotFound:
			fmt.Fprintf(out, "Status: %s (use 'bindery ocr-server start' to create)\n", status)
		default:
			fmt.Fprintf(out, "Status: %s\n", status)
		}
		return nil
	},
}

var ocrServerLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show PaddleOCR container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := ocrManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(cmd.Context(), ocrLogsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), logs)
		return nil
	},
}

var ocrServerRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the PaddleOCR container",
	Long: `Stop and remove the PaddleOCR container. Cached models under
{home}/paddleocr-models/ are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := ocrManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		if err := mgr.Remove(cmd.Context()); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}
		say(cmd, "PaddleOCR container removed (models preserved)")
		return nil
	},
}

var ocrServerWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for PaddleOCR to accept requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := ocrManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		say(cmd, "Waiting for PaddleOCR (timeout: %s)...", ocrWaitTimeout)
		if err := mgr.WaitReady(cmd.Context(), ocrWaitTimeout); err != nil {
			return fmt.Errorf("PaddleOCR not ready: %w", err)
		}
		say(cmd, "PaddleOCR is ready")
		return nil
	},
}

func init() {
	ocrServerCmd.AddCommand(ocrServerStartCmd)
	ocrServerCmd.AddCommand(ocrServerStopCmd)
	ocrServerCmd.AddCommand(ocrServerStatusCmd)
	ocrServerCmd.AddCommand(ocrServerLogsCmd)
	ocrServerCmd.AddCommand(ocrServerRemoveCmd)
	ocrServerCmd.AddCommand(ocrServerWaitCmd)

	ocrServerLogsCmd.Flags().StringVar(&ocrLogsTail, "tail", "100", "Number of lines to show from the end")
	ocrServerWaitCmd.Flags().DurationVar(&ocrWaitTimeout, "timeout", 2*time.Minute, "Timeout waiting for PaddleOCR")

	rootCmd.AddCommand(ocrServerCmd)
}

// ocrManager creates a Manager from the ocr_server config section.
func ocrManager(cmd *cobra.Command) (*ocrserver.Manager, error) {
	svc, err := services(cmd)
	if err != nil {
		return nil, err
	}
	return newOCRManager(svc)
}

func newOCRManager(svc *svcctx.Services) (*ocrserver.Manager, error) {
	modelPath := filepath.Join(svc.Home.Path(), "paddleocr-models")
	if err := os.MkdirAll(modelPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}
	cfg := svc.Config.Get().OCRServer
	return ocrserver.NewManager(ocrserver.Config{
		ContainerName: cfg.ContainerName,
		HomePath:      svc.Home.Path(),
		Image:         cfg.Image,
		ModelPath:     modelPath,
		HostPort:      cfg.Port,
		Logger:        svc.Logger,
	})
}
