package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veriface/veriface/internal/attendance"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/store"
	"github.com/veriface/veriface/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance capture server",
	Long: `Start the Veriface server.
The server owns the webcam, the face index and the attendance store, and
exposes verification, enrollment and attendance over a JSON API with MJPEG
camera previews.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	fmt.Printf("Opening %s attendance store...\n", cfg.Database.Driver)
	st, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	knn, err := buildClassifier(cmd.Context(), st, cfg)
	if err != nil {
		return err
	}

	policy := buildPolicy(st)
	ledger := attendance.NewLedger(st, policy, cfg.Tuning.Attendance.Cooldown())

	sup, cleanup, err := buildSupervisor(cfg, st, knn, ledger, policy)
	if err != nil {
		return err
	}
	defer cleanup()

	server := web.NewServer(cfg, sup, st, ledger, policy)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		// Join the capture worker first so the camera is released
		// before the process exits.
		sup.Stop()
		sup.StopEnrollment()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Veriface on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
