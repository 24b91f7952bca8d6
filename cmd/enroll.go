package cmd

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/veriface/veriface/internal/attendance"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/session"
	"github.com/veriface/veriface/internal/store"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <name>",
	Short: "Enroll a new identity from the webcam",
	Long: `Capture a batch of face samples for an identity directly from the
webcam and save them to the attendance store. The camera stays open until
the sample quota is reached.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("role", "user", "Role for the identity (user or admin)")
	enrollCmd.Flags().Bool("allow", false, "Also add the identity to the attendance allow list")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	name := args[0]
	role := mustGetString(cmd, "role")

	cfg := config.Load()

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

	progress, err := sup.StartEnrollment(name, role)
	if err != nil {
		return fmt.Errorf("starting enrollment: %w", err)
	}

	fmt.Printf("Enrolling %q, look at the camera...\n", name)
	bar := progressbar.NewOptions(progress.Total,
		progressbar.OptionSetDescription("capturing samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	for {
		progress = sup.EnrollmentProgress()
		_ = bar.Set(progress.Current)

		switch progress.Status {
		case session.EnrollCompleted:
			_ = bar.Finish()
			fmt.Printf("Enrolled %q with %d samples\n", name, progress.Total)
			if mustGetBool(cmd, "allow") {
				policy.Allow(name)
				fmt.Printf("Added %q to the allow list for this run; set ALLOWED_IDENTITIES to persist\n", name)
			}
			return nil
		case session.EnrollError:
			_ = bar.Finish()
			return fmt.Errorf("enrollment failed, captured %d of %d samples", progress.Current, progress.Total)
		case session.EnrollStopped:
			_ = bar.Finish()
			return fmt.Errorf("enrollment stopped before completing")
		}

		select {
		case <-cmd.Context().Done():
			sup.StopEnrollment()
			return cmd.Context().Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
