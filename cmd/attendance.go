package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/store"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "List attendance records for a day",
	RunE:  runAttendance,
}

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List enrolled identities",
	RunE:  runIdentities,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	rootCmd.AddCommand(identitiesCmd)

	attendanceCmd.Flags().String("date", "", "Day to list (YYYY-MM-DD, default today)")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	day := time.Now()
	if v := mustGetString(cmd, "date"); v != "" {
		day, err = time.Parse("2006-01-02", v)
		if err != nil {
			return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", v)
		}
	}

	records, err := st.ListAttendance(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("listing attendance: %w", err)
	}

	if len(records) == 0 {
		fmt.Printf("No attendance recorded on %s\n", day.Format("2006-01-02"))
		return nil
	}

	fmt.Printf("Attendance on %s:\n", day.Format("2006-01-02"))
	for _, rec := range records {
		fmt.Printf("  %s  %s\n", rec.RecordedAt.Format("15:04:05"), rec.Identity)
	}
	last := records[len(records)-1]
	fmt.Printf("Last recorded: %s at %s\n", last.Identity, last.RecordedAt.Format("15:04:05"))
	return nil
}

func runIdentities(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	enrolled, err := st.LoadEnrolledIdentities(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}

	if len(enrolled) == 0 {
		fmt.Println("No enrolled identities")
		return nil
	}

	for _, e := range enrolled {
		fmt.Printf("  %-30s %s\n", e.Name, e.Role)
	}
	return nil
}
