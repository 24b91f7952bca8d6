package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/identity"
	"github.com/veriface/veriface/internal/store"
)

var allowCmd = &cobra.Command{
	Use:   "allow",
	Short: "Show who may commit attendance",
	Long: `Print the effective attendance permissions: the allow list from the
ALLOWED_IDENTITIES environment variable plus every enrolled admin, who is
implicitly allowed. The running server manages its allow list over the API;
this command resolves the same inputs for inspection.`,
	RunE: runAllow,
}

func init() {
	rootCmd.AddCommand(allowCmd)
}

func runAllow(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	allowed := allowedFromEnv()
	if len(allowed) == 0 {
		fmt.Println("Allow list (ALLOWED_IDENTITIES): empty")
	} else {
		fmt.Println("Allow list (ALLOWED_IDENTITIES):")
		for _, name := range allowed {
			fmt.Printf("  %s\n", name)
		}
	}

	enrolled, err := st.LoadEnrolledIdentities(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}
	var admins []string
	for _, e := range enrolled {
		if e.Role == identity.RoleAdmin {
			admins = append(admins, e.Name)
		}
	}
	if len(admins) > 0 {
		fmt.Println("Implicitly allowed (admin role):")
		for _, name := range admins {
			fmt.Printf("  %s\n", name)
		}
	}
	return nil
}
