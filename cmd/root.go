package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "veriface",
	Short: "Face-verification attendance capture",
	Long: `Veriface runs a webcam capture pipeline that verifies a claimed
identity against enrolled face samples and records attendance for
confirmed matches. The serve command exposes the pipeline over a JSON
API; enroll and attendance are direct CLI entry points.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
