package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyhaven/keyhaven/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "keyhaven",
	Short: "Secure credential store gated by device authentication",
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
