package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const serviceName = "properties-service"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "properties",
		Short: "Property management backend",
	}

	rootCmd.AddCommand(
		ServeCmd(),
		InitAdminCmd(),
		SeedCmd(),
		ClearCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
