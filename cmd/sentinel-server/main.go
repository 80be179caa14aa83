package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel-server",
	Short: "StoreWatch fleet liveness and alerting server",
	Long:  `sentinel-server ingests store heartbeats, tracks fleet liveness, and dispatches alert notifications.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
