package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "sqlconsole",
	Short: "sqlconsole is a browser SQL console and stored-procedure runner",
	Long: `A web console for running ad-hoc SQL and stored procedures against a
PostgreSQL database. Credentials stay server-side against a session cookie
and query results stream back as newline-delimited JSON.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Define flags and configuration settings here.
}
