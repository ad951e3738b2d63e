package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmcleod/sqlconsole/audit"
)

var (
	auditDataDir string
	auditLimit   int
	auditJSON    bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := audit.Open(auditDataDir + "/audit.db")
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(auditLimit)
		if err != nil {
			return fmt.Errorf("read audit log: %w", err)
		}
		return renderEntries(os.Stdout, entries, auditJSON)
	},
}

// renderEntries writes entries either as a column-aligned table or as one
// JSON document per line.
func renderEntries(w io.Writer, entries []audit.Entry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tREMOTE\tDETAIL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.CreatedAt, e.Event, e.RemoteAddr, e.Detail)
	}
	return tw.Flush()
}

func init() {
	auditCmd.AddCommand(auditListCmd)
	auditListCmd.Flags().StringVar(&auditDataDir, "data-dir", "./data", "Directory holding the audit database")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum entries to print (0 prints all)")
	auditListCmd.Flags().BoolVar(&auditJSON, "json", false, "Print one JSON document per entry")
}
