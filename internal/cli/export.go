package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadsync/leadsync/internal/errors"
	"github.com/leadsync/leadsync/internal/export"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored leads to a file",
	Long: `Write the stored leads of a user to a CSV or JSON file.

Example:
  leadsync export --user 1234567890 --format csv
  leadsync export --user 1234567890 --format json --out leads.json`,
	RunE: runExport,
}

var exportFlags struct {
	UserID string
	Format string
	Out    string
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.UserID, "user", "", "Facebook user id to export (required)")
	exportCmd.Flags().StringVar(&exportFlags.Format, "format", "csv", "Export format: csv or json")
	exportCmd.Flags().StringVar(&exportFlags.Out, "out", "", "Output file (defaults to facebook-leads-<timestamp>.<format>)")
	_ = exportCmd.MarkFlagRequired("user")

	RootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFlags.Format != "csv" && exportFlags.Format != "json" {
		return fmt.Errorf("unsupported format %q: expected csv or json", exportFlags.Format)
	}

	_, s, _, err := openEnvironment(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	leads, err := s.GetLeads(context.Background(), exportFlags.UserID)
	if err != nil {
		return err
	}
	if len(leads) == 0 {
		return &errors.ErrNoLeads{UserID: exportFlags.UserID}
	}

	var body []byte
	switch exportFlags.Format {
	case "csv":
		body, err = export.ToCSV(leads)
	case "json":
		body, err = export.ToJSON(leads)
	}
	if err != nil {
		return err
	}

	out := exportFlags.Out
	if out == "" {
		out = export.Filename(time.Now(), exportFlags.Format)
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	log.Printf("Exported %d leads to %s", len(leads), out)
	return nil
}
