package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akranz/factgate/internal/audit"
)

var (
	auditPath  string
	auditLimit int
	auditClass string
	auditFor   string
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect recorded verification runs",
	Long: `Audit queries the verification history: which responses were gated,
with what confidence, and which specific claim caused a rejection.`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent verification runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAuditStore()
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.Recent(auditLimit)
		if err != nil {
			return fmt.Errorf("query audit store: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No verification runs recorded.")
			return nil
		}

		fmt.Printf("%-36s  %-8s  %-10s  %-6s  %s\n", "REQUEST", "VERDICT", "CONFIDENCE", "CLAIMS", "CREATED")
		for _, rec := range records {
			fmt.Printf("%-36s  %-8s  %-10.2f  %-6d  %s\n",
				rec.RequestID, rec.Verdict, rec.OverallConfidence, rec.ClaimCount,
				rec.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var auditShowCmd = &cobra.Command{
	Use:   "show <request-id>",
	Short: "Show the per-claim results of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAuditStore()
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.ByRequest(args[0])
		if err != nil {
			return fmt.Errorf("query audit store: %w", err)
		}
		if rec == nil {
			return fmt.Errorf("no run recorded for request %s", args[0])
		}

		fmt.Printf("Request:    %s\n", rec.RequestID)
		fmt.Printf("Verdict:    %s\n", rec.Verdict)
		fmt.Printf("Confidence: %.2f\n", rec.OverallConfidence)
		for _, a := range rec.Annotations {
			fmt.Printf("Warning:    %s\n", a)
		}
		fmt.Println()

		rows, err := store.Results(args[0])
		if err != nil {
			return fmt.Errorf("query audit store: %w", err)
		}
		printResultRows(rows)
		return nil
	},
}

var auditClaimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "List recorded claims filtered by classification or entity",
	Long: `Claims lists per-claim rows across runs, filtered by classification
(--class GROSS_MISMATCH) or entity (--entity AAPL). The recorded rows
double as the golden dataset for regression tests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditClass == "" && auditFor == "" {
			return fmt.Errorf("pass --class or --entity")
		}

		store, err := openAuditStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var rows []audit.ResultRow
		if auditClass != "" {
			rows, err = store.ByClassification(auditClass, auditLimit)
		} else {
			rows, err = store.ByEntity(auditFor, auditLimit)
		}
		if err != nil {
			return fmt.Errorf("query audit store: %w", err)
		}
		printResultRows(rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditClaimsCmd)

	auditCmd.PersistentFlags().StringVar(&auditPath, "db", "", "audit database path (default from config)")
	auditCmd.PersistentFlags().IntVar(&auditLimit, "limit", 20, "maximum rows to return")
	auditClaimsCmd.Flags().StringVar(&auditClass, "class", "", "filter by classification (e.g. WRONG_CATEGORY)")
	auditClaimsCmd.Flags().StringVar(&auditFor, "entity", "", "filter by entity id")
}

func openAuditStore() (*audit.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path := auditPath
	if path == "" {
		path = cfg.Audit.DBPath
	}
	store, err := audit.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	return store, nil
}

func printResultRows(rows []audit.ResultRow) {
	if len(rows) == 0 {
		fmt.Println("No claims recorded.")
		return
	}

	fmt.Printf("%-36s  %-3s  %-14s  %-8s  %-10s  %-9s  %s\n",
		"REQUEST", "#", "CLAIMED", "ENTITY", "METRIC", "DEVIATION", "CLASSIFICATION")
	for _, r := range rows {
		deviation := "-"
		if r.DeviationRatio != nil {
			deviation = fmt.Sprintf("%.2f%%", *r.DeviationRatio*100)
		}
		flags := ""
		if r.DefaultedPeriod {
			flags = " (defaulted period)"
		}
		fmt.Printf("%-36s  %-3d  %-14s  %-8s  %-10s  %-9s  %s%s\n",
			r.RequestID, r.ClaimIndex, r.Raw, r.EntityID, r.MetricID, deviation, r.Classification, flags)
	}
}
