package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/akranz/factgate/internal/model"
	"github.com/akranz/factgate/internal/pipeline"
)

var (
	inputPath   string
	outJSON     string
	outMD       string
	timeout     time.Duration
	strictMode  bool
	autoCorrect bool
	noAudit     bool
	auditDB     string
	noFooter    bool
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a model response against its grounding context",
	Long: `Verify reads a verification request (the response text plus the
entity/metric/period tuples that were handed to the model) and re-checks
every numeric claim in the response against those records.

The request is JSON on stdin or in a file:

  {
    "response_text": "Apple's total revenue was $391.0B in FY2024 ...",
    "context": [
      {"entity_id": "AAPL", "entity_name": "Apple Inc.",
       "metric_id": "revenue", "metric_label": "Total Revenue",
       "period": "FY2024", "value": 391035000000, "unit": "USD",
       "mandatory": true}
    ]
  }

Example:
  factgate verify --input request.json
  cat request.json | factgate verify --strict --json result.json`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&inputPath, "input", "i", "-", "request JSON path, '-' for stdin")
	verifyCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	verifyCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	verifyCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall verification timeout")
	verifyCmd.Flags().BoolVar(&strictMode, "strict", false, "reject responses below the confidence threshold")
	verifyCmd.Flags().BoolVar(&autoCorrect, "auto-correct", false, "substitute canonical formatting for formatting-level mismatches")
	verifyCmd.Flags().BoolVar(&noAudit, "no-audit", false, "disable audit recording")
	verifyCmd.Flags().StringVar(&auditDB, "db", "", "audit database path (default from config)")
	verifyCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	_ = viper.BindPFlag("verification.strict_mode", verifyCmd.Flags().Lookup("strict"))
	_ = viper.BindPFlag("verification.auto_correct", verifyCmd.Flags().Lookup("auto-correct"))
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := readRequest(inputPath)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if strictMode {
		cfg.Verification.StrictMode = true
	}
	if autoCorrect {
		cfg.Verification.AutoCorrect = true
	}
	if noAudit {
		cfg.Audit.Enabled = false
	}
	if auditDB != "" {
		cfg.Audit.DBPath = auditDB
	}
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter

	if verbose {
		fmt.Fprintf(os.Stderr, "Claims context: %d entries\n", len(req.Context))
		fmt.Fprintf(os.Stderr, "Strict mode: %v\n", cfg.Verification.StrictMode)
		fmt.Fprintln(os.Stderr)
	}

	verifier, err := pipeline.NewVerifier(cfg)
	if err != nil {
		return err
	}
	defer verifier.Close()

	rv, err := verifier.Verify(ctx, *req)
	if err != nil {
		// The gate failed closed; the verdict is still meaningful
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	if outJSON != "" {
		if err := renderer.RenderJSON(rv, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote JSON: %s\n", outJSON)
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(rv, outMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote Markdown: %s\n", outMD)
		}
	}
	renderer.RenderSummary(rv)

	if rv.Verdict == model.VerdictReject {
		fmt.Println()
		fmt.Println(rv.DisplayText)
	}

	return nil
}

func readRequest(path string) (*model.VerifyRequest, error) {
	var data []byte
	var err error

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read request: %w", err)
		}
	}

	var req model.VerifyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return &req, nil
}

// loadConfig layers viper state (config file + FACTGATE_* env) over the
// built-in defaults.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}
