package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/slopwatch/internal/model"
	"github.com/ppiankov/slopwatch/internal/pipeline"
	"github.com/ppiankov/slopwatch/internal/watch"
)

// maxStdinBytes bounds what check reads from stdin
const maxStdinBytes = 16 << 20

var (
	checkClaim     string
	checkPatch     string
	checkJSON      bool
	checkFailOnLie bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check --claim <text> [files...]",
	Short: "Classify a claim against a patch or a set of files, once",
	Long: `Check runs claim extraction and the detectors once, without watching.

Evidence comes from a unified diff (--patch, "-" reads stdin) and/or files
given as arguments, which count as newly created in full.

Example:
  git diff | slopwatch check --claim "I added dark mode support" --patch -
  slopwatch check --claim "Added unit tests for the parser" parser_test.go
  slopwatch check --claim "Fixed the retry logic" --patch fix.diff --json`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkClaim, "claim", "", "assistant message to check (required)")
	checkCmd.Flags().StringVar(&checkPatch, "patch", "", `unified diff file ("-" for stdin)`)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
	checkCmd.Flags().BoolVar(&checkFailOnLie, "fail-on-lie", false, "exit non-zero when any claim is a lie")
	_ = checkCmd.MarkFlagRequired("claim")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	changes, err := collectChanges(checkPatch, args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := pipeline.Check(ctx, cfg, checkClaim, changes)
	if err != nil {
		return err
	}

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		printCheck(result, len(changes))
	}

	if checkFailOnLie {
		for _, v := range result.Verdicts {
			if v.Status == model.StatusLie {
				return fmt.Errorf("%d claim(s) checked, at least one is a lie", len(result.Verdicts))
			}
		}
	}
	return nil
}

// collectChanges reads the patch and files into change events
func collectChanges(patchPath string, files []string) ([]model.FileChangeEvent, error) {
	now := time.Now()
	var changes []model.FileChangeEvent

	if patchPath != "" {
		var (
			data []byte
			err  error
		)
		if patchPath == "-" {
			data, err = readAll(os.Stdin)
		} else {
			data, err = os.ReadFile(patchPath)
		}
		if err != nil {
			return nil, fmt.Errorf("read patch: %w", err)
		}
		fromPatch, err := watch.ChangesFromPatch(data, now)
		if err != nil {
			return nil, err
		}
		changes = append(changes, fromPatch...)
	}

	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		change, err := watch.ChangeFromContent(filepath.ToSlash(f), content, now)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}

	return changes, nil
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxStdinBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxStdinBytes {
		return nil, fmt.Errorf("input exceeds %d bytes", maxStdinBytes)
	}
	return data, nil
}

func printCheck(result *pipeline.CheckResult, changeCount int) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n", cyan("=== slopwatch check ==="))
	fmt.Printf("%s\n\n", gray(fmt.Sprintf("%d change(s) considered", changeCount)))

	if len(result.Verdicts) == 0 {
		fmt.Printf("  %s\n\n", gray("No verifiable claims found"))
		return
	}

	for _, v := range result.Verdicts {
		printVerdict(v)
	}
	fmt.Println()
}

// printVerdict prints one verdict line plus its evidence
func printVerdict(v model.Verdict) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	statusColor := statusColorFunc(v.Status)

	label := strings.ToUpper(string(v.Status))
	if v.Expired {
		label = "EXPIRED"
	}
	fmt.Printf("  %s %-9s %s\n", statusColor("●"), statusColor(label), v.ClaimText)
	fmt.Printf("    %s\n", gray(fmt.Sprintf("%s · %.0f%% · %s", v.DetectorName, v.Confidence*100, v.Reason)))
	for _, e := range v.Evidence {
		fmt.Printf("    %s %s\n", gray("-"), e)
	}
}

func statusColorFunc(s model.Status) func(a ...interface{}) string {
	switch s {
	case model.StatusVerified:
		return color.New(color.FgGreen).SprintFunc()
	case model.StatusPartial:
		return color.New(color.FgYellow).SprintFunc()
	case model.StatusLie:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	default:
		return color.New(color.FgHiBlack).SprintFunc()
	}
}
