package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/slopwatch/internal/model"
	"github.com/ppiankov/slopwatch/internal/server"
)

var (
	statusAddr  string
	statusSince string
	statusLimit int
	statusClaim string
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the slop score and recent verdicts of a running watcher",
	Long: `Status queries a running "slopwatch watch" over its HTTP API and prints
the slop score, the status breakdown and the most recent verdicts.
With --claim it prints the verdict of a single claim instead.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "API address (default from config server.listen)")
	statusCmd.Flags().StringVar(&statusSince, "since", "1h", "show verdicts since (RFC3339 or duration)")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "max verdicts to print")
	statusCmd.Flags().StringVar(&statusClaim, "claim", "", "print the verdict of this claim ID")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		addr = viper.GetString("server.listen")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := server.NewClient(addr, nil)
	if statusClaim != "" {
		v, err := client.Verdict(ctx, statusClaim)
		if err != nil {
			return err
		}
		printVerdict(v)
		return nil
	}

	stats, err := client.Stats(ctx)
	if err != nil {
		return fmt.Errorf("is slopwatch watch running on %s? %w", addr, err)
	}
	verdicts, err := client.Verdicts(ctx, statusSince)
	if err != nil {
		return err
	}

	printStatus(stats, verdicts, statusLimit)
	return nil
}

func printStatus(stats model.Stats, verdicts []model.Verdict, limit int) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== slopwatch status ==="))

	scoreColor := color.New(color.FgGreen, color.Bold).SprintFunc()
	switch {
	case stats.SlopScore >= 0.5:
		scoreColor = color.New(color.FgRed, color.Bold).SprintFunc()
	case stats.SlopScore >= 0.2:
		scoreColor = color.New(color.FgYellow, color.Bold).SprintFunc()
	}
	fmt.Printf("  Slop score:   %s\n", scoreColor(fmt.Sprintf("%.0f%%", stats.SlopScore*100)))
	fmt.Printf("  Claims:       %d\n", stats.TotalClaims)
	fmt.Printf("  Analyzed:     %d\n", stats.TotalAnalyses)
	fmt.Printf("  Pending:      %d\n", stats.PendingClaims)
	if stats.ExpiredClaims > 0 {
		fmt.Printf("  Expired:      %d\n", stats.ExpiredClaims)
	}
	fmt.Println()

	if len(stats.StatusBreakdown) > 0 {
		fmt.Printf("%s\n", yellow("By status:"))
		for _, s := range []model.Status{model.StatusVerified, model.StatusPartial, model.StatusLie, model.StatusUnknown} {
			if n := stats.StatusBreakdown[s]; n > 0 {
				fmt.Printf("  %s %d\n", statusColorFunc(s)(fmt.Sprintf("%-9s", s)), n)
			}
		}
		fmt.Println()
	}

	if len(stats.DetectorBreakdown) > 0 {
		fmt.Printf("%s\n", yellow("By detector:"))
		names := make([]string, 0, len(stats.DetectorBreakdown))
		for name := range stats.DetectorBreakdown {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-10s %d\n", name, stats.DetectorBreakdown[name])
		}
		fmt.Println()
	}

	for _, sig := range stats.Signals {
		fmt.Printf("  %s %s\n", yellow("!"), sig.Description)
	}
	if len(stats.Signals) > 0 {
		fmt.Println()
	}

	fmt.Printf("%s\n", yellow("Recent verdicts:"))
	if len(verdicts) == 0 {
		fmt.Printf("  %s\n\n", gray("None"))
		return
	}
	if limit > 0 && len(verdicts) > limit {
		verdicts = verdicts[:limit]
	}
	for _, v := range verdicts {
		printVerdict(v)
	}
	fmt.Println()
}
