package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pausewise/pausewise/internal/model"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show savings, goals, and items cooling off",
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	out := cmd.OutOrStdout()
	today := time.Now().Format("2006-01-02")
	savedToday := stats.SavedToday
	if stats.Day != today {
		// The daily counter rolls over lazily on the next credit.
		savedToday = 0
	}
	fmt.Fprintf(out, "Saved today:  $%.2f\n", savedToday)
	fmt.Fprintf(out, "Saved total:  $%.2f\n", stats.SavedTotal)
	fmt.Fprintf(out, "Streak:       %d day(s)\n", stats.Streak)

	goals, err := store.GetGoals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load goals: %w", err)
	}
	if len(goals) > 0 {
		fmt.Fprintln(out, "\nGoals:")
		for i := range goals {
			printGoal(out, &goals[i])
		}
	}

	items, err := store.GetCoolingOffItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cooling-off items: %w", err)
	}
	if len(items) > 0 {
		fmt.Fprintln(out, "\nCooling off:")
		for i := range items {
			item := &items[i]
			fmt.Fprintf(out, "  %s ($%.2f), review after %s\n",
				item.Product.Name, item.Product.Price,
				item.ReviewAfter.Local().Format("Jan 02 15:04"))
		}
	}
	return nil
}

func printGoal(out io.Writer, goal *model.FinancialGoal) {
	pct := 0.0
	if goal.TargetAmount > 0 {
		pct = goal.SavedAmount / goal.TargetAmount * 100
	}
	fmt.Fprintf(out, "  %s: $%.2f of $%.2f (%.0f%%)\n",
		goal.Name, goal.SavedAmount, goal.TargetAmount, pct)
}
