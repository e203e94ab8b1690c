package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/service"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded purchase prompts and their outcomes",
		RunE:  runHistory,
	}
	cmd.Flags().Int("limit", 25, "maximum events to show")
	cmd.Flags().String("outcome", "", "filter by outcome (pending, bought, saved, cooled_off)")
	cmd.Flags().String("site", "", "filter by site hostname")
	cmd.Flags().Duration("since", 0, "only events newer than this age, e.g. 168h")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	filter := service.EventFilter{}
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	filter.Site, _ = cmd.Flags().GetString("site")

	if raw, _ := cmd.Flags().GetString("outcome"); raw != "" {
		outcome := model.Outcome(raw)
		if !outcome.Valid() {
			return fmt.Errorf("invalid outcome %q", raw)
		}
		filter.Outcome = outcome
	}
	if age, _ := cmd.Flags().GetDuration("since"); age > 0 {
		since := time.Now().Add(-age)
		filter.Since = &since
	}

	events, err := store.GetPurchaseEvents(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(events) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No purchase prompts recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tSITE\tPRODUCT\tPRICE\tRISK\tOUTCOME")
	for i := range events {
		e := &events[i]
		price := "-"
		if e.Product.Price > 0 {
			price = fmt.Sprintf("$%.2f", e.Product.Price)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("Jan 02 15:04"),
			e.Site, e.Product.Name, price, e.RiskLevel, e.Outcome)
	}
	return w.Flush()
}
