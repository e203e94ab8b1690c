package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pausewise/pausewise/internal/detect"
	"github.com/pausewise/pausewise/internal/extract"
	"github.com/pausewise/pausewise/internal/page"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <snapshot.html>",
		Short: "Score a page snapshot for checkout intent",
		Long: `Analyzes a saved HTML snapshot offline: runs the same multi-signal
confidence scoring and product extraction the live detector uses and prints
the breakdown. Useful for tuning detection against real checkout pages.`,
		Args: cobra.ExactArgs(1),
		RunE: runDetect,
	}
	cmd.Flags().String("url", "", "page URL the snapshot was taken from")
	return cmd
}

func runDetect(cmd *cobra.Command, args []string) error {
	pageURL, _ := cmd.Flags().GetString("url")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := page.ParseHTML(pageURL, f)
	if err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	breakdown := detect.ScoreBreakdown(doc)
	total := breakdown.Total()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "URL signals:    %d/%d\n", breakdown.URL, detect.URLScoreMax)
	fmt.Fprintf(out, "Button signals: %d/%d\n", breakdown.Button, detect.ButtonScoreMax)
	fmt.Fprintf(out, "DOM signals:    %d/%d\n", breakdown.DOM, detect.DOMScoreMax)
	fmt.Fprintf(out, "Confidence:     %d/100\n", total)

	switch {
	case total >= detect.AutoTriggerThreshold:
		fmt.Fprintln(out, "Verdict:        would trigger automatically")
	case total > 0:
		fmt.Fprintln(out, "Verdict:        signals present, below auto-trigger threshold")
	default:
		fmt.Fprintln(out, "Verdict:        no purchase signals")
	}

	buttons := 0
	for _, e := range doc.Elements {
		if detect.IsPurchaseButton(e) {
			buttons++
		}
	}
	fmt.Fprintf(out, "Purchase buttons: %d\n", buttons)

	product := extract.Extract(doc)
	fmt.Fprintf(out, "Product:        %s\n", product.Name)
	if product.Price > 0 {
		fmt.Fprintf(out, "Price:          $%.2f\n", product.Price)
	}
	return nil
}
