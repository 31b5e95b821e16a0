package main

import (
	"fmt"
	"os"
	"time"

	"focuslog/internal/models"

	"github.com/spf13/cobra"
)

var (
	reportJSON bool
	exportFrom string
	exportTo   string
	exportOut  string
)

var reportCmd = &cobra.Command{
	Use:       "report [day|week|month]",
	Short:     "Generate a time report",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"day", "week", "month"},
	RunE: func(cmd *cobra.Command, args []string) error {
		periodType := "day"
		if len(args) > 0 {
			periodType = args[0]
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.reporter.GenerateReport(periodType)
		if err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}

		if reportJSON {
			out, err := a.reporter.FormatReportJSON(report)
			if err != nil {
				return fmt.Errorf("failed to format JSON: %w", err)
			}
			fmt.Println(out)
			return nil
		}
		fmt.Println(a.reporter.FormatReportText(report))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export time per date and category as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, d := range []string{exportFrom, exportTo} {
			if d == "" {
				continue
			}
			if _, err := time.Parse(models.DateLayout, d); err != nil {
				return fmt.Errorf("invalid date %q, want YYYY-MM-DD", d)
			}
		}
		if exportFrom != "" && exportTo != "" && exportFrom > exportTo {
			return fmt.Errorf("--from must not be after --to")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		filter := models.ActivityFilter{From: exportFrom, To: exportTo}
		if exportOut == "" || exportOut == "-" {
			_, err := a.reporter.ExportCSV(os.Stdout, filter)
			return err
		}

		n, err := a.reporter.ExportFile(exportOut, filter)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d rows to %s\n", n, exportOut)
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect archived months",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived periods",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		periods, err := a.repo.ArchivedPeriods()
		if err != nil {
			return err
		}
		if len(periods) == 0 {
			fmt.Println("No archived periods yet")
			return nil
		}
		for _, p := range periods {
			path, _ := a.reporter.MonthlyReportPath(p)
			fmt.Printf("%s  %s\n", p, path)
		}
		return nil
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <YYYY-MM>",
	Short: "Show the category summary of an archived period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		period := args[0]
		if _, err := time.Parse(models.PeriodLayout, period); err != nil {
			return fmt.Errorf("invalid period %q, want YYYY-MM", period)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.repo.MonthlySummaries(period)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Printf("No summary for %s\n", period)
			return nil
		}

		fmt.Printf("%-20s %12s %10s\n", "Category", "Minutes", "Percent")
		fmt.Println("──────────────────────────────────────────────")
		for _, s := range summaries {
			fmt.Printf("%-20s %12.2f %10s\n", s.Category, s.TotalMinutes, models.FormatPercent(s.Percent))
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the report as JSON")

	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first date, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "last date, YYYY-MM-DD")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")

	archiveCmd.AddCommand(archiveListCmd, archiveShowCmd)
	rootCmd.AddCommand(reportCmd, exportCmd, archiveCmd)
}
