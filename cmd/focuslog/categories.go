package main

import (
	"fmt"
	"strings"

	"focuslog/internal/category"
	"focuslog/internal/daemon"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"category"},
	Short:   "List or edit program categories",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List programs and their categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.repo.ListCategoryEntries()
		if err != nil {
			return err
		}
		names, err := a.repo.Categories()
		if err != nil {
			return err
		}

		fmt.Printf("Categories: %s\n\n", strings.Join(names, ", "))
		if len(entries) == 0 {
			fmt.Println("No programs categorized yet")
			return nil
		}
		fmt.Printf("%-30s %s\n", "Program", "Category")
		fmt.Println("──────────────────────────────────────────────")
		for _, e := range entries {
			fmt.Printf("%-30s %s\n", e.Program, e.Category)
		}
		return nil
	},
}

var categoriesSetCmd = &cobra.Command{
	Use:   "set <program> <category>",
	Short: "Set a program's category and rewrite its history",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		resolver, err := category.NewResolver(a.repo, category.Options{Default: a.cfg.Categories.Default})
		if err != nil {
			return err
		}

		program := args[0]
		updated, err := resolver.SetCategory(program, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("%s -> %s (%d records updated)\n", program, resolver.CategoryFor(program), updated)

		if running, pid, _ := daemon.New(a.cfg.Daemon.PIDFile).IsRunning(); running {
			fmt.Printf("Note: the running tracker (PID: %d) applies this to new records after a restart\n", pid)
		}
		return nil
	},
}

func init() {
	categoriesCmd.AddCommand(categoriesListCmd, categoriesSetCmd)
	rootCmd.AddCommand(categoriesCmd)
}
