package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/feedboard/internal/store"
)

// categoryCmd groups the category subcommands.
var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage feed categories",
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories and their feeds",
	Args:  cobra.NoArgs,
	RunE:  runCategoryList,
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create an empty category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoryAdd,
}

var categoryRenameCmd = &cobra.Command{
	Use:   "rename <name> <new-name>",
	Short: "Rename a category",
	Args:  cobra.ExactArgs(2),
	RunE:  runCategoryRename,
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a category, keeping its feeds uncategorized",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoryDelete,
}

var categorySetCmd = &cobra.Command{
	Use:   "set <url> [name]",
	Short: "Move a feed into a category, or out of its category without a name",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCategorySet,
}

func init() {
	categoryCmd.AddCommand(categoryListCmd, categoryAddCmd, categoryRenameCmd, categoryDeleteCmd, categorySetCmd)
	rootCmd.AddCommand(categoryCmd)
}

// editCategories loads the store, applies fn and saves the result.
func editCategories(cmd *cobra.Command, fn func(*store.MemoryStore) (string, error)) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, file, err := openStore(cfg)
	if err != nil {
		return err
	}
	msg, err := fn(s)
	if err != nil {
		return err
	}
	if err := saveStore(s, file); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func findCategory(snap *store.Snapshot, name string) (store.Category, error) {
	name = strings.TrimSpace(name)
	for _, c := range snap.Categories() {
		if c.Name == name {
			return c, nil
		}
	}
	return store.Category{}, fmt.Errorf("%w: %s", store.ErrCategoryNotFound, name)
}

func runCategoryList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	snap := s.Snapshot()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	cats := snap.Categories()
	if len(cats) == 0 {
		fmt.Fprintln(w, "No categories.")
		return nil
	}
	fmt.Fprintln(w, "CATEGORY\tFEEDS")
	for _, c := range cats {
		feeds := snap.FeedsInCategory(c.Name)
		titles := make([]string, len(feeds))
		for i, f := range feeds {
			titles[i] = f.DisplayTitle()
		}
		fmt.Fprintf(w, "%s\t%s\n", c.Name, strings.Join(titles, ", "))
	}
	return nil
}

func runCategoryAdd(cmd *cobra.Command, args []string) error {
	return editCategories(cmd, func(s *store.MemoryStore) (string, error) {
		c, err := s.CreateCategory(args[0])
		if err != nil {
			return "", err
		}
		return "Created " + c.Name, nil
	})
}

func runCategoryRename(cmd *cobra.Command, args []string) error {
	return editCategories(cmd, func(s *store.MemoryStore) (string, error) {
		c, err := findCategory(s.Snapshot(), args[0])
		if err != nil {
			return "", err
		}
		if err := s.RenameCategory(c.ID, args[1]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Renamed %s to %s", c.Name, strings.TrimSpace(args[1])), nil
	})
}

func runCategoryDelete(cmd *cobra.Command, args []string) error {
	return editCategories(cmd, func(s *store.MemoryStore) (string, error) {
		c, err := findCategory(s.Snapshot(), args[0])
		if err != nil {
			return "", err
		}
		if err := s.DeleteCategory(c.ID); err != nil {
			return "", err
		}
		return "Deleted " + c.Name, nil
	})
}

func runCategorySet(cmd *cobra.Command, args []string) error {
	return editCategories(cmd, func(s *store.MemoryStore) (string, error) {
		f, ok := findFeed(s.Snapshot(), args[0])
		if !ok {
			return "", fmt.Errorf("not subscribed to %s", args[0])
		}
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		if err := s.SetFeedCategory(f.ID, name); err != nil {
			return "", err
		}
		if strings.TrimSpace(name) == "" {
			return "Uncategorized " + f.DisplayTitle(), nil
		}
		return fmt.Sprintf("Moved %s to %s", f.DisplayTitle(), strings.TrimSpace(name)), nil
	})
}
