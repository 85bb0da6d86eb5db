package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/feedboard/internal/store"
)

// addCmd subscribes a feed without opening the reader.
var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Subscribe to a feed",
	Long: `Subscribe to an RSS or Atom feed. The feed is fetched the next time the
reader opens.

Example:
  feedboard add https://go.dev/blog/feed.atom --category Go`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

// removeCmd unsubscribes a feed and deletes its items.
var removeCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Unsubscribe from a feed",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

// listCmd prints the subscriptions, or the bookmarked items.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribed feeds",
	Long: `List subscribed feeds with their unread counts and last fetch errors.

With --bookmarks, list bookmarked items instead.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(addCmd, removeCmd, listCmd)

	addCmd.Flags().String("category", "", "category for the new feed")
	listCmd.Flags().Bool("bookmarks", false, "list bookmarked items")
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, file, err := openStore(cfg)
	if err != nil {
		return err
	}

	category, _ := cmd.Flags().GetString("category")
	url := strings.TrimSpace(args[0])
	if _, err := s.AddFeed(url, category); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateURL):
			return fmt.Errorf("already subscribed to %s", url)
		case errors.Is(err, store.ErrInvalidURL):
			return fmt.Errorf("not a valid feed URL: %w", err)
		}
		return err
	}
	if err := saveStore(s, file); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", url)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, file, err := openStore(cfg)
	if err != nil {
		return err
	}

	f, ok := findFeed(s.Snapshot(), args[0])
	if !ok {
		return fmt.Errorf("not subscribed to %s", args[0])
	}
	if err := s.RemoveFeed(f.ID); err != nil {
		return err
	}
	if err := saveStore(s, file); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", f.DisplayTitle())
	return nil
}

// findFeed looks a feed up by URL or ID.
func findFeed(snap *store.Snapshot, key string) (store.Feed, bool) {
	key = strings.TrimSpace(key)
	for _, f := range snap.Feeds() {
		if f.URL == key || string(f.ID) == key {
			return f, true
		}
	}
	return store.Feed{}, false
}

func runList(cmd *cobra.Command, args []string) error {
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

	if bookmarks, _ := cmd.Flags().GetBool("bookmarks"); bookmarks {
		items := snap.Bookmarks()
		if len(items) == 0 {
			fmt.Fprintln(w, "No bookmarks.")
			return nil
		}
		fmt.Fprintln(w, "TITLE\tFEED\tLINK")
		for _, it := range items {
			f, _ := snap.Feed(it.FeedID)
			fmt.Fprintf(w, "%s\t%s\t%s\n", it.Title, f.DisplayTitle(), it.Link)
		}
		return nil
	}

	feeds := snap.Feeds()
	if len(feeds) == 0 {
		fmt.Fprintln(w, "No feeds. Add one with: feedboard add <url>")
		return nil
	}
	fmt.Fprintln(w, "FEED\tCATEGORY\tUNREAD\tURL\tERROR")
	for _, f := range feeds {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			f.DisplayTitle(), f.Category, snap.UnreadCount(f.ID), f.URL, f.LastError)
	}
	return nil
}
