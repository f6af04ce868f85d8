package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"blogdex/internal/app"
	"blogdex/internal/blog"
	"blogdex/internal/config"
	"blogdex/internal/query"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readConfig loads the config file and applies global flag overrides.
func readConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// configPath returns the --config flag, or the default config location.
func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", fmt.Errorf("getting defaults: %w", err)
	}
	return defaults.ConfigPath, nil
}

// newApp reads the config and creates a BlogApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "List", "PushSnapshot").
func newApp(cmd *cobra.Command, operation string) (*app.BlogApp, error) {
	cfg, err := readConfig(cmd)
	if err != nil {
		return nil, err
	}

	a, err := app.NewBlogApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "blogdex",
	Short:        "Content index and query engine for a blog",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		path, err := configPath(cmd)
		if err != nil {
			return err
		}

		siteID := uuid.New().String()
		cfg := config.NewConfig(siteID, defaults.BaseDir)
		cfg.ContentDir = defaults.ContentDir

		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Site ID:     %s\n", siteID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Content Dir: %s\n", cfg.ContentDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}

		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Site ID:     %s\n", cfg.SiteID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Content Dir: %s\n", cfg.ContentDir)
		fmt.Printf("Timezone:    %s\n", cfg.Timezone)
		fmt.Printf("Database:    %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:       %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

// get command
var getCmd = &cobra.Command{
	Use:   "get PATH",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Get")
		if err != nil {
			return err
		}
		defer a.Close()

		e, err := a.Get(cmd.Context(), args[0])
		if err != nil {
			return notFound(args[0], err)
		}

		d := e.Document
		fmt.Printf("Path:      %s\n", d.Path)
		fmt.Printf("Title:     %s\n", d.Title)
		if d.PublishedAt != nil {
			fmt.Printf("Published: %s\n", d.PublishedAt.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("Published: no")
		}
		if d.IsPage {
			fmt.Println("Page:      yes")
		}
		if e.Author != nil {
			fmt.Printf("Author:    %s\n", e.Author.Name)
		}
		crumbs := make([]string, len(e.Breadcrumbs))
		for i, b := range e.Breadcrumbs {
			crumbs[i] = b.Name
		}
		fmt.Printf("Trail:     %s\n", strings.Join(crumbs, " > "))
		if len(e.Tags) > 0 {
			names := make([]string, len(e.Tags))
			for i, t := range e.Tags {
				names[i] = t.Name
			}
			fmt.Printf("Tags:      %s\n", strings.Join(names, ", "))
		}
		if d.ParseError != "" {
			fmt.Printf("Error:     %s\n", d.ParseError)
		}
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List published posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "List")
		if err != nil {
			return err
		}
		defer a.Close()

		spec, err := a.Spec(listOptions(cmd))
		if err != nil {
			return err
		}
		return printListing(cmd, a, spec)
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search TEXT",
	Short: "Full-text search over published posts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Search")
		if err != nil {
			return err
		}
		defer a.Close()

		opts := listOptions(cmd)
		opts.Search = strings.Join(args, " ")
		spec, err := a.Spec(opts)
		if err != nil {
			return err
		}
		return printListing(cmd, a, spec)
	},
}

func listOptions(cmd *cobra.Command) app.ListOptions {
	f := cmd.Flags()
	var opts app.ListOptions
	opts.Categories, _ = f.GetStringSlice("category")
	opts.Tag, _ = f.GetString("tag")
	opts.Author, _ = f.GetString("author")
	opts.Posts, _ = f.GetStringSlice("post")
	opts.Year, _ = f.GetInt("year")
	opts.Month, _ = f.GetInt("month")
	opts.Day, _ = f.GetInt("day")
	opts.IncludePages, _ = f.GetBool("include-pages")
	opts.FeaturedFirst, _ = f.GetBool("featured-first")
	return opts
}

func printListing(cmd *cobra.Command, a *app.BlogApp, spec query.Spec) error {
	f := cmd.Flags()
	if count, _ := f.GetBool("count"); count {
		n, err := a.Count(cmd.Context(), spec)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	}

	var page query.Page
	page.Offset, _ = f.GetInt("offset")
	page.Limit, _ = f.GetInt("limit")

	l, err := a.List(cmd.Context(), spec, page)
	if err != nil {
		return err
	}
	if len(l.Rows) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	for _, r := range l.Rows {
		published := "          "
		if r.Document.PublishedAt != nil {
			published = r.Document.PublishedAt.Format("2006-01-02")
		}
		fmt.Printf("%s  %-40s  %s\n", published, r.Document.Path, r.Document.Title)
		if r.Snippet != "" {
			fmt.Printf("            %s\n", r.Snippet)
		}
	}
	fmt.Printf("\n%d of %d document(s)\n", len(l.Rows), l.Total)
	return nil
}

// similar command
var similarCmd = &cobra.Command{
	Use:   "similar [PATH]",
	Short: "Posts sharing tags with a document or a weighted tag set",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		rawTags, _ := cmd.Flags().GetStringSlice("tag")
		if (len(args) == 0) == (len(rawTags) == 0) {
			return fmt.Errorf("give either a PATH or --tag, not both")
		}

		a, err := newApp(cmd, "Similar")
		if err != nil {
			return err
		}
		defer a.Close()

		var matches []blog.Match
		if len(args) == 1 {
			matches, err = a.Similar(cmd.Context(), args[0], limit)
			if err != nil {
				return notFound(args[0], err)
			}
		} else {
			weights, err := parseWeights(rawTags)
			if err != nil {
				return err
			}
			matches, err = a.SimilarTo(cmd.Context(), weights, limit)
			if err != nil {
				return err
			}
		}

		if len(matches) == 0 {
			fmt.Println("No similar posts.")
			return nil
		}
		for _, m := range matches {
			fmt.Printf("%6.3f  %-40s  %s\n", m.Score, m.Document.Path, m.Document.Title)
		}
		return nil
	},
}

// parseWeights reads "key=weight" pairs. A bare key weighs 1.
func parseWeights(raw []string) (map[string]float64, error) {
	weights := make(map[string]float64, len(raw))
	for _, r := range raw {
		key, value, found := strings.Cut(r, "=")
		w := 1.0
		if found {
			var err error
			w, err = strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("bad weight for tag %q: %w", key, err)
			}
		}
		weights[key] += w
	}
	return weights, nil
}

// neighbors command
var neighborsCmd = &cobra.Command{
	Use:   "neighbors PATH",
	Short: "Show the previous and next post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Neighbors")
		if err != nil {
			return err
		}
		defer a.Close()

		spec, err := a.Spec(listOptions(cmd))
		if err != nil {
			return err
		}
		n, err := a.Neighbors(cmd.Context(), args[0], spec)
		if err != nil {
			return notFound(args[0], err)
		}

		if n.Previous != nil {
			fmt.Printf("Previous: %s  %s\n", n.Previous.Path, n.Previous.Title)
		}
		if n.Next != nil {
			fmt.Printf("Next:     %s  %s\n", n.Next.Path, n.Next.Title)
		}
		return nil
	},
}

// categories command
var categoriesCmd = &cobra.Command{
	Use:   "categories [PARENT]",
	Short: "List categories with post counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "Categories")
		if err != nil {
			return err
		}
		defer a.Close()

		parent := ""
		if len(args) == 1 {
			parent = args[0]
		}
		counts, err := a.Categories(cmd.Context(), parent, limit)
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Println("No categories.")
			return nil
		}
		for _, c := range counts {
			fmt.Printf("%5d  %-30s  %s\n", c.Count, c.Path, c.Name)
			for _, s := range c.Subs {
				fmt.Printf("%5d    %-28s  %s\n", s.Count, s.Path, s.Name)
			}
		}
		return nil
	},
}

// tags command
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Show the tag cloud",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "Tags")
		if err != nil {
			return err
		}
		defer a.Close()

		tags, err := a.Tags(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Println("No tags.")
			return nil
		}
		for _, t := range tags {
			fmt.Printf("%d  %5d  %-30s  %s\n", t.Rank, t.Count, t.Key, t.Name)
		}
		return nil
	},
}

// authors command
var authorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "List authors with post counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "Authors")
		if err != nil {
			return err
		}
		defer a.Close()

		authors, err := a.Authors(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(authors) == 0 {
			fmt.Println("No authors.")
			return nil
		}
		for _, au := range authors {
			fmt.Printf("%5d  %-30s  %s  latest %s\n", au.Count, au.Key, au.Name, au.Latest.Format("2006-01-02"))
		}
		return nil
	},
}

// archives command
var archivesCmd = &cobra.Command{
	Use:   "archives [YEAR]",
	Short: "Show post counts by year, or by month within a year",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Archives")
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 0 {
			years, err := a.ArchiveYears(cmd.Context())
			if err != nil {
				return err
			}
			for _, y := range years {
				fmt.Printf("%d  %5d\n", y.Year, y.Count)
			}
			return nil
		}

		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad year %q: %w", args[0], err)
		}
		months, err := a.ArchiveCalendar(cmd.Context(), year)
		if err != nil {
			return err
		}
		for _, m := range months {
			fmt.Printf("%-10s  %5d\n", m.Label, m.Count)
		}
		return nil
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Push or pull index snapshots",
}

var snapshotPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the index to the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "PushSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		version, err := a.PushSnapshot()
		if err != nil {
			return fmt.Errorf("snapshot push failed: %w", err)
		}
		fmt.Printf("Pushed snapshot version %d\n", version)
		return nil
	},
}

var snapshotPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local index with the vault snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(cmd)
		if err != nil {
			return err
		}

		version, err := app.PullSnapshot(cfg)
		if err != nil {
			return fmt.Errorf("snapshot pull failed: %w", err)
		}
		if version == 0 {
			fmt.Println("Vault holds no snapshot for this site.")
			return nil
		}
		fmt.Printf("Pulled snapshot version %d\n", version)
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index current while content changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Watch(ctx)
	},
}

func notFound(path string, err error) error {
	if errors.Is(err, blog.ErrNotFound) {
		return fmt.Errorf("no document at %s", path)
	}
	return err
}

func addListFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceP("category", "c", nil, "Restrict to a category (up to two)")
	f.StringP("tag", "t", "", "Restrict to a tag")
	f.StringP("author", "a", "", "Restrict to an author")
	f.StringSlice("post", nil, "Restrict to the given paths")
	f.Int("year", 0, "Restrict to a year")
	f.Int("month", 0, "Restrict to a month of --year")
	f.Int("day", 0, "Restrict to a day of --month")
	f.Bool("include-pages", false, "List pages alongside posts")
	f.Bool("featured-first", false, "Put featured posts first")
}

func addPageFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("count", false, "Print only the number of matching documents")
	f.Int("offset", 0, "Skip this many documents")
	f.IntP("limit", "n", 20, "Maximum number of documents to show (0 for all)")
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default $BLOGDEX_CONFIG_PATH or ~/.config/blogdex.toml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// snapshot subcommands
	snapshotCmd.AddCommand(snapshotPushCmd)
	snapshotCmd.AddCommand(snapshotPullCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	addListFlags(listCmd)
	addPageFlags(listCmd)
	rootCmd.AddCommand(searchCmd)
	addListFlags(searchCmd)
	addPageFlags(searchCmd)
	rootCmd.AddCommand(similarCmd)
	similarCmd.Flags().StringSlice("tag", nil, "Weighted tag as key=weight (repeatable)")
	similarCmd.Flags().IntP("limit", "n", 10, "Maximum number of posts to show (0 for all)")
	rootCmd.AddCommand(neighborsCmd)
	addListFlags(neighborsCmd)
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.Flags().IntP("limit", "n", -1, "Maximum number of categories to show (-1 for all)")
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.Flags().IntP("limit", "n", 0, "Maximum number of tags to show (0 for all)")
	rootCmd.AddCommand(authorsCmd)
	authorsCmd.Flags().IntP("limit", "n", 0, "Maximum number of authors to show (0 for all)")
	rootCmd.AddCommand(archivesCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(watchCmd)
}
