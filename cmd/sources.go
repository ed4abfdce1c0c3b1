package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/YashasveeWankhade/NewsApp/internal/opml"
	"github.com/YashasveeWankhade/NewsApp/internal/rss"
)

var (
	flagAutoPublish bool
	flagOutput      string
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage news sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		sources, err := db.GetSources(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, src := range sources {
			fetched := "never"
			if !src.LastFetched.IsZero() {
				fetched = humanize.Time(src.LastFetched)
			}
			fmt.Fprintf(out, "%4d  %-30s  %-12s  fetched %s\n", src.ID, src.Name, src.DefaultCategory, fetched)
			if src.LastError != "" {
				fmt.Fprintf(out, "      error: %s\n", src.LastError)
			}
		}
		return nil
	},
}

var sourcesImportCmd = &cobra.Command{
	Use:   "import <file.opml>",
	Short: "Import sources from an OPML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		entries, err := opml.Parse(f)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := opml.Import(cmd.Context(), db, entries, flagAutoPublish || cfg.Ingest.AutoPublish)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %s of %s sources (%s already present)\n",
			humanize.Comma(int64(res.Added)), humanize.Comma(int64(len(entries))), humanize.Comma(int64(res.Skipped)))
		return nil
	},
}

var sourcesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sources as OPML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		sources, err := db.GetSources(cmd.Context())
		if err != nil {
			return err
		}
		data, err := opml.Export("NewsApp Sources", sources)
		if err != nil {
			return err
		}
		if flagOutput == "" || flagOutput == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		return os.WriteFile(flagOutput, data, 0o644)
	},
}

var sourcesFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every feed source once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		fetcher := rss.NewFetcher(db, rss.Options{
			AutoPublish: cfg.Ingest.AutoPublish,
			Timeout:     cfg.IngestTimeout(),
		}, cliLogger(cfg))

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()
		results, err := fetcher.FetchAll(ctx)
		if err != nil {
			return err
		}
		total := 0
		for _, n := range results {
			total += n
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s new articles from %s sources\n",
			humanize.Comma(int64(total)), humanize.Comma(int64(len(results))))
		return nil
	},
}

func init() {
	sourcesImportCmd.Flags().BoolVar(&flagAutoPublish, "auto-publish", false, "publish articles from imported sources without review")
	sourcesExportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write to file instead of stdout")

	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesImportCmd)
	sourcesCmd.AddCommand(sourcesExportCmd)
	sourcesCmd.AddCommand(sourcesFetchCmd)
}
