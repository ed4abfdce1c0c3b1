package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show moderation dashboard totals",
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

		stats, err := db.GetAdminStats(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Users:            %s\n", humanize.Comma(stats.TotalUsers))
		fmt.Fprintf(out, "Articles:         %s\n", humanize.Comma(stats.TotalArticles))
		fmt.Fprintf(out, "Pending reports:  %s\n", humanize.Comma(stats.PendingReports))
		fmt.Fprintf(out, "Pending comments: %s\n", humanize.Comma(stats.PendingComments))
		return nil
	},
}
