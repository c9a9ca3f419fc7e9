package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Zachkp/portfolio/internal/storage"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(22)
	valueStyle   = lipgloss.NewStyle().Bold(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("12")).Padding(0, 1)
)

var statsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print visitor, message and theme statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := storage.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats, statsLimit))
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVarP(&statsLimit, "recent", "n", 5, "Number of recent visits to list")
}

func row(label string, value any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(fmt.Sprint(value)))
}

func renderStats(s *storage.Stats, recent int) string {
	visitors := lipgloss.JoinVertical(lipgloss.Left,
		headingStyle.Render("Visitors"),
		row("Total", s.TotalVisitors),
		row("Unique", s.UniqueVisitors),
		row("Today", s.VisitorsToday),
		row("This week", s.VisitorsThisWeek),
	)
	messages := lipgloss.JoinVertical(lipgloss.Left,
		headingStyle.Render("Messages"),
		row("Received", s.Messages.Total),
		row("Delivered", s.Messages.Delivered),
		row("Failed", s.Messages.Failed),
	)
	themes := lipgloss.JoinVertical(lipgloss.Left,
		headingStyle.Render("Theme"),
		row("Explicit light", s.Theme.ExplicitLight),
		row("Explicit dark", s.Theme.ExplicitDark),
		row("Following system", s.Theme.FollowSystem),
	)

	lines := []string{headingStyle.Render("Recent visits")}
	for i, v := range s.RecentVisitors {
		if i >= recent {
			break
		}
		lines = append(lines, row(v.Timestamp.Format("2006-01-02 15:04"), v.Path))
	}
	if len(lines) == 1 {
		lines = append(lines, labelStyle.Render("none"))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		boxStyle.Render(visitors),
		boxStyle.Render(messages),
		boxStyle.Render(themes),
		boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)),
	)
}
