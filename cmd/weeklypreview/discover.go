package weeklypreview

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/a2a"
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [url...]",
	Short: "List reachable agents and their skills",
	RunE:  runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	urls := args
	if len(urls) == 0 {
		urls = append([]string{cfg.Agents.URL(cfg.Agents.OrchestratorPort)}, cfg.Agents.DiscoveryURLs()...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := a2a.NewClient(a2a.ClientConfig{Caller: "cli", Logger: logger, MaxRetries: -1})
	cards := client.DiscoverAgents(ctx, urls)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Discovered %d of %d agents", len(cards), len(urls))))
	for _, c := range cards {
		renderCard(out, c)
	}
	if len(cards) == 0 {
		return fmt.Errorf("no agents reachable at %s", strings.Join(urls, ", "))
	}
	return nil
}

func renderCard(w io.Writer, c a2a.AgentCard) {
	url, _ := a2a.AgentURL(c)
	fmt.Fprintf(w, "\n%s %s %s\n", mark(true), titleStyle.Render(c.Name), dimStyle.Render("v"+c.Version+"  "+url))
	fmt.Fprintf(w, "  %s\n", c.Description)
	for _, s := range c.Skills {
		fmt.Fprintf(w, "  %s %s %s\n", labelStyle.Render("•"), s.ID, dimStyle.Render("("+strings.Join(s.Tags, ", ")+")"))
	}
}
