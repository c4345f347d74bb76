package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JoshuaRamirez/ACS-sub017/internal/supervisor"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "List tenant workers on a running router",
	Long:  `Queries the router's admin endpoint and prints the state of every tenant worker.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := cfg.ServerURL + "/admin/workers"
		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to reach router at %s: %w", cfg.ServerURL, err)
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("router returned %s", res.Status)
		}

		var payload struct {
			Workers []supervisor.Handle `json:"workers"`
		}
		if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		if len(payload.Workers) == 0 {
			fmt.Println("No tenant workers running")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TENANT\tSTATE\tPID\tENDPOINT\tUPTIME\tRESTARTS")
		for _, h := range payload.Workers {
			uptime := "-"
			if !h.StartedAt.IsZero() {
				uptime = time.Since(h.StartedAt).Round(time.Second).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\n",
				h.TenantID, h.State, h.PID, h.Endpoint, uptime, h.Restarts)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tenantsCmd)
}
