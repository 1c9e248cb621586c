package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vinflow/internal/ipc"
	"vinflow/internal/stages"
)

func newAlertsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List units that are overdue or aging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Alerts()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Alerts)
				}
				if len(resp.Alerts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No units need attention")
					return nil
				}
				rows := make([][]string, 0, len(resp.Alerts))
				for _, alert := range resp.Alerts {
					reason := "aging"
					if alert.Overdue {
						reason = "overdue"
					}
					rows = append(rows, []string{
						alert.Unit.StockNumber,
						alert.Unit.DisplayName,
						alert.Unit.StageName,
						formatDays(alert.TotalDays),
						formatMoney(alert.HoldingCost),
						reason,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]tableColumn{col("Stock #"), col("Unit"), col("Stage"), numCol("Days"), numCol("Holding"), col("Reason")},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newTierCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tier <cost>",
		Short: "Show the approval bracket for a repair cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cost, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid cost %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Tier(cost)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %s\n", formatMoney(cost), resp.Tier.Label)
				if resp.Tier.AutoApproved {
					fmt.Fprintln(out, "No sign-off required")
				} else {
					fmt.Fprintf(out, "Approvers: %s\n", strings.Join(resp.Tier.Approvers, ", "))
				}
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-stage occupancy counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stats()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Counts)
				}
				rows := make([][]string, 0, len(resp.Counts))
				total := 0
				for _, def := range stages.Ordered() {
					n := resp.Counts[string(def.ID)]
					total += n
					rows = append(rows, []string{def.Name, strconv.Itoa(n)})
				}
				rows = append(rows, []string{"Total", strconv.Itoa(total)})
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]tableColumn{col("Stage"), numCol("Units")},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var since uint64

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream ledger change events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				cursor := since
				for {
					resp, err := client.Events(ipc.EventsRequest{
						Since: cursor,
						Limit: 100,
						Wait:  true,
					})
					if err != nil {
						return err
					}
					if cursor > 0 && resp.FirstSequence > cursor+1 {
						fmt.Fprintln(out, "(event history dropped; resync with `vinflow unit list`)")
					}
					for _, evt := range resp.Events {
						line := fmt.Sprintf("%s %s %s",
							evt.Timestamp.Local().Format("15:04:05"), evt.Kind, evt.StockNumber)
						if evt.FromStage != "" || evt.ToStage != "" {
							line += fmt.Sprintf(" %s -> %s", evt.FromStage, evt.ToStage)
						}
						if evt.Detail != "" {
							line += "  " + evt.Detail
						}
						fmt.Fprintln(out, line)
					}
					cursor = resp.NextSince
				}
			})
		},
	}

	cmd.Flags().Uint64Var(&since, "since", 0, "Start after this event sequence")
	return cmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check ledger database health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DatabaseHealth()
				if err != nil {
					return err
				}
				h := resp.Health
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database:   %s\n", h.DBPath)
				fmt.Fprintf(out, "Exists:     %s\n", yesNo(h.DatabaseExists))
				fmt.Fprintf(out, "Readable:   %s\n", yesNo(h.DatabaseReadable))
				fmt.Fprintf(out, "Tables:     %s\n", yesNo(h.TablesPresent))
				if len(h.MissingTables) > 0 {
					fmt.Fprintf(out, "Missing:    %s\n", strings.Join(h.MissingTables, ", "))
				}
				if h.IntegrityCheck != "" {
					fmt.Fprintf(out, "Integrity:  %s\n", h.IntegrityCheck)
				}
				fmt.Fprintf(out, "Units:      %d (%d open entries)\n", h.TotalUnits, h.OpenEntries)
				if h.Error != "" {
					return fmt.Errorf("health check error: %s", h.Error)
				}
				return nil
			})
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.TestNotification(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				return nil
			})
		},
	}
}
