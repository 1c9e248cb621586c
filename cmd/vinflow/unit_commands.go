package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vinflow/internal/api"
	"vinflow/internal/ipc"
)

func newUnitCommand(ctx *commandContext) *cobra.Command {
	unitCmd := &cobra.Command{
		Use:   "unit",
		Short: "Manage units in the reconditioning pipeline",
	}

	unitCmd.AddCommand(newUnitAddCommand(ctx))
	unitCmd.AddCommand(newUnitListCommand(ctx))
	unitCmd.AddCommand(newUnitShowCommand(ctx))
	unitCmd.AddCommand(newUnitMoveCommand(ctx))
	unitCmd.AddCommand(newUnitAdvanceCommand(ctx))
	unitCmd.AddCommand(newUnitPriorityCommand(ctx))
	unitCmd.AddCommand(newUnitNoteCommand(ctx))
	unitCmd.AddCommand(newUnitPartsHoldCommand(ctx))
	unitCmd.AddCommand(newUnitCostCommand(ctx))
	unitCmd.AddCommand(newUnitHistoryCommand(ctx))

	return unitCmd
}

// resolveUnit looks a unit up by stock number first and falls back to
// treating the argument as a unit id.
func resolveUnit(client *ipc.Client, ref string) (*api.UnitDetail, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("unit reference is required")
	}
	resp, err := client.UnitDescribe(ipc.UnitDescribeRequest{StockNumber: ref})
	if err == nil {
		return &resp.Detail, nil
	}
	resp, idErr := client.UnitDescribe(ipc.UnitDescribeRequest{ID: ref})
	if idErr != nil {
		return nil, err
	}
	return &resp.Detail, nil
}

func newUnitAddCommand(ctx *commandContext) *cobra.Command {
	var (
		vin      string
		year     int
		makeName string
		model    string
		grade    string
		location string
		cost     float64
		vendors  []string
		note     string
	)

	cmd := &cobra.Command{
		Use:   "add <stock-number>",
		Short: "Register a new unit and open its appraisal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.UnitCreate(ipc.UnitCreateRequest{
					Actor:           actor,
					StockNumber:     args[0],
					VIN:             vin,
					Year:            year,
					Make:            makeName,
					Model:           model,
					Grade:           grade,
					ServiceLocation: location,
					EstimatedCost:   cost,
					Vendors:         vendors,
					Note:            note,
				})
				if err != nil {
					return err
				}
				unit := resp.Unit
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) in %s\n",
					unit.StockNumber, unit.DisplayName, unit.StageName)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&vin, "vin", "", "Vehicle identification number")
	cmd.Flags().IntVar(&year, "year", 0, "Model year")
	cmd.Flags().StringVar(&makeName, "make", "", "Manufacturer")
	cmd.Flags().StringVar(&model, "model", "", "Model")
	cmd.Flags().StringVar(&grade, "grade", "", "Condition grade (clean, average, rough)")
	cmd.Flags().StringVar(&location, "location", "", "Service location")
	cmd.Flags().Float64Var(&cost, "cost", 0, "Estimated repair cost")
	cmd.Flags().StringArrayVar(&vendors, "vendor", nil, "Vendor dependency (repeatable)")
	cmd.Flags().StringVar(&note, "note", "", "Initial note")
	return cmd
}

func newUnitListCommand(ctx *commandContext) *cobra.Command {
	var stageFilter string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List units, optionally filtered by stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.UnitList(ipc.UnitListRequest{Stage: stageFilter})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Units)
				}
				if len(resp.Units) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No units found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Units))
				for _, unit := range resp.Units {
					rows = append(rows, unitRow(unit))
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]tableColumn{col("Stock #"), col("Unit"), col("Stage"), numCol("Cost"), col("Vendors")},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stageFilter, "stage", "", "Only units currently in this stage")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newUnitShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <stock-number>",
		Short: "Show a unit with its ledger history and metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				detail, err := resolveUnit(client, args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, detail)
				}
				renderUnitDetail(cmd, detail)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}

func renderUnitDetail(cmd *cobra.Command, detail *api.UnitDetail) {
	out := cmd.OutOrStdout()
	unit := detail.Unit
	m := detail.Metrics

	fmt.Fprintf(out, "%s  %s\n", unit.StockNumber, unit.DisplayName)
	if unit.VIN != "" {
		fmt.Fprintf(out, "  VIN:       %s\n", unit.VIN)
	}
	fmt.Fprintf(out, "  Stage:     %s\n", unit.StageName)
	if flag := priorityLabel(unit.Priority); flag != "" {
		fmt.Fprintf(out, "  Priority:  %s\n", flag)
	}
	if unit.Grade != "" {
		fmt.Fprintf(out, "  Grade:     %s\n", unit.Grade)
	}
	if unit.ServiceLocation != "" {
		fmt.Fprintf(out, "  Location:  %s\n", unit.ServiceLocation)
	}
	if len(unit.Vendors) > 0 {
		fmt.Fprintf(out, "  Vendors:   %s\n", strings.Join(unit.Vendors, ", "))
	}
	fmt.Fprintf(out, "  Est cost:  %s\n", formatMoney(unit.EstimatedCost))
	if unit.ActualCost > 0 {
		fmt.Fprintf(out, "  Cost:      %s\n", formatMoney(unit.ActualCost))
	}
	fmt.Fprintf(out, "  Approval:  %s\n", detail.Tier.Label)
	fmt.Fprintf(out, "  In recon:  %s days (holding %s)\n",
		formatDays(m.TotalDays), formatMoney(m.HoldingCost))
	fmt.Fprintf(out, "  In stage:  %s days  overdue: %s\n",
		formatDays(m.CurrentDays), yesNo(m.Overdue))

	if len(detail.History) > 0 {
		rows := make([][]string, 0, len(detail.History))
		for _, entry := range detail.History {
			exited := formatWireTime(entry.ExitedAt)
			if entry.Open {
				exited = "(current)"
			}
			rows = append(rows, []string{
				entry.StageName,
				formatWireTime(entry.EnteredAt),
				exited,
				entry.MovedByName,
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(
			[]tableColumn{col("Stage"), col("Entered"), col("Exited"), col("Moved by")},
			rows,
		))
	}

	if len(detail.Notes) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Notes:")
		for _, note := range detail.Notes {
			fmt.Fprintf(out, "  [%s] %s  %s (%s)\n",
				note.Category, formatWireTime(note.CreatedAt), note.Body, note.CreatedByName)
		}
	}

	if len(detail.PartsHolds) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Parts on order:")
		for _, hold := range detail.PartsHolds {
			line := hold.PartName
			if hold.Supplier != "" {
				line += " from " + hold.Supplier
			}
			if hold.ExpectedAt != "" {
				line += " expected " + formatWireTime(hold.ExpectedAt)
			}
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
}

func newUnitMoveCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "move <stock-number> <stage>",
		Short: "Move a unit to an explicit stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				detail, err := resolveUnit(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Move(ipc.MoveRequest{
					Actor:  actor,
					UnitID: detail.Unit.ID,
					Target: args[1],
					Note:   note,
				})
				if err != nil {
					return err
				}
				printTransition(cmd, resp.Transition)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Note to record with the move")
	return cmd
}

func newUnitAdvanceCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "advance <stock-number>",
		Short: "Move a unit to its next workflow stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				detail, err := resolveUnit(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Advance(ipc.AdvanceRequest{
					Actor:  actor,
					UnitID: detail.Unit.ID,
					Note:   note,
				})
				if err != nil {
					return err
				}
				printTransition(cmd, resp.Transition)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Note to record with the move")
	return cmd
}

func printTransition(cmd *cobra.Command, tr api.Transition) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n",
		tr.Unit.StockNumber, tr.From, tr.To)
}

func newUnitPriorityCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "priority <stock-number> <none|sold|customer_waiting|hot_unit>",
		Short: "Set a unit's urgency flag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				detail, err := resolveUnit(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.SetPriority(ipc.SetPriorityRequest{
					Actor:    actor,
					UnitID:   detail.Unit.ID,
					Priority: args[1],
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s priority set to %s\n",
					resp.Unit.StockNumber, resp.Unit.Priority)
				return nil
			})
		},
	}
}

func newUnitNoteCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "note <stock-number> <text>",
		Short: "Attach an audit note to a unit",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			body := strings.Join(args[1:], " ")
			return ctx.withClient(func(client *ipc.Client) error {
				detail, err := resolveUnit(client, args[0])
				if err != nil {
					return err
				}
				if _, err := client.AddNote(ipc.AddNoteRequest{
					Actor:    actor,
					UnitID:   detail.Unit.ID,
					Category: category,
					Body:     body,
				}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Note recorded")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "general", "Note category")
	return cmd
}

func newUnitPartsHoldCommand(ctx *commandContext) *cobra.Command {
	var (
		partNumber string
		supplier   string
		note       string
	)

	cmd := &cobra.Command{
		Use:   "parts-hold <stock-number> <part-name>",
		Short: "Move a unit into parts hold and record the pending part",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				detail, err := resolveUnit(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.HoldForParts(ipc.HoldForPartsRequest{
					Actor:      actor,
					UnitID:     detail.Unit.ID,
					PartName:   args[1],
					PartNumber: partNumber,
					Supplier:   supplier,
					Note:       note,
				})
				if err != nil {
					return err
				}
				printTransition(cmd, resp.Transition)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&partNumber, "part-number", "", "Part number")
	cmd.Flags().StringVar(&supplier, "supplier", "", "Supplier name")
	cmd.Flags().StringVar(&note, "note", "", "Note to record with the hold")
	return cmd
}

func newUnitCostCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cost <stock-number> <amount>",
		Short: "Record a unit's actual repair cost",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				detail, err := resolveUnit(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.SetCost(ipc.SetCostRequest{
					Actor:  actor,
					UnitID: detail.Unit.ID,
					Cost:   amount,
				})
				if err != nil {
					return err
				}
				tier, err := client.Tier(amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s cost set to %s (%s)\n",
					resp.Unit.StockNumber, formatMoney(amount), tier.Tier.Label)
				return nil
			})
		},
	}
}

func newUnitHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <stock-number>",
		Short: "Show a unit's stage occupancy ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				detail, err := resolveUnit(client, args[0])
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(detail.History))
				for _, entry := range detail.History {
					exited := formatWireTime(entry.ExitedAt)
					if entry.Open {
						exited = "(current)"
					}
					rows = append(rows, []string{
						entry.StageName,
						formatWireTime(entry.EnteredAt),
						exited,
						entry.MovedByName,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]tableColumn{col("Stage"), col("Entered"), col("Exited"), col("Moved by")},
					rows,
				))
				return nil
			})
		},
	}
}
