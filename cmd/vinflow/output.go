package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"vinflow/internal/api"
)

// moneyPrinter formats dollar amounts with thousands separators.
var moneyPrinter = message.NewPrinter(language.English)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatMoney(amount float64) string {
	return moneyPrinter.Sprintf("$%.0f", amount)
}

func formatDays(days float64) string {
	return fmt.Sprintf("%.1f", days)
}

// formatWireTime renders an API timestamp in the local short form the
// tables use. Unparseable or empty values pass through unchanged.
func formatWireTime(value string) string {
	if value == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02T15:04:05.000Z07:00", value)
	if err != nil {
		return value
	}
	return t.Local().Format("2006-01-02 15:04")
}

func priorityLabel(priority string) string {
	switch priority {
	case "sold":
		return "SOLD"
	case "customer_waiting":
		return "WAITING"
	case "hot_unit":
		return "HOT"
	default:
		return ""
	}
}

func unitRow(unit api.Unit) []string {
	label := unit.StageName
	if flag := priorityLabel(unit.Priority); flag != "" {
		label = fmt.Sprintf("%s [%s]", label, flag)
	}
	cost := unit.EstimatedCost
	if unit.ActualCost > 0 {
		cost = unit.ActualCost
	}
	return []string{
		unit.StockNumber,
		unit.DisplayName,
		label,
		formatMoney(cost),
		strings.Join(unit.Vendors, ", "),
	}
}
