package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/doctor"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

// printJSON wraps v in the success envelope every JSON-mode command emits:
// {"ok": true, "data": ...}. Errors take the mirror-image envelope via
// printErr.
func printJSON(v any) error {
	return printEnvelope(map[string]any{"ok": true, "data": v})
}

func printEnvelope(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTask(t *snapshot.Task) error {
	if jsonOut {
		return printJSON(t)
	}
	label := t.ID
	if t.ShortID != "" {
		label = t.ShortID
	}
	fmt.Printf("%s  %s  [%s]\n", color.New(color.Bold).Sprint(label), t.Title, statusColor(t.Status).Sprint(t.Status))
	if t.AssignedTo != "" {
		fmt.Printf("  assigned_to: %s\n", t.AssignedTo)
	}
	if len(t.Tags) > 0 {
		fmt.Printf("  tags: %v\n", t.Tags)
	}
	return nil
}

func statusColor(status string) *color.Color {
	switch status {
	case "done":
		return color.New(color.FgGreen)
	case "in_progress", "review":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func findingColor(status doctor.Status) *color.Color {
	switch status {
	case doctor.StatusOK:
		return color.New(color.FgGreen)
	case doctor.StatusWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func printReport(r doctor.Report) error {
	if jsonOut {
		return printJSON(r)
	}
	for _, f := range r.Findings {
		c := findingColor(f.Status)
		if f.TaskID != "" {
			fmt.Printf("[%s] %s %s: %s\n", c.Sprint(string(f.Status)), f.Code, f.TaskID, f.Detail)
		} else {
			fmt.Printf("[%s] %s: %s\n", c.Sprint(string(f.Status)), f.Code, f.Detail)
		}
	}
	if r.Clean() {
		fmt.Println(color.New(color.FgGreen).Sprint("clean"))
	}
	return nil
}
