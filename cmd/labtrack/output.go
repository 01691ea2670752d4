package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/HerbHall/labtrack/internal/render"
	"github.com/HerbHall/labtrack/pkg/models"
)

type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatYAML  format = "yaml"
)

func addOutputFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "output", "o", string(formatTable), "output format: table, json or yaml")
}

func parseFormat(s string) (format, error) {
	switch f := format(s); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

// encode writes v as JSON or YAML. It reports false for the table format.
func encode(w io.Writer, f format, v any) (bool, error) {
	switch f {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func text(s *string) string {
	if s == nil || *s == "" {
		return render.Dash
	}
	return *s
}

func printList(w io.Writer, f format, list *models.MachineList) error {
	if done, err := encode(w, f, list); done {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tIP\tTYPE\tSTATUS\tHEALTH\tUSED FOR\tALLOTTED TO\tBUILD\tLAST CHECKED")
	for _, m := range list.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.MachineIP, m.MachineType, m.Status, m.HealthStatus, m.UsedFor,
			text(m.AllottedTo), text(m.CurrentBuild), render.DateTime(m.LastCheckedAt, nil))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	page := max(list.Page, 1)
	pages := max(list.Pages, 1)
	_, err := fmt.Fprintf(w, "\npage %d of %d, %d machines\n", page, pages, list.Total)
	return err
}

func printMachine(w io.Writer, f format, m *models.Machine) error {
	if done, err := encode(w, f, m); done {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", m.ID},
		{"IP", m.MachineIP},
		{"Type", string(m.MachineType)},
		{"Status", string(m.Status)},
		{"Health", string(m.HealthStatus)},
		{"Reachable", fmt.Sprint(m.IsReachable)},
		{"Used for", string(m.UsedFor)},
		{"Allotted to", text(m.AllottedTo)},
		{"Customer", text(m.CustomerName)},
		{"Build", text(m.CurrentBuild)},
		{"Tests completed", fmt.Sprint(m.TestsCompleted)},
		{"Parallel", fmt.Sprint(m.CanRunParallel)},
		{"Shipping date", render.DateTime(m.ShippingDate, nil)},
		{"Last checked", render.DateTime(m.LastCheckedAt, nil)},
		{"Active issues", text(m.ActiveIssues)},
		{"Notes", text(m.Notes)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}

func printHealth(w io.Writer, f format, r *models.HealthCheckResult) error {
	if done, err := encode(w, f, r); done {
		return err
	}
	reach := "unreachable"
	if r.IsReachable {
		reach = "reachable"
	}
	_, err := fmt.Fprintf(w, "%s: %s (%s), build %s\n", r.MachineIP, r.HealthStatus, reach, text(r.CurrentBuild))
	return err
}
