package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HerbHall/labtrack/internal/apiclient"
)

func newMachinesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "machines",
		Aliases: []string{"machine", "m"},
		Short:   "Query and manage machines in the inventory backend",
	}
	cmd.AddCommand(
		newMachinesListCmd(root),
		newMachinesGetCmd(root),
		newMachinesHealthCheckCmd(root),
		newMachinesDeleteCmd(root),
	)
	return cmd
}

func newMachinesListCmd(root *rootOptions) *cobra.Command {
	var (
		params apiclient.ListParams
		output string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List machines",
		Long: `List one page of machines, optionally filtered.

Examples:
  # Machines in customer use, second page
  labtrack machines list --used-for Customer --page 2

  # Free-text search across IP, build and assignee
  labtrack machines list --search 10.0.3 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			api, err := root.client()
			if err != nil {
				return err
			}
			list, err := api.List(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("list machines: %s", describe(err))
			}
			return printList(cmd.OutOrStdout(), format, list)
		},
	}
	f := cmd.Flags()
	f.StringVar(&params.Search, "search", "", "free-text search")
	f.StringVar(&params.Status, "status", "", "filter by status")
	f.StringVar(&params.UsedFor, "used-for", "", "filter by usage")
	f.StringVar(&params.MachineType, "type", "", "filter by machine type")
	f.StringVar(&params.AllottedTo, "allotted-to", "", "filter by assignee")
	f.StringVar(&params.HealthStatus, "health", "", "filter by health status")
	f.IntVar(&params.Page, "page", 1, "page number")
	f.IntVar(&params.PageSize, "page-size", 50, "machines per page")
	addOutputFlag(cmd, &output)
	return cmd
}

func newMachinesGetCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			api, err := root.client()
			if err != nil {
				return err
			}
			m, err := api.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get machine %s: %s", args[0], describe(err))
			}
			return printMachine(cmd.OutOrStdout(), format, m)
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newMachinesHealthCheckCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "health-check <id>",
		Aliases: []string{"check"},
		Short:   "Probe a machine and record its health",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			api, err := root.client()
			if err != nil {
				return err
			}
			res, err := api.HealthCheck(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("health check %s: %s", args[0], describe(err))
			}
			return printHealth(cmd.OutOrStdout(), format, res)
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newMachinesDeleteCmd(root *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a machine from the inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			api, err := root.client()
			if err != nil {
				return err
			}
			m, err := api.Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get machine %s: %s", id, describe(err))
			}
			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete machine %s? This cannot be undone. [y/N] ", m.MachineIP)
				if !confirmed(cmd) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			if err := api.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete machine %s: %s", id, describe(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", m.MachineIP, id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirmed reads one line from the command's input and accepts y or yes.
func confirmed(cmd *cobra.Command) bool {
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// describe prefers the backend's detail message over the raw error.
func describe(err error) string {
	if d := apiclient.Detail(err); d != "" {
		return d
	}
	return err.Error()
}
