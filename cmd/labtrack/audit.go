package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/HerbHall/labtrack/internal/audit"
	"github.com/HerbHall/labtrack/internal/backup"
	"github.com/HerbHall/labtrack/internal/render"
	"github.com/HerbHall/labtrack/internal/store"
)

func newAuditCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and archive the operator audit trail",
	}
	cmd.AddCommand(newAuditListCmd(root), newAuditBackupCmd(root), newAuditRestoreCmd())
	return cmd
}

func newAuditListCmd(root *rootOptions) *cobra.Command {
	var (
		filter audit.Filter
		output string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded actions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			if filter.Limit < 1 || filter.Limit > audit.MaxLimit {
				return fmt.Errorf("--limit must be between 1 and %d", audit.MaxLimit)
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			db, err := store.New(cfg.GetString("audit.db_path"))
			if err != nil {
				return err
			}
			defer db.Close()

			repo, err := audit.NewSQLiteRepository(cmd.Context(), db)
			if err != nil {
				return err
			}
			entries, err := repo.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), format, entries)
		},
	}
	cmd.Flags().StringVar(&filter.MachineID, "machine", "", "only entries for this machine id")
	cmd.Flags().IntVar(&filter.Limit, "limit", audit.DefaultLimit, "maximum entries to show")
	addOutputFlag(cmd, &output)
	return cmd
}

func printEntries(w io.Writer, f format, entries []audit.Entry) error {
	if entries == nil {
		entries = []audit.Entry{}
	}
	if done, err := encode(w, f, entries); done {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tACTION\tMACHINE\tOUTCOME\tDETAIL")
	for _, e := range entries {
		machine := e.MachineIP
		if machine == "" {
			machine = e.MachineID
		}
		if machine == "" {
			machine = render.Dash
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			render.DateTime(&e.CreatedAt, nil), e.Action, machine, e.Outcome, e.Detail)
	}
	return tw.Flush()
}

func newAuditBackupCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the audit database and config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("labtrack-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
			}
			if err := backup.Backup(cmd.Context(), cfg.GetString("audit.db_path"), cfg.Viper().ConfigFileUsed(), output); err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "archive path (default labtrack-backup-{timestamp}.tar.gz)")
	return cmd
}

func newAuditRestoreCmd() *cobra.Command {
	var (
		dataDir string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "restore <archive>",
		Short: "Restore files from a backup archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := backup.Restore(cmd.Context(), args[0], dataDir, force)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			for _, p := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", ".", "directory to restore into")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}
