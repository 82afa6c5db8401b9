package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nvandessel/porewalk/internal/backup"
	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive all stored runs to a compressed, checksummed file",
		Long: `Archive every stored run and its outcomes to a compressed file.

Default location: <store dir>/backups/porewalk-YYYYMMDD-HHMMSS.backup
Only the most recent --keep archives in that directory are kept.

Examples:
  porewalk backup                     # Archive to the default location
  porewalk backup --output runs.backup
  porewalk backup list                # List archives
  porewalk backup verify <file>       # Verify archive integrity`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")
			keep, _ := cmd.Flags().GetInt("keep")

			dir, err := storeDir(cmd, "")
			if err != nil {
				return err
			}
			if outputPath == "" {
				outputPath = backup.GeneratePath(backup.DefaultDir(dir), time.Now())
			}

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			header, err := backup.Backup(cmd.Context(), s, outputPath)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			if keep > 0 {
				if _, err := backup.Rotate(filepath.Dir(outputPath), keep); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to rotate backups: %v\n", err)
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"path":     outputPath,
					"runs":     header.Runs,
					"checksum": header.Checksum,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %d runs\n", header.Runs)
			fmt.Fprintf(cmd.OutOrStdout(), "  Path: %s\n", outputPath)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file path (default: auto-generated in <store dir>/backups/)")
	cmd.Flags().Int("keep", 10, "Number of archives to keep in the output directory (0 keeps all)")

	cmd.AddCommand(
		newBackupListCmd(),
		newBackupVerifyCmd(),
	)
	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archives in the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			dir, err := storeDir(cmd, "")
			if err != nil {
				return err
			}
			backupDir := backup.DefaultDir(dir)

			entries, err := os.ReadDir(backupDir)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("reading backup directory: %w", err)
			}

			type item struct {
				Path      string    `json:"path"`
				CreatedAt time.Time `json:"created_at"`
				Runs      int       `json:"runs"`
			}
			items := []item{}
			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), backup.Ext) {
					continue
				}
				path := filepath.Join(backupDir, e.Name())
				header, err := backup.ReadHeader(path)
				if err != nil {
					continue
				}
				items = append(items, item{Path: path, CreatedAt: header.CreatedAt, Runs: header.Runs})
			}
			slices.SortFunc(items, func(a, b item) int { return b.CreatedAt.Compare(a.CreatedAt) })

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"backups": items,
					"count":   len(items),
				})
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backups found.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tRUNS\tPATH")
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%d\t%s\n", it.CreatedAt.Format(time.RFC3339), it.Runs, it.Path)
			}
			return w.Flush()
		},
	}
}

func newBackupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify the checksum of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if err := backup.Verify(args[0]); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{"path": args[0], "valid": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup OK: %s\n", args[0])
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore runs from an archive; existing run IDs are skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			header, n, err := backup.Restore(cmd.Context(), s, args[0])
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"restored": n,
					"archived": header.Runs,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d of %d runs\n", n, header.Runs)
			return nil
		},
	}
}
