package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nvandessel/porewalk/internal/store"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored runs and outcomes as JSONL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outPath, _ := cmd.Flags().GetString("out")

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.OpenFile(outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
				if err != nil {
					return fmt.Errorf("creating export file: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, err := store.ExportJSONL(cmd.Context(), s, w)
			if err != nil {
				return err
			}
			// The report goes to stderr when the export itself is on stdout.
			report := cmd.OutOrStdout()
			if outPath == "" {
				report = cmd.ErrOrStderr()
			}
			if jsonOut {
				return json.NewEncoder(report).Encode(map[string]interface{}{"exported": n, "path": outPath})
			}
			fmt.Fprintf(report, "Exported %d runs\n", n)
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import runs from a JSONL export; existing run IDs are skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening import file: %w", err)
				}
				defer f.Close()
				r = f
			}

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := store.ImportJSONL(cmd.Context(), s, r)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{"imported": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d runs\n", n)
			return nil
		},
	}
}
