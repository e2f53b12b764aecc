package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/mindmirror/internal/export"
	"github.com/user/mindmirror/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd, sessionDeleteCmd, sessionExportCmd)

	sessionExportCmd.Flags().String("format", "md", "export format: md, json, yaml")
	sessionExportCmd.Flags().StringP("output", "o", "", "output file (stdout by default)")
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup := newApp()
		defer cleanup()

		sessions := a.store.List()
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tTITLE\tMESSAGES\tUPDATED")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				s.ID,
				s.Type,
				s.Title,
				len(s.Messages),
				s.LastUpdated.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup := newApp()
		defer cleanup()

		sess, ok := a.store.Get(types.SessionID(args[0]))
		if !ok {
			return fmt.Errorf("session not found: %s", args[0])
		}

		fmt.Printf("%s（%s，%s）\n\n", sess.Title, sess.Type, sess.CreatedAt.Format("2006-01-02 15:04"))
		for _, msg := range sess.Messages {
			printMessage(msg)
		}
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup := newApp()
		defer cleanup()

		id := types.SessionID(args[0])
		if _, ok := a.store.Get(id); !ok {
			return fmt.Errorf("session not found: %s", id)
		}
		a.ctrl.DeleteSession(id)
		fmt.Printf("Deleted %s\n", id)
		return nil
	},
}

var sessionExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup := newApp()
		defer cleanup()

		sess, ok := a.store.Get(types.SessionID(args[0]))
		if !ok {
			return fmt.Errorf("session not found: %s", args[0])
		}

		format, _ := cmd.Flags().GetString("format")
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		out := os.Stdout
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		return exporter.Export(sess, out)
	},
}
