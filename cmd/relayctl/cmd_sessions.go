package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sessionsLimit int

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsGetCmd, sessionsDeleteCmd)
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 100, "maximum number of sessions")
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, _, err := build(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		list, err := a.Sessions.List(ctx, sessionsLimit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tERRORS\tCREATED\tUPDATED")
		for _, s := range list {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
				s.ID,
				s.ErrorCount,
				s.CreatedAt.Format("2006-01-02 15:04:05"),
				s.UpdatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var sessionsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, _, err := build(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		s, err := a.Sessions.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if s == nil {
			return fmt.Errorf("session %q not found", args[0])
		}
		return printJSON(s)
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, _, err := build(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		if err := a.Sessions.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		fmt.Printf("Session %s deleted.\n", args[0])
		return nil
	},
}
