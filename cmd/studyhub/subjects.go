package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"studyhub/internal/storage"
)

var subjectEmoji string

var subjectCmd = &cobra.Command{
	Use:   "subject",
	Short: "Manage subjects (task folders)",
}

var subjectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if _, err := a.store.CreateSubject(ctx, args[0], subjectEmoji); err != nil {
				if errors.Is(err, storage.ErrDuplicateSubject) {
					return fmt.Errorf("subject %q already exists", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Subject created: %s\n", args[0])
			return nil
		})
	},
}

var subjectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subjects with their open task counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			subs, err := a.store.Subjects(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(subs) == 0 {
				fmt.Fprintln(out, "No subjects yet.")
				return nil
			}
			for _, s := range subs {
				tasks, err := a.store.TasksByCategory(ctx, s.Name)
				if err != nil {
					return err
				}
				open := 0
				for _, t := range tasks {
					if !t.Completed {
						open++
					}
				}
				fmt.Fprintf(out, "%s %s  (%d open / %d)\n", s.Emoji, s.Name, open, len(tasks))
			}
			return nil
		})
	},
}

var subjectRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a subject and move its tasks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.store.RenameSubject(ctx, args[0], args[1]); err != nil {
				return notFound(err, fmt.Sprintf("subject %q", args[0]))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Subject renamed: %s -> %s\n", args[0], args[1])
			return nil
		})
	},
}

var subjectRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a subject; its tasks are kept without a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.store.DeleteSubject(ctx, args[0]); err != nil {
				return notFound(err, fmt.Sprintf("subject %q", args[0]))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Subject deleted: %s\n", args[0])
			return nil
		})
	},
}

func init() {
	subjectAddCmd.Flags().StringVarP(&subjectEmoji, "emoji", "e", "📚", "Emoji tag")
	subjectCmd.AddCommand(subjectAddCmd, subjectListCmd, subjectRenameCmd, subjectRmCmd)
	rootCmd.AddCommand(subjectCmd)
}
