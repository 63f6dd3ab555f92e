package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"studyhub/internal/task"
)

var (
	taskTitle   string
	taskNotes   string
	taskDue     string
	taskSubject string
	taskEmoji   string
	listFilter  string
	listSubject string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a task",
	Args:  cobra.NoArgs,
	RunE:  addTask,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a task; unset flags keep their current value",
	Args:  cobra.ExactArgs(1),
	RunE:  editTask,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks (all, ongoing, completed, missed)",
	Args:  cobra.NoArgs,
	RunE:  listTasks,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE:  showTask,
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setCompleted(cmd, args[0], true) },
}

var undoneCmd = &cobra.Command{
	Use:   "undone <id>",
	Short: "Mark a task not completed",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setCompleted(cmd, args[0], false) },
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  removeTask,
}

func init() {
	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVarP(&taskTitle, "title", "t", "", "Task title")
		c.Flags().StringVarP(&taskNotes, "notes", "n", "", "Free-text notes")
		c.Flags().StringVarP(&taskDue, "due", "D", "", "Due date, YYYY-MM-DD or \"YYYY-MM-DD HH:MM\" local time")
		c.Flags().StringVarP(&taskSubject, "subject", "s", "", "Subject (category) name")
		c.Flags().StringVarP(&taskEmoji, "emoji", "e", "", "Emoji tag")
	}
	if err := addCmd.MarkFlagRequired("title"); err != nil {
		panic(fmt.Sprintf("Failed to mark title flag as required: %v", err))
	}
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "ongoing", "all, ongoing, completed or missed")
	listCmd.Flags().StringVarP(&listSubject, "subject", "s", "", "Only tasks in this subject")

	rootCmd.AddCommand(addCmd, editCmd, listCmd, showCmd, doneCmd, undoneCmd, rmCmd)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func addTask(cmd *cobra.Command, args []string) error {
	t := task.Task{
		Title:     taskTitle,
		Content:   task.NullString(taskNotes),
		Category:  task.NullString(taskSubject),
		EmojiIcon: taskEmoji,
	}
	if err := validateTitle(t.Title); err != nil {
		return err
	}
	due, err := task.ParseDue(taskDue, time.Local)
	if err != nil {
		return err
	}
	t.Due = due

	return withApp(func(ctx context.Context, a *app) error {
		id, err := a.store.InsertTask(ctx, t)
		if err != nil {
			return err
		}
		t.ID = id
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Task created: %d\n", id)
		printTask(cmd.OutOrStdout(), t.WithDefaults(), time.Now())
		return nil
	})
}

func editTask(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		t, err := a.store.GetTask(ctx, id)
		if err != nil {
			return notFound(err, fmt.Sprintf("task %d", id))
		}
		flags := cmd.Flags()
		if flags.Changed("title") {
			if err := validateTitle(taskTitle); err != nil {
				return err
			}
			t.Title = taskTitle
		}
		if flags.Changed("notes") {
			t.Content = task.NullString(taskNotes)
		}
		if flags.Changed("due") {
			if t.Due, err = task.ParseDue(taskDue, time.Local); err != nil {
				return err
			}
		}
		if flags.Changed("subject") {
			t.Category = task.NullString(taskSubject)
		}
		if flags.Changed("emoji") {
			t.EmojiIcon = taskEmoji
		}
		if err := a.store.UpdateTask(ctx, t); err != nil {
			return notFound(err, fmt.Sprintf("task %d", id))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Task updated: %d\n", id)
		return nil
	})
}

func listTasks(cmd *cobra.Command, args []string) error {
	f, err := task.ParseFilter(listFilter)
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		now := time.Now()
		tasks, err := a.store.TasksByFilterIn(ctx, f, now, listSubject)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks found.")
			return nil
		}
		for _, t := range tasks {
			fmt.Fprintln(out, listLine(t, now))
		}
		return nil
	})
}

func showTask(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		t, err := a.store.GetTask(ctx, id)
		if err != nil {
			return notFound(err, fmt.Sprintf("task %d", id))
		}
		printTask(cmd.OutOrStdout(), t, time.Now())
		return nil
	})
}

func setCompleted(cmd *cobra.Command, arg string, completed bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.store.SetCompleted(ctx, id, completed); err != nil {
			return notFound(err, fmt.Sprintf("task %d", id))
		}
		state := "completed"
		if !completed {
			state = "reopened"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Task %d %s\n", id, state)
		return nil
	})
}

func removeTask(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.store.DeleteTask(ctx, id); err != nil {
			return notFound(err, fmt.Sprintf("task %d", id))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Task %d deleted\n", id)
		return nil
	})
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title cannot be empty")
	}
	return nil
}

func listLine(t task.Task, now time.Time) string {
	check := " "
	if t.Completed {
		check = "x"
	}
	line := fmt.Sprintf("[%s] %4d %s %s  (%s, %s)", check, t.ID, t.EmojiIcon, t.Title, task.FormatDueDate(t, time.Local), task.Classify(t, now))
	if t.Category.Valid {
		line += "  #" + t.Category.String
	}
	return line
}

func printTask(w io.Writer, t task.Task, now time.Time) {
	fmt.Fprintf(w, "  %s %s\n", t.EmojiIcon, t.Title)
	due := task.FormatDueDate(t, time.Local)
	if rel := t.Due.Relative(now); rel != "" {
		due += " (" + rel + ")"
	}
	fmt.Fprintf(w, "  Due: %s\n", due)
	fmt.Fprintf(w, "  Status: %s\n", task.Classify(t, now))
	if t.Category.Valid {
		fmt.Fprintf(w, "  Subject: %s\n", t.Category.String)
	}
	if t.Content.Valid {
		fmt.Fprintf(w, "  Notes: %s\n", t.Content.String)
	}
}
