package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chhz0/polytasks/export"
	"github.com/chhz0/polytasks/types"
	"github.com/spf13/cobra"
)

var (
	errEmptyText    = errors.New("task text must not be empty")
	errTaskNotFound = errors.New("task not found")
)

func newListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), deps.globals)
			if err != nil {
				return err
			}
			defer rt.Close()

			return renderTasks(deps.out, rt.manager.GetTasks())
		},
	}
}

func newAddCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "add <text>...",
		Short:   "Add a task",
		Example: `  polytasks add Buy milk`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), deps.globals)
			if err != nil {
				return err
			}
			defer rt.Close()

			task, ok, err := rt.manager.AddTask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !ok {
				return errEmptyText
			}
			_, err = fmt.Fprintf(deps.out, "added %s\n", task.ID)
			return err
		},
	}
}

func newCompletionCommand(deps commandDeps, use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), deps.globals)
			if err != nil {
				return err
			}
			defer rt.Close()

			task, ok, err := rt.manager.SetTaskCompletion(cmd.Context(), args[0], completed)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", errTaskNotFound, args[0])
			}
			return renderTask(deps.out, task)
		},
	}
}

func newRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), deps.globals)
			if err != nil {
				return err
			}
			defer rt.Close()

			ok, err := rt.manager.RemoveTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", errTaskNotFound, args[0])
			}
			_, err = fmt.Fprintf(deps.out, "removed %s\n", args[0])
			return err
		},
	}
}

func newRemainingCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "remaining",
		Short: "Print how many tasks are not completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), deps.globals)
			if err != nil {
				return err
			}
			defer rt.Close()

			_, err = fmt.Fprintln(deps.out, export.Counter(rt.manager.RemainingCount()))
			return err
		},
	}
}

func newClearCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), deps.globals)
			if err != nil {
				return err
			}
			defer rt.Close()

			return rt.manager.Adapter().Clear(cmd.Context())
		},
	}
}

func newExportCommand(deps commandDeps) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks as json, csv or pdf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), deps.globals)
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := export.Export(rt.manager.GetTasks(), format)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = deps.out.Write(data)
				return err
			}
			return writeFile(output, data)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, csv, pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func renderTasks(w io.Writer, tasks []types.Task) error {
	for _, t := range tasks {
		if err := renderTask(w, t); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, export.Counter(export.Remaining(tasks)))
	return err
}

func renderTask(w io.Writer, t types.Task) error {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	_, err := fmt.Fprintf(w, "[%s] %s  (%s)\n", mark, t.Text, t.ID)
	return err
}
