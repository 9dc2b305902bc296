package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/kpath/internal/adjuster"
	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/render"
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Plan and adjust learner study paths",
}

var pathGenerateCmd = &cobra.Command{
	Use:   "generate <unit-file>",
	Short: "Generate a study path from the learner's stored mastery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		learnerID, _ := cmd.Flags().GetString("learner")
		extract, _ := cmd.Flags().GetBool("extract")

		f, err := loadUnit(args[0], extract)
		if err != nil {
			return err
		}
		u := f.Unit()
		g := kgraph.Build(u.Points, u.Relations, builderOptions()...)

		svc, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := svc.Plan(cmd.Context(), learnerID, g, f.PlanOptions())
		if err != nil {
			return fmt.Errorf("plan path: %w", err)
		}

		t := theme(cmd)
		printOut(cmd.OutOrStdout(), render.Path(t, rec.Path, g))
		if next, ok := rec.Path.Next(0); ok {
			printOut(cmd.OutOrStdout(), render.Suggestion(t, next, g))
		}
		return nil
	},
}

var pathShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the learner's latest path and next step",
	RunE: func(cmd *cobra.Command, args []string) error {
		learnerID, _ := cmd.Flags().GetString("learner")
		names, err := namesFrom(cmd)
		if err != nil {
			return err
		}

		svc, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := svc.Current(cmd.Context(), learnerID)
		if err != nil {
			return err
		}

		t := theme(cmd)
		printOut(cmd.OutOrStdout(), render.Path(t, rec.Path, names))
		if next, ok := rec.Path.Next(0); ok {
			printOut(cmd.OutOrStdout(), render.Suggestion(t, next, names))
		}
		printOut(cmd.OutOrStdout(), t.Hint.Render(fmt.Sprintf("path %s, saved %s", rec.ID, rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))))
		return nil
	},
}

var pathAdjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Apply a learning event to the learner's path",
	RunE: func(cmd *cobra.Command, args []string) error {
		learnerID, _ := cmd.Flags().GetString("learner")
		kindStr, _ := cmd.Flags().GetString("event")
		kp, _ := cmd.Flags().GetInt64("kp")

		kind, err := adjuster.ParseEventKind(kindStr)
		if err != nil {
			return err
		}
		names, err := namesFrom(cmd)
		if err != nil {
			return err
		}

		svc, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		out, err := svc.Apply(cmd.Context(), learnerID, adjuster.Event{
			Kind:             kind,
			KnowledgePointID: kp,
			Timestamp:        time.Now(),
		})
		if err != nil {
			return err
		}

		t := theme(cmd)
		printOut(cmd.OutOrStdout(), render.Adjustment(t, out.Result), "")
		if out.Changed {
			printOut(cmd.OutOrStdout(), render.Path(t, out.Path, names))
		}
		if out.Transition != nil {
			printOut(cmd.OutOrStdout(), t.Hint.Render(fmt.Sprintf("mastery %s -> %s", out.Transition.From, out.Transition.To)))
		}
		if out.Next != nil {
			printOut(cmd.OutOrStdout(), render.Suggestion(t, *out.Next, names))
		}
		return nil
	},
}

var pathHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List the learner's logged path adjustments",
	RunE: func(cmd *cobra.Command, args []string) error {
		learnerID, _ := cmd.Flags().GetString("learner")
		limit, _ := cmd.Flags().GetInt("limit")

		svc, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		entries, err := svc.History(cmd.Context(), learnerID, limit)
		if err != nil {
			return fmt.Errorf("query adjustments: %w", err)
		}
		printOut(cmd.OutOrStdout(), render.History(theme(cmd), entries))
		return nil
	},
}

// namesFrom builds the --unit file's graph for labelling, or returns nil.
func namesFrom(cmd *cobra.Command) (render.Namer, error) {
	path, _ := cmd.Flags().GetString("unit")
	if path == "" {
		return nil, nil
	}
	f, err := loadUnit(path, false)
	if err != nil {
		return nil, err
	}
	u := f.Unit()
	return kgraph.Build(u.Points, nil), nil
}

func init() {
	for _, c := range []*cobra.Command{pathGenerateCmd, pathShowCmd, pathAdjustCmd, pathHistoryCmd} {
		c.Flags().String("learner", "", "Learner ID")
		_ = c.MarkFlagRequired("learner")
	}
	pathGenerateCmd.Flags().Bool("extract", false, "Derive relations from keywords when the file lists none")
	pathShowCmd.Flags().String("unit", "", "Unit file used to label knowledge points")
	pathAdjustCmd.Flags().String("unit", "", "Unit file used to label knowledge points")
	pathAdjustCmd.Flags().String("event", "", "Event kind: completed, mastered, difficult, remedial_completed")
	pathAdjustCmd.Flags().Int64("kp", 0, "Knowledge point ID")
	_ = pathAdjustCmd.MarkFlagRequired("event")
	_ = pathAdjustCmd.MarkFlagRequired("kp")
	pathHistoryCmd.Flags().Int("limit", 20, "Maximum adjustments to list (0 = all)")

	pathCmd.AddCommand(pathGenerateCmd)
	pathCmd.AddCommand(pathShowCmd)
	pathCmd.AddCommand(pathAdjustCmd)
	pathCmd.AddCommand(pathHistoryCmd)
}
