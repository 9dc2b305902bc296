package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/render"
)

var masteryCmd = &cobra.Command{
	Use:   "mastery",
	Short: "Inspect and set learner mastery",
}

var masterySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the mastery status of one knowledge point",
	RunE: func(cmd *cobra.Command, args []string) error {
		learnerID, _ := cmd.Flags().GetString("learner")
		kp, _ := cmd.Flags().GetInt64("kp")
		statusStr, _ := cmd.Flags().GetString("status")

		if kp <= 0 {
			return fmt.Errorf("--kp must be a positive knowledge point ID")
		}
		status, err := knowledge.ParseMasteryStatus(statusStr)
		if err != nil {
			return err
		}

		svc, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := svc.SetMastery(cmd.Context(), learnerID, kp, status); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: KP%d is now %s\n", learnerID, kp, status)
		return nil
	},
}

var masteryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the learner's mastery statuses",
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

		m, err := svc.Mastery(cmd.Context(), learnerID)
		if err != nil {
			return err
		}
		printOut(cmd.OutOrStdout(), render.Mastery(theme(cmd), learnerID, m, names))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{masterySetCmd, masteryListCmd} {
		c.Flags().String("learner", "", "Learner ID")
		_ = c.MarkFlagRequired("learner")
	}
	masterySetCmd.Flags().Int64("kp", 0, "Knowledge point ID")
	masterySetCmd.Flags().String("status", "", "Status: unlearned, learning, difficult, mastered")
	_ = masterySetCmd.MarkFlagRequired("kp")
	_ = masterySetCmd.MarkFlagRequired("status")
	masteryListCmd.Flags().String("unit", "", "Unit file used to label knowledge points")

	masteryCmd.AddCommand(masterySetCmd)
	masteryCmd.AddCommand(masteryListCmd)
}
