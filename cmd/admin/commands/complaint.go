package commands

import (
	"complaintdesk/backend/internal/analysis"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/escalation"
	"complaintdesk/backend/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ComplaintCommands returns the complaint inspection commands
func ComplaintCommands(env *Env) *cobra.Command {
	complaintCmd := &cobra.Command{
		Use:   "complaint",
		Short: "Complaint inspection commands",
	}
	complaintCmd.AddCommand(showComplaintCmd(env))
	complaintCmd.AddCommand(statsCmd(env))
	return complaintCmd
}

type complaintReport struct {
	Complaint *models.ComplaintDetail   `json:"complaint"`
	Timeline  []complaint.TimelineEvent `json:"timeline"`
	Activity  []models.ActivityLog      `json:"activity"`
}

func showComplaintCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a complaint with its timeline and audit log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := env.storage()
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)
			c, err := s.GetComplaintByID(ctx, id)
			if err != nil {
				return err
			}
			updates, err := s.ListComplaintUpdates(ctx, id)
			if err != nil {
				return err
			}
			activity, err := s.ListActivity(ctx, id)
			if err != nil {
				return err
			}
			return env.printJSON(complaintReport{
				Complaint: c,
				Timeline:  complaint.BuildTimeline(&c.Complaint, updates),
				Activity:  activity,
			})
		},
	}
}

func statsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise complaints by status, category and priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := env.storage()
			if err != nil {
				return err
			}
			counts, err := s.ComplaintCounts(cmdContext(cmd))
			if err != nil {
				return err
			}
			return env.printJSON(analysis.Summarize(counts))
		},
	}
}

func escalateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "escalate",
		Short: "Run the priority bump and escalation passes once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := env.storage()
			if err != nil {
				return err
			}
			scheduler := escalation.NewScheduler(s, escalation.SettingsFrom(env.Config), env.Logger)
			res, err := scheduler.RunOnce(cmdContext(cmd))
			if err != nil {
				return err
			}
			env.Logger.Info("escalation pass finished",
				zap.Int("bumped", len(res.Bumped)),
				zap.Int("flagged", len(res.Flagged)),
			)
			return env.printJSON(res)
		},
	}
}
