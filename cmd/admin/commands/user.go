package commands

import (
	"context"
	"fmt"
	"strings"

	"complaintdesk/backend/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func classifyCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [email]",
		Short: "Show the role and department an email maps to",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := env.classifier()
			if !c.InDomain(args[0]) {
				return fmt.Errorf("%s is not an address of %s", args[0], env.Config.InstitutionDomain)
			}
			return env.printJSON(c.Classify(args[0]))
		},
	}
}

// UserCommands returns the user management commands
func UserCommands(env *Env) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands.

Available commands:
  add  - Provision an account with the role derived from its email
  show - Show a stored account`,
	}
	userCmd.AddCommand(addUserCmd(env))
	userCmd.AddCommand(showUserCmd(env))
	return userCmd
}

func addUserCmd(env *Env) *cobra.Command {
	var fullName string
	cmd := &cobra.Command{
		Use:   "add [email]",
		Short: "Provision a user",
		Long:  `Classify the email and store the account. Existing accounts are reclassified.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := env.classifier()
			if !c.InDomain(args[0]) {
				return fmt.Errorf("%s is not an address of %s", args[0], env.Config.InstitutionDomain)
			}
			s, err := env.storage()
			if err != nil {
				return err
			}
			class := c.Classify(args[0])
			user := &models.User{Email: args[0], Role: class.Role, Department: class.Department}
			if name := strings.TrimSpace(fullName); name != "" {
				user.FullName = &name
			}
			if err := s.SaveUser(cmdContext(cmd), user); err != nil {
				env.Logger.Error("save user", zap.String("email", args[0]), zap.Error(err))
				return err
			}
			env.Logger.Info("user provisioned",
				zap.Uint("user_id", user.ID),
				zap.String("role", string(user.Role)),
				zap.String("department", string(user.Department)),
			)
			return env.printJSON(user)
		},
	}
	cmd.Flags().StringVar(&fullName, "name", "", "display name of the user")
	return cmd
}

func showUserCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show [email]",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.storage()
			if err != nil {
				return err
			}
			user, err := s.GetUserByEmail(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}
			return env.printJSON(user)
		},
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
