// Package commands holds the subcommands of the admin CLI.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/roles"
	"complaintdesk/backend/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Env carries the shared resources of every command. The store is opened on
// first use so commands that never touch it work offline.
type Env struct {
	Config *config.Config
	Logger *zap.Logger
	Out    io.Writer
	Store  storage.Storage
	Open   func() (storage.Storage, error)
}

func (e *Env) storage() (storage.Storage, error) {
	if e.Store != nil {
		return e.Store, nil
	}
	if e.Open == nil {
		return nil, fmt.Errorf("no database configured")
	}
	s, err := e.Open()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	e.Store = s
	return s, nil
}

func (e *Env) classifier() *roles.Classifier {
	return roles.NewClassifier(e.Config.InstitutionDomain, e.Config.SuperAdminEmails, e.Config.VIPMailboxes)
}

func (e *Env) printJSON(v any) error {
	enc := json.NewEncoder(e.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Register adds every subcommand to root.
func Register(root *cobra.Command, env *Env) {
	root.AddCommand(classifyCmd(env))
	root.AddCommand(UserCommands(env))
	root.AddCommand(ComplaintCommands(env))
	root.AddCommand(escalateCmd(env))
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid complaint id %q", raw)
	}
	return uint(id), nil
}
