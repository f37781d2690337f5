package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"complaintdesk/backend/cmd/admin/commands"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/escalation"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		InstitutionDomain:    "nitjsr.ac.in",
		SuperAdminEmails:     []string{"registrar@nitjsr.ac.in"},
		VIPMailboxes:         config.DefaultVIPMailboxes,
		PriorityBumpInterval: config.DefaultPriorityBumpInterval,
		PriorityBumpAfter:    config.DefaultPriorityBumpAfter,
		EscalationInterval:   config.DefaultEscalationInterval,
		EscalationAfter:      config.DefaultEscalationAfter,
	}
}

func newStore(t *testing.T) *storage.Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, storage.Migrate(db))
	return storage.NewStorageService(db)
}

func run(t *testing.T, env *commands.Env, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	env.Out = out
	root := &cobra.Command{Use: "admin", SilenceUsage: true, SilenceErrors: true}
	commands.Register(root, env)
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestClassifyWorksWithoutDatabase(t *testing.T) {
	env := &commands.Env{
		Config: testConfig(),
		Logger: zap.NewNop(),
		Open: func() (storage.Storage, error) {
			return nil, errors.New("must not be opened")
		},
	}

	out, err := run(t, env, "classify", "Mess@NITJSR.ac.in")
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"admin","department":"mess"}`, out)

	out, err = run(t, env, "classify", "2023pgcs042@nitjsr.ac.in")
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"student","department":"n/a"}`, out)

	_, err = run(t, env, "classify", "someone@gmail.com")
	assert.Error(t, err)
}

func TestUserAddAndShow(t *testing.T) {
	store := newStore(t)
	env := &commands.Env{Config: testConfig(), Logger: zap.NewNop(), Store: store}

	out, err := run(t, env, "user", "add", "registrar@nitjsr.ac.in", "--name", "Registrar")
	require.NoError(t, err)
	var saved models.User
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	assert.NotZero(t, saved.ID)
	assert.Equal(t, models.RoleSuperAdmin, saved.Role)
	assert.Equal(t, models.DepartmentAll, saved.Department)

	// re-adding keeps the id
	out, err = run(t, env, "user", "add", "REGISTRAR@nitjsr.ac.in")
	require.NoError(t, err)
	var again models.User
	require.NoError(t, json.Unmarshal([]byte(out), &again))
	assert.Equal(t, saved.ID, again.ID)

	out, err = run(t, env, "user", "show", "registrar@nitjsr.ac.in")
	require.NoError(t, err)
	assert.Contains(t, out, `"super_admin"`)

	_, err = run(t, env, "user", "show", "nobody@nitjsr.ac.in")
	assert.Error(t, err)

	_, err = run(t, env, "user", "add", "someone@gmail.com")
	assert.Error(t, err)
}

func TestComplaintShowAndEscalate(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	author := &models.User{Email: "2024ugcs001@nitjsr.ac.in", Role: models.RoleStudent, Department: models.DepartmentNone}
	require.NoError(t, store.SaveUser(ctx, author))

	store.Now = func() time.Time { return time.Now().UTC().Add(-48 * time.Hour) }
	c := &models.Complaint{AuthorID: author.ID, Category: models.CategoryHostel, Title: "No water"}
	require.NoError(t, store.CreateComplaint(ctx, c))
	store.Now = func() time.Time { return time.Now().UTC() }

	env := &commands.Env{Config: testConfig(), Logger: zap.NewNop(), Store: store}

	out, err := run(t, env, "complaint", "show", fmt.Sprint(c.ID))
	require.NoError(t, err)
	var report struct {
		Complaint models.ComplaintDetail `json:"complaint"`
		Timeline  []map[string]any       `json:"timeline"`
		Activity  []map[string]any       `json:"activity"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "No water", report.Complaint.Title)
	assert.Len(t, report.Timeline, 1)
	require.Len(t, report.Activity, 1)
	assert.Equal(t, "CREATED", report.Activity[0]["action"])

	out, err = run(t, env, "escalate")
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{"bumped":[%d],"flagged":[%d]}`, c.ID, c.ID), out)

	out, err = run(t, env, "escalate")
	require.NoError(t, err)
	var second escalation.Result
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Empty(t, second.Bumped)
	assert.Empty(t, second.Flagged)

	out, err = run(t, env, "complaint", "stats")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `"escalated": 1`), out)

	_, err = run(t, env, "complaint", "show", "abc")
	assert.Error(t, err)
	_, err = run(t, env, "complaint", "show", "999")
	assert.Error(t, err)
}
