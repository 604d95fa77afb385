package services_test

import (
	"context"
	"testing"

	"chronic_go_backend/internal/database"
	"chronic_go_backend/internal/models"
	"chronic_go_backend/internal/realtime"
	"chronic_go_backend/internal/services"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ch realtime.Channel, msg any) {
	m.Called(ch, msg)
}

// eventOfType matches a services.Event by its Type.
func eventOfType(eventType string) any {
	return mock.MatchedBy(func(msg any) bool {
		ev, ok := msg.(services.Event)
		return ok && ev.Type == eventType
	})
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db        *gorm.DB
	users     *services.UserService
	orgs      *services.OrgService
	user      *models.User
	org       *models.Organization
	workspace *models.Workspace
}

// newFixture signs up a user and gives them a workspace.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := newTestDB(t)
	users := services.NewUserService(db)
	orgs := services.NewOrgService(db, users)

	user, org, err := users.Signup(ctx, services.SignupInput{
		Email:     "ada@example.com",
		Password:  "hunter22",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	ws, err := orgs.CreateWorkspace(ctx, org.ID, user.ID, "Engineering")
	require.NoError(t, err)

	return &fixture{db: db, users: users, orgs: orgs, user: user, org: org, workspace: ws}
}

// project creates a project without recording its event.
func (f *fixture) project(t *testing.T, name string) *models.Project {
	t.Helper()
	p, err := services.NewProjectService(f.db, services.NopPublisher{}).
		CreateProject(context.Background(), f.org.ID, f.user.ID, f.workspace.ID, services.ProjectInput{Name: name})
	require.NoError(t, err)
	return p
}

// otherOrg signs up a second, unrelated user.
func (f *fixture) otherOrg(t *testing.T) (*models.User, *models.Organization) {
	t.Helper()
	user, org, err := f.users.Signup(context.Background(), services.SignupInput{
		Email:     "grace@example.com",
		Password:  "cobol1959",
		FirstName: "Grace",
	})
	require.NoError(t, err)
	return user, org
}
