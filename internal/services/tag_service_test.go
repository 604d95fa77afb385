package services_test

import (
	"context"
	"strings"
	"testing"

	"chronic_go_backend/internal/models"
	"chronic_go_backend/internal/realtime"
	"chronic_go_backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTagService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	publisher := new(MockPublisher)
	tags := services.NewTagService(f.db, publisher)
	wsChannel := realtime.WorkspaceChannel(f.workspace.ID)

	var tag *models.Tag

	t.Run("Create uses default color", func(t *testing.T) {
		publisher.On("Publish", wsChannel, eventOfType(services.EventTagCreated)).Return().Once()

		var err error
		tag, err = tags.CreateTag(ctx, f.org.ID, f.workspace.ID, " Bug ", nil)
		require.NoError(t, err)
		assert.Equal(t, "Bug", tag.Name)
		require.NotNil(t, tag.Color)
		assert.Equal(t, models.DefaultTagColor, *tag.Color)

		publisher.AssertExpectations(t)
	})

	t.Run("Name clash ignores case", func(t *testing.T) {
		_, err := tags.CreateTag(ctx, f.org.ID, f.workspace.ID, "bUG", nil)
		assert.ErrorIs(t, err, services.ErrConflict)
	})

	t.Run("Same name in another workspace is fine", func(t *testing.T) {
		other, err := f.orgs.CreateWorkspace(ctx, f.org.ID, f.user.ID, "Support")
		require.NoError(t, err)
		publisher.On("Publish", realtime.WorkspaceChannel(other.ID), eventOfType(services.EventTagCreated)).Return().Once()

		_, err = tags.CreateTag(ctx, f.org.ID, other.ID, "bug", nil)
		require.NoError(t, err)
	})

	t.Run("Name length is limited", func(t *testing.T) {
		_, err := tags.CreateTag(ctx, f.org.ID, f.workspace.ID, strings.Repeat("x", 65), nil)
		assert.ErrorIs(t, err, services.ErrInvalidInput)

		_, err = tags.CreateTag(ctx, f.org.ID, f.workspace.ID, strings.Repeat("é", 65), nil)
		assert.ErrorIs(t, err, services.ErrInvalidInput)
	})

	t.Run("Name length counts characters", func(t *testing.T) {
		design, err := f.orgs.CreateWorkspace(ctx, f.org.ID, f.user.ID, "Design")
		require.NoError(t, err)
		publisher.On("Publish", realtime.WorkspaceChannel(design.ID), eventOfType(services.EventTagCreated)).Return().Once()

		name := strings.Repeat("é", 64)
		created, err := tags.CreateTag(ctx, f.org.ID, design.ID, name, nil)
		require.NoError(t, err)
		assert.Equal(t, name, created.Name)
	})

	t.Run("Update", func(t *testing.T) {
		publisher.On("Publish", wsChannel, eventOfType(services.EventTagCreated)).Return().Once()
		feature, err := tags.CreateTag(ctx, f.org.ID, f.workspace.ID, "feature", nil)
		require.NoError(t, err)

		clash := "BUG"
		_, err = tags.UpdateTag(ctx, f.org.ID, feature.ID, services.TagUpdate{Name: &clash})
		assert.ErrorIs(t, err, services.ErrConflict)

		// renaming a tag to a different case of its own name is allowed
		publisher.On("Publish", wsChannel, eventOfType(services.EventTagUpdated)).Return().Twice()
		same := "BUG"
		updated, err := tags.UpdateTag(ctx, f.org.ID, tag.ID, services.TagUpdate{Name: &same})
		require.NoError(t, err)
		assert.Equal(t, "BUG", updated.Name)

		red := "#FF0000"
		updated, err = tags.UpdateTag(ctx, f.org.ID, tag.ID, services.TagUpdate{Color: &red})
		require.NoError(t, err)
		assert.Equal(t, red, *updated.Color)
	})

	t.Run("List is sorted by name", func(t *testing.T) {
		list, err := tags.ListTags(ctx, f.org.ID, f.workspace.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "BUG", list[0].Name)
		assert.Equal(t, "feature", list[1].Name)
	})

	t.Run("Delete notifies with the id", func(t *testing.T) {
		publisher.On("Publish", wsChannel, services.Event{Type: services.EventTagDeleted, ID: tag.ID}).Return().Once()

		require.NoError(t, tags.DeleteTag(ctx, f.org.ID, tag.ID))
		assert.ErrorIs(t, tags.DeleteTag(ctx, f.org.ID, tag.ID), services.ErrNotFound)

		publisher.AssertExpectations(t)
	})

	t.Run("Other org cannot see the workspace", func(t *testing.T) {
		_, otherOrg := f.otherOrg(t)
		_, err := tags.ListTags(ctx, otherOrg.ID, f.workspace.ID)
		assert.ErrorIs(t, err, services.ErrNotFound)
	})

	publisher.AssertNumberOfCalls(t, "Publish", 6)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, eventOfType(services.EventProjectCreated))
}
