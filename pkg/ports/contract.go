package ports

import (
	"context"
	"testing"
	"time"

	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunProjectStoreContract runs a suite of tests to verify that a ProjectStore
// implementation adheres to the defined interface contract.
func RunProjectStoreContract(t *testing.T, store ProjectStore) {
	ctx := context.Background()
	projectID := "contract-test-project-" + time.Now().Format("20060102150405")

	newProject := func(id string) *domain.Project {
		return &domain.Project{
			ID:   id,
			SCAD: "// Object: box\ntranslate([0, 0, 0]) rotate([0, 0, 0]) cube([1, 1, 1], center=true);",
			STL:  "solid empty\nendsolid empty",
			History: []domain.ConversationEntry{
				{Role: domain.RoleUser, Content: "add a box", CreatedAt: time.Unix(1700000000, 0).UTC()},
				{Role: domain.RoleAssistant, Content: "Added a unit box.", CreatedAt: time.Unix(1700000001, 0).UTC()},
			},
			UpdatedAt: time.Unix(1700000001, 0).UTC(),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		project := newProject(projectID)

		err := store.Save(ctx, projectID, project)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, projectID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, projectID, loaded.ID)
		assert.Equal(t, project.SCAD, loaded.SCAD)
		assert.Equal(t, project.STL, loaded.STL)
		require.Len(t, loaded.History, 2)
		assert.Equal(t, domain.RoleAssistant, loaded.History[1].Role)
		assert.Equal(t, "add a box", loaded.History[0].Content)
		assert.True(t, project.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Loaded snapshots are isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, projectID)
		require.NoError(t, err)
		loaded.SCAD = "mutated"
		loaded.History = append(loaded.History, domain.ConversationEntry{Role: domain.RoleUser})

		again, err := store.Load(ctx, projectID)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.SCAD)
		assert.Len(t, again.History, 2)
	})

	t.Run("Last writer wins", func(t *testing.T) {
		updated := newProject(projectID)
		updated.SCAD = ""
		require.NoError(t, store.Save(ctx, projectID, updated))

		loaded, err := store.Load(ctx, projectID)
		require.NoError(t, err)
		assert.Empty(t, loaded.SCAD)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+projectID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, projectID, newProject(projectID))
		require.NoError(t, err)

		err = store.Delete(ctx, projectID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, projectID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound, "Load after Delete should return ErrProjectNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := projectID + "-1"
		id2 := projectID + "-2"
		_ = store.Save(ctx, id1, newProject(id1))
		_ = store.Save(ctx, id2, newProject(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		projects, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, projects, id1)
		assert.Contains(t, projects, id2)
	})
}
