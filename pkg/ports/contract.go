package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	key := "contract-test-root-" + time.Now().Format("20060102150405")

	newSnapshot := func(color string) *domain.Snapshot {
		box := domain.NewSnapshot(domain.Tag("box"), domain.Props{"color": color}, domain.EffectUpdate)
		box.Children = append(box.Children,
			domain.NewSnapshot(domain.Tag(domain.TextTag), domain.Props{domain.KeyNodeValue: "hello"}, domain.EffectPlace))
		return box
	}

	t.Run("Save and Load", func(t *testing.T) {
		err := store.Save(ctx, key, newSnapshot("red"))
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "box", loaded.Kind)
		assert.Equal(t, "red", loaded.Props["color"])
		assert.Equal(t, "update", loaded.Effect)
		require.Len(t, loaded.Children, 1)
		assert.Equal(t, "hello", loaded.Children[0].Text)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, newSnapshot("blue")))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "blue", loaded.Props["color"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, newSnapshot("red")))

		err := store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := key + "-1"
		id2 := key + "-2"
		_ = store.Save(ctx, id1, newSnapshot("red"))
		_ = store.Save(ctx, id2, newSnapshot("red"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}
