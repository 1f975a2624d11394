package core

import (
	"context"
	"errors"
	"testing"

	"github.com/chhz0/polytasks/storage"
	"github.com/chhz0/polytasks/types"
	"github.com/stretchr/testify/require"
)

func TestAdapterLoadMissingKeyIsEmpty(t *testing.T) {
	t.Parallel()

	a := NewAdapter(storage.NewMemoryStorage())
	tasks := a.Load(context.Background())
	require.NotNil(t, tasks)
	require.Empty(t, tasks)
}

func TestAdapterSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := NewAdapter(storage.NewMemoryStorage())
	in := []types.Task{
		{ID: "1", Text: "first", Completed: true},
		{ID: "2", Text: "second", Completed: false},
		{ID: "3", Text: "third", Completed: false},
	}

	require.NoError(t, a.Save(ctx, in))
	require.Equal(t, in, a.Load(ctx))
}

func TestAdapterSaveOverwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := NewAdapter(storage.NewMemoryStorage())
	require.NoError(t, a.Save(ctx, []types.Task{{ID: "1", Text: "a"}}))
	require.NoError(t, a.Save(ctx, nil))
	require.Empty(t, a.Load(ctx))
}

func TestAdapterLoadCorruptValuesAreEmpty(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":   "{not json",
		"object":     `{"id":"1","text":"a","completed":false}`,
		"string":     `"hello"`,
		"number":     `42`,
		"empty text": ``,
	}
	for name, raw := range cases {
		store := storage.NewMemoryStorage()
		require.NoError(t, store.Set(context.Background(), DefaultKey, raw))

		tasks := NewAdapter(store).Load(context.Background())
		require.Empty(t, tasks, name)
	}
}

func TestAdapterLoadSkipsMalformedElements(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStorage()
	raw := `[null, {"id":"1","text":"keep","completed":true}, 7, "x", {}, {"id":"2","text":"also"},` +
		` {"id":"","text":"no id"}, {"id":"3","text":"  "}, {"id":"4"}, {"id":"5","text":"bad","completed":"yes"}]`
	require.NoError(t, store.Set(context.Background(), DefaultKey, raw))

	m := NewManager(context.Background(), NewAdapter(store))
	require.Equal(t, []types.Task{
		{ID: "1", Text: "keep", Completed: true},
		{ID: "2", Text: "also", Completed: false},
	}, m.GetTasks())
	require.Equal(t, 1, m.RemainingCount())

	removed, err := m.RemoveTask(context.Background(), "")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestAdapterLoadAbsorbsReadErrors(t *testing.T) {
	t.Parallel()

	store := &failingStorage{Storage: storage.NewMemoryStorage(), getErr: errors.New("disk gone")}
	require.Empty(t, NewAdapter(store).Load(context.Background()))
}

func TestAdapterClearAndCustomKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStorage()
	a := NewAdapter(store, WithKey("other.key"))
	require.Equal(t, "other.key", a.Key())

	require.NoError(t, a.Save(ctx, []types.Task{{ID: "1", Text: "a"}}))
	_, ok, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, a.Clear(ctx))
	_, ok, err = store.Get(ctx, "other.key")
	require.NoError(t, err)
	require.False(t, ok)
}

// failingStorage 注入读写错误
type failingStorage struct {
	storage.Storage
	getErr error
	setErr error
}

func (s *failingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	return s.Storage.Get(ctx, key)
}

func (s *failingStorage) Set(ctx context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.Storage.Set(ctx, key, value)
}
