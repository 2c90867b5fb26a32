package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSession(t *testing.T, path string) (*SQLiteStore, *Session) {
	t.Helper()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sess, err := store.Session(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return store, sess
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStore("  ")
	require.Error(t, err)
}

func TestSession_AppendAndList(t *testing.T) {
	t.Parallel()

	_, sess := openSession(t, filepath.Join(t.TempDir(), "data", "translations.db"))
	ctx := context.Background()

	first, err := sess.AppendTranslation(ctx, TranslationRecord{
		VideoName:    "clip.mp4",
		Language:     "French",
		Translation:  "Bonjour\nMonde",
		ArtifactPath: "/out/clip_French.srt",
	})
	require.NoError(t, err)
	assert.Positive(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	_, err = sess.AppendTranslation(ctx, TranslationRecord{
		VideoName: "talk.mov", Language: "German", Translation: "Hallo", ArtifactPath: "/out/talk_German.srt",
	})
	require.NoError(t, err)
	_, err = sess.AppendTranslation(ctx, TranslationRecord{
		VideoName: "clip.mp4", Language: "Spanish", Translation: "Hola\nMundo", ArtifactPath: "/out/clip_Spanish.srt",
	})
	require.NoError(t, err)

	byVideo, err := sess.ListByVideo(ctx, "clip.mp4")
	require.NoError(t, err)
	require.Len(t, byVideo, 2)
	assert.Equal(t, "French", byVideo[0].Language)
	assert.Equal(t, "Bonjour\nMonde", byVideo[0].Translation)
	assert.Equal(t, "/out/clip_French.srt", byVideo[0].ArtifactPath)
	assert.Equal(t, "Spanish", byVideo[1].Language)

	all, err := sess.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Less(t, all[0].ID, all[1].ID)
	assert.Less(t, all[1].ID, all[2].ID)

	none, err := sess.ListByVideo(ctx, "missing.mp4")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSession_DuplicatesAreAppended(t *testing.T) {
	t.Parallel()

	_, sess := openSession(t, filepath.Join(t.TempDir(), "translations.db"))
	ctx := context.Background()

	rec := TranslationRecord{VideoName: "clip.mp4", Language: "French", Translation: "v1", ArtifactPath: "/out/clip_French.srt"}
	_, err := sess.AppendTranslation(ctx, rec)
	require.NoError(t, err)
	rec.Translation = "v2"
	_, err = sess.AppendTranslation(ctx, rec)
	require.NoError(t, err)

	got, err := sess.ListByVideo(ctx, "clip.mp4")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "v1", got[0].Translation)
	assert.Equal(t, "v2", got[1].Translation)
}

func TestSession_AppendFailureWritesNothing(t *testing.T) {
	t.Parallel()

	_, sess := openSession(t, filepath.Join(t.TempDir(), "translations.db"))

	tests := []struct {
		name string
		ctx  func() context.Context
		rec  TranslationRecord
	}{
		{
			name: "missing language",
			ctx:  context.Background,
			rec:  TranslationRecord{VideoName: "clip.mp4", Translation: "x"},
		},
		{
			name: "canceled context",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			rec: TranslationRecord{VideoName: "clip.mp4", Language: "French", Translation: "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sess.AppendTranslation(tt.ctx(), tt.rec)
			require.Error(t, err)
		})
	}

	all, err := sess.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSession_ClosedSession(t *testing.T) {
	t.Parallel()

	_, sess := openSession(t, filepath.Join(t.TempDir(), "translations.db"))
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	_, err := sess.ListAll(context.Background())
	require.Error(t, err)
	_, err = sess.AppendTranslation(context.Background(), TranslationRecord{VideoName: "a", Language: "b"})
	require.Error(t, err)
}

func TestSQLiteStore_ReopenKeepsRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "translations.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	sess, err := store.Session(ctx)
	require.NoError(t, err)
	_, err = sess.AppendTranslation(ctx, TranslationRecord{VideoName: "clip.mp4", Language: "French", Translation: "Bonjour"})
	require.NoError(t, err)
	require.NoError(t, sess.Close())
	require.NoError(t, store.Close())

	_, sess = openSession(t, path)
	all, err := sess.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Bonjour", all[0].Translation)
}

func TestMigrationVersion(t *testing.T) {
	tests := map[string]int{
		"001_translations.sql": 1,
		"012_more.sql":         12,
		"init.sql":             0,
		"7":                    7,
	}
	for name, want := range tests {
		assert.Equal(t, want, migrationVersion(name), name)
	}
}
