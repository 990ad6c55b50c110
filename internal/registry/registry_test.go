package registry

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go-edgedupe/internal/scrape"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSubredditLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	sub, err := store.AddSubreddit(ctx, "r/EarthPorn")
	require.NoError(t, err)
	assert.Equal(t, "EarthPorn", sub.Name)
	assert.Nil(t, sub.WebhookID)

	_, err = store.AddSubreddit(ctx, "earthporn")
	assert.ErrorIs(t, err, ErrExists, "names are case-insensitive")

	got, err := store.Subreddit(ctx, "EARTHPORN")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	n, err := store.RemoveSubreddit(ctx, "/r/earthporn")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Subreddit(ctx, "EarthPorn")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWebhookLookup(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	wh, err := store.AddWebhook(ctx, "photos", "https://hooks.example.com/1")
	require.NoError(t, err)

	for _, ref := range []string{"photos", "PHOTOS", "https://hooks.example.com/1", strconv.FormatInt(wh.ID, 10)} {
		got, err := store.Webhook(ctx, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, *wh, *got, ref)
	}

	_, err = store.Webhook(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.AddWebhook(ctx, "other", "https://hooks.example.com/1")
	assert.ErrorIs(t, err, ErrExists)

	_, err = store.AddWebhook(ctx, "42", "https://hooks.example.com/2")
	assert.Error(t, err)
}

func TestSetWebhookAndSources(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.AddSubreddit(ctx, "pics")
	require.NoError(t, err)
	_, err = store.AddSubreddit(ctx, "art")
	require.NoError(t, err)
	wh, err := store.AddWebhook(ctx, "main", "https://hooks.example.com/main")
	require.NoError(t, err)

	sub, err := store.SetWebhook(ctx, "pics", "main")
	require.NoError(t, err)
	require.NotNil(t, sub.WebhookID)
	assert.Equal(t, wh.ID, *sub.WebhookID)

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []scrape.Source{
		{Name: "pics", WebhookURL: "https://hooks.example.com/main"},
		{Name: "art", WebhookURL: ""},
	}, sources)

	sub, err = store.SetWebhook(ctx, "pics", "None")
	require.NoError(t, err)
	assert.Nil(t, sub.WebhookID)

	_, err = store.SetWebhook(ctx, "pics", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.SetWebhook(ctx, "unknown", "main")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveWebhookUnlinks(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.AddSubreddit(ctx, "pics")
	require.NoError(t, err)
	_, err = store.AddWebhook(ctx, "main", "https://hooks.example.com/main")
	require.NoError(t, err)
	_, err = store.SetWebhook(ctx, "pics", "main")
	require.NoError(t, err)

	require.NoError(t, store.RemoveWebhook(ctx, "main"))

	sub, err := store.Subreddit(ctx, "pics")
	require.NoError(t, err)
	assert.Nil(t, sub.WebhookID)

	hooks, err := store.Webhooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, hooks)

	assert.ErrorIs(t, store.RemoveWebhook(ctx, "main"), ErrNotFound)
}

func TestSubredditsOrder(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for _, name := range []string{"b", "a", "c"} {
		_, err := store.AddSubreddit(ctx, name)
		require.NoError(t, err)
	}
	subs, err := store.Subreddits(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "b", subs[0].Name)
	assert.Equal(t, "c", subs[2].Name)
}

func TestNormalizeSubreddit(t *testing.T) {
	tests := map[string]string{
		"pics":    "pics",
		"r/pics":  "pics",
		"/r/pics": "pics",
		"R/pics":  "pics",
		" pics ":  "pics",
		"rx":      "rx",
		"r/":      "r/",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeSubreddit(in), in)
	}
}
