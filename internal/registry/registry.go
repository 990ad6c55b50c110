// Package registry stores the subreddits being watched and the webhooks
// their unique images are forwarded to, in a SQLite database.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/anatolykoptev/go-edgedupe/internal/scrape"
)

var (
	// ErrNotFound reports a subreddit or webhook reference that matches nothing.
	ErrNotFound = errors.New("registry: not found")

	// ErrExists reports an insert that conflicts with an existing row.
	ErrExists = errors.New("registry: already exists")
)

// NoWebhook is the reference that unlinks a subreddit from its webhook.
const NoWebhook = "none"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS webhook (
	id INTEGER PRIMARY KEY NOT NULL,
	name TEXT COLLATE NOCASE NOT NULL UNIQUE,
	url TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS subreddit (
	id INTEGER PRIMARY KEY NOT NULL,
	name TEXT COLLATE NOCASE NOT NULL UNIQUE,
	webhook_id INTEGER,
	FOREIGN KEY (webhook_id) REFERENCES webhook(id)
);`

// Webhook is a named delivery endpoint.
type Webhook struct {
	ID   int64
	Name string
	URL  string
}

// Subreddit is a watched subreddit. WebhookID is nil while unlinked.
type Subreddit struct {
	ID        int64
	Name      string
	WebhookID *int64
}

// Store is the registry database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the registry at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create registry dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	// One connection: writes are rare and an in-memory database is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create registry schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// AddSubreddit registers name. Returns ErrExists if it is already registered.
func (s *Store) AddSubreddit(ctx context.Context, name string) (*Subreddit, error) {
	name = normalizeSubreddit(name)
	if name == "" {
		return nil, errors.New("subreddit name cannot be empty")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subreddit(name) VALUES(?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return nil, fmt.Errorf("add subreddit %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("subreddit %s: %w", name, ErrExists)
	}
	return s.Subreddit(ctx, name)
}

// RemoveSubreddit deletes name and returns the number of rows removed.
func (s *Store) RemoveSubreddit(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subreddit WHERE name = ?`, normalizeSubreddit(name))
	if err != nil {
		return 0, fmt.Errorf("remove subreddit: %w", err)
	}
	return res.RowsAffected()
}

// Subreddit looks up one subreddit by name.
func (s *Store) Subreddit(ctx context.Context, name string) (*Subreddit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, webhook_id FROM subreddit WHERE name = ?`, normalizeSubreddit(name))
	sub, err := scanSubreddit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subreddit %s: %w", name, ErrNotFound)
	}
	return sub, err
}

// Subreddits lists every subreddit in insertion order.
func (s *Store) Subreddits(ctx context.Context) ([]Subreddit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, webhook_id FROM subreddit ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list subreddits: %w", err)
	}
	defer rows.Close()

	var subs []Subreddit
	for rows.Next() {
		sub, err := scanSubreddit(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// SetWebhook links sub to the webhook named by ref, which may be a name,
// URL, numeric id or NoWebhook.
func (s *Store) SetWebhook(ctx context.Context, sub, ref string) (*Subreddit, error) {
	var webhookID any
	if !strings.EqualFold(ref, NoWebhook) {
		wh, err := s.Webhook(ctx, ref)
		if err != nil {
			return nil, err
		}
		webhookID = wh.ID
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE subreddit SET webhook_id = ? WHERE name = ?`, webhookID, normalizeSubreddit(sub))
	if err != nil {
		return nil, fmt.Errorf("update subreddit %s: %w", sub, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("subreddit %s: %w", sub, ErrNotFound)
	}
	return s.Subreddit(ctx, sub)
}

// AddWebhook registers a webhook. Returns ErrExists if the name or URL is taken.
func (s *Store) AddWebhook(ctx context.Context, name, url string) (*Webhook, error) {
	if name == "" || url == "" {
		return nil, errors.New("webhook name and url are required")
	}
	if _, err := strconv.ParseInt(name, 10, 64); err == nil {
		return nil, fmt.Errorf("webhook name %q cannot be numeric", name)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO webhook(name, url) VALUES(?, ?) ON CONFLICT DO NOTHING`, name, url)
	if err != nil {
		return nil, fmt.Errorf("add webhook %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("webhook %s: %w", name, ErrExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Webhook{ID: id, Name: name, URL: url}, nil
}

// RemoveWebhook unlinks every subreddit using the webhook named by ref,
// then deletes it.
func (s *Store) RemoveWebhook(ctx context.Context, ref string) error {
	wh, err := s.Webhook(ctx, ref)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `UPDATE subreddit SET webhook_id = NULL WHERE webhook_id = ?`, wh.ID); err != nil {
		return fmt.Errorf("unlink webhook %s: %w", wh.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM webhook WHERE id = ?`, wh.ID); err != nil {
		return fmt.Errorf("remove webhook %s: %w", wh.Name, err)
	}
	return tx.Commit()
}

// Webhook resolves ref as a numeric id, a URL or a name, in that order.
func (s *Store) Webhook(ctx context.Context, ref string) (*Webhook, error) {
	query := `SELECT id, name, url FROM webhook WHERE name = ?`
	var arg any = ref
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		query, arg = `SELECT id, name, url FROM webhook WHERE id = ?`, id
	} else if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		query = `SELECT id, name, url FROM webhook WHERE url = ?`
	}

	var wh Webhook
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&wh.ID, &wh.Name, &wh.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("webhook %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook %s: %w", ref, err)
	}
	return &wh, nil
}

// Webhooks lists every webhook.
func (s *Store) Webhooks(ctx context.Context) ([]Webhook, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, url FROM webhook ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var out []Webhook
	for rows.Next() {
		var wh Webhook
		if err := rows.Scan(&wh.ID, &wh.Name, &wh.URL); err != nil {
			return nil, err
		}
		out = append(out, wh)
	}
	return out, rows.Err()
}

// Sources returns every subreddit with its webhook URL, "" when unlinked.
func (s *Store) Sources(ctx context.Context) ([]scrape.Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, COALESCE(w.url, '')
		FROM subreddit s LEFT JOIN webhook w ON w.id = s.webhook_id
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []scrape.Source
	for rows.Next() {
		var src scrape.Source
		if err := rows.Scan(&src.Name, &src.WebhookURL); err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubreddit(row rowScanner) (*Subreddit, error) {
	var (
		sub       Subreddit
		webhookID sql.NullInt64
	)
	if err := row.Scan(&sub.ID, &sub.Name, &webhookID); err != nil {
		return nil, err
	}
	if webhookID.Valid {
		sub.WebhookID = &webhookID.Int64
	}
	return &sub, nil
}

// normalizeSubreddit strips a leading "r/" or "/r/".
func normalizeSubreddit(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	if len(name) > 2 && strings.EqualFold(name[:2], "r/") {
		name = name[2:]
	}
	return name
}
