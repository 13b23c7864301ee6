package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoDigest is returned by LatestDigest when nothing has been generated yet.
var ErrNoDigest = errors.New("no digest in cache")

type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	c := &Cache{writeDB: writeDB}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}

	// The read handle is opened after the schema exists: a read-only
	// connection cannot create the file.
	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	c.readDB = readDB
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			id         TEXT PRIMARY KEY,
			category   TEXT NOT NULL,
			source     TEXT NOT NULL,
			title      TEXT NOT NULL,
			url        TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			summary    TEXT NOT NULL DEFAULT '',
			published  DATETIME,
			fetched_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_articles_fetched ON articles(fetched_at DESC);
		CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);

		CREATE TABLE IF NOT EXISTS digests (
			id           TEXT PRIMARY KEY,
			generated_at DATETIME NOT NULL,
			intro        TEXT NOT NULL DEFAULT '',
			output       TEXT NOT NULL DEFAULT '',
			world        INTEGER NOT NULL DEFAULT 0,
			national     INTEGER NOT NULL DEFAULT 0,
			local        INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_digests_generated ON digests(generated_at DESC);

		CREATE TABLE IF NOT EXISTS digest_articles (
			digest_id  TEXT NOT NULL,
			article_id TEXT NOT NULL,
			category   TEXT NOT NULL,
			position   INTEGER NOT NULL,
			PRIMARY KEY (digest_id, article_id)
		);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	return errors.Join(errs...)
}

// ts normalizes times so that stored values compare lexically.
func ts(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return ts(*t)
}

const upsertArticleSQL = `
	INSERT INTO articles (id, category, source, title, url, content, summary, published, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		summary = CASE WHEN excluded.summary != '' THEN excluded.summary ELSE articles.summary END,
		fetched_at = excluded.fetched_at`

func upsert(stmt *sql.Stmt, a article.Article, fetchedAt time.Time) error {
	_, err := stmt.Exec(a.ID(), string(a.Category), a.Source, a.Title, a.URL, a.Content, a.Summary, nullableTime(a.Published), ts(fetchedAt))
	if err != nil {
		return fmt.Errorf("upserting article %s: %w", a.URL, err)
	}
	return nil
}

// UpsertArticles stores articles keyed by ID. A stored summary survives an
// update that carries none.
func (c *Cache) UpsertArticles(articles []article.Article, fetchedAt time.Time) error {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertArticleSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range articles {
		if err := upsert(stmt, a, fetchedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveDigest records d and its articles as one run and returns the run ID.
func (c *Cache) SaveDigest(d *article.Digest, output string) (string, error) {
	id := uuid.NewString()

	tx, err := c.writeDB.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO digests (id, generated_at, intro, output, world, national, local)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, ts(d.GeneratedAt), d.Intro, output,
		len(d.Articles[article.World]), len(d.Articles[article.National]), len(d.Articles[article.Local]))
	if err != nil {
		return "", fmt.Errorf("inserting digest: %w", err)
	}

	artStmt, err := tx.Prepare(upsertArticleSQL)
	if err != nil {
		return "", err
	}
	defer artStmt.Close()

	linkStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO digest_articles (digest_id, article_id, category, position)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer linkStmt.Close()

	for _, cat := range article.Priority {
		for i, a := range d.Articles[cat] {
			if err := upsert(artStmt, a, d.GeneratedAt); err != nil {
				return "", err
			}
			if _, err := linkStmt.Exec(id, a.ID(), string(cat), i); err != nil {
				return "", fmt.Errorf("linking article %s: %w", a.URL, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Summaries returns the stored summaries for the given article IDs.
// IDs without a summary are absent from the map.
func (c *Cache) Summaries(ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := c.readDB.Query(
		"SELECT id, summary FROM articles WHERE summary != '' AND id IN ("+strings.Join(placeholders, ",")+")", //nolint:gosec
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, summary string
		if err := rows.Scan(&id, &summary); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		out[id] = summary
	}
	return out, rows.Err()
}

func (c *Cache) ListDigests(limit int) ([]DigestRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.readDB.Query(`
		SELECT id, generated_at, intro, output, world, national, local
		FROM digests ORDER BY generated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying digests: %w", err)
	}
	defer rows.Close()

	var records []DigestRecord
	for rows.Next() {
		var r DigestRecord
		if err := rows.Scan(&r.ID, &r.GeneratedAt, &r.Intro, &r.Output, &r.World, &r.National, &r.Local); err != nil {
			return nil, fmt.Errorf("scanning digest: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// LatestDigest rebuilds the most recently generated digest.
func (c *Cache) LatestDigest() (*article.Digest, error) {
	var (
		id string
		d  = &article.Digest{Articles: article.NewCollection()}
	)
	err := c.readDB.QueryRow(`SELECT id, generated_at, intro FROM digests ORDER BY generated_at DESC LIMIT 1`).
		Scan(&id, &d.GeneratedAt, &d.Intro)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDigest
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest digest: %w", err)
	}

	rows, err := c.readDB.Query(`
		SELECT da.category, a.source, a.title, a.url, a.content, a.summary, a.published
		FROM digest_articles da JOIN articles a ON a.id = da.article_id
		WHERE da.digest_id = ?
		ORDER BY da.position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying digest articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a         article.Article
			cat       string
			published sql.NullTime
		)
		if err := rows.Scan(&cat, &a.Source, &a.Title, &a.URL, &a.Content, &a.Summary, &published); err != nil {
			return nil, fmt.Errorf("scanning digest article: %w", err)
		}
		a.Category = article.Category(cat)
		if published.Valid {
			t := published.Time
			a.Published = &t
		}
		d.Articles[a.Category] = append(d.Articles[a.Category], a)
	}
	return d, rows.Err()
}

func (c *Cache) GetArticles(opts QueryOpts) ([]article.Article, error) {
	var (
		where []string
		args  []interface{}
	)

	if !opts.Since.IsZero() {
		where = append(where, "fetched_at >= ?")
		args = append(args, ts(opts.Since))
	}

	if len(opts.Sources) > 0 {
		placeholders := make([]string, len(opts.Sources))
		for i, s := range opts.Sources {
			placeholders[i] = "?"
			args = append(args, s)
		}
		where = append(where, "source IN ("+strings.Join(placeholders, ",")+")") //nolint:gosec
	}

	if opts.Category != "" {
		where = append(where, "category = ?")
		args = append(args, opts.Category)
	}

	if opts.Search != "" {
		where = append(where, "(title LIKE ? OR content LIKE ? OR summary LIKE ?)")
		term := "%" + opts.Search + "%"
		args = append(args, term, term, term)
	}

	query := "SELECT category, source, title, url, content, summary, published FROM articles"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY fetched_at DESC, published DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := c.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var articles []article.Article
	for rows.Next() {
		var (
			a         article.Article
			cat       string
			published sql.NullTime
		)
		if err := rows.Scan(&cat, &a.Source, &a.Title, &a.URL, &a.Content, &a.Summary, &published); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		a.Category = article.Category(cat)
		if published.Valid {
			t := published.Time
			a.Published = &t
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// RecentTitles returns titles fetched since the given time, newest first.
func (c *Cache) RecentTitles(since time.Time) ([]string, error) {
	arts, err := c.GetArticles(QueryOpts{Since: since, Limit: 1000})
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(arts))
	for i, a := range arts {
		titles[i] = a.Title
	}
	return titles, nil
}

// NeedsRefresh reports whether the last digest run is older than interval.
func (c *Cache) NeedsRefresh(interval time.Duration) bool {
	var value string
	err := c.readDB.QueryRow("SELECT value FROM meta WHERE key = 'last_refresh'").Scan(&value)
	if err != nil {
		return true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return true
	}
	return time.Since(t) > interval
}

func (c *Cache) SetLastRefresh(t time.Time) error {
	_, err := c.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES ('last_refresh', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, t.UTC().Format(time.RFC3339))
	return err
}

// Prune deletes digests and articles older than retention, keeping any
// article still referenced by a surviving digest. It returns the number of
// articles removed.
func (c *Cache) Prune(retention time.Duration) (int64, error) {
	cutoff := ts(time.Now().Add(-retention))

	tx, err := c.writeDB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM digests WHERE generated_at < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("pruning digests: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM digest_articles WHERE digest_id NOT IN (SELECT id FROM digests)`); err != nil {
		return 0, fmt.Errorf("pruning digest links: %w", err)
	}
	res, err := tx.Exec(`
		DELETE FROM articles
		WHERE fetched_at < ?
		  AND id NOT IN (SELECT article_id FROM digest_articles)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning articles: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if deleted > 0 {
		if _, err := c.writeDB.Exec("VACUUM"); err != nil {
			return deleted, fmt.Errorf("vacuum: %w", err)
		}
	}
	return deleted, nil
}

func (c *Cache) Stats(dbPath string) (Stats, error) {
	var s Stats
	err := c.readDB.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM articles),
			(SELECT COUNT(*) FROM articles WHERE summary != ''),
			(SELECT COUNT(*) FROM digests)`).Scan(&s.Articles, &s.Summaries, &s.Digests)
	if err != nil {
		return s, fmt.Errorf("counting rows: %w", err)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return s, fmt.Errorf("stat cache file: %w", err)
	}
	s.SizeBytes = info.Size()
	return s, nil
}
