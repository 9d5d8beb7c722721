// Package store implements CacheStore (spec §4.5, C5): a durable, embedded,
// transactional cache for paginated page ranges, backed by
// zombiezen.com/go/sqlite, the same SQLite binding the teacher uses for its
// own KDF/container inspection tooling.
package store

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"pagereader/engerr"
	"pagereader/metrics"
	"pagereader/paginate"
)

// Meta is the spec §3 Meta value.
type Meta struct {
	SettingsKey        string
	LastProcessedIndex int
	IsComplete         bool
	TotalPages         int
	HasTotalPages      bool
	ViewWidth          float64
	ViewHeight         float64
	LastUpdated        time.Time
}

// Store is the process-wide CacheStore singleton (§5: "CacheStore is
// process-wide singleton, protected by the database's own locking").
type Store struct {
	pool *sqlitex.Pool
}

// Open creates or attaches to a SQLite database at path, enabling WAL mode
// and a busy timeout on every pooled connection, then runs idempotent
// migrations.
func Open(path string) (*Store, error) {
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: 4,
		PrepareConn: func(conn *sqlite.Conn) error {
			conn.SetBusyTimeout(metrics.StoreBusyTimeoutSeconds * time.Second)
			return sqlitex.ExecuteTransient(conn, `PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`, nil)
		},
	})
	if err != nil {
		return nil, engerr.Wrap(engerr.KindStoreCorrupt, "open cache store", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS page_cache (
	book_hash    TEXT NOT NULL,
	settings_key TEXT NOT NULL,
	page_number  INTEGER NOT NULL,
	start_index  INTEGER NOT NULL,
	end_index    INTEGER NOT NULL,
	content      TEXT,
	last_updated REAL NOT NULL,
	PRIMARY KEY (book_hash, settings_key, page_number)
);

CREATE INDEX IF NOT EXISTS idx_page_cache_ordered
	ON page_cache (book_hash, settings_key, page_number);

CREATE TABLE IF NOT EXISTS page_meta (
	book_hash            TEXT NOT NULL,
	settings_key         TEXT NOT NULL,
	last_processed_index INTEGER NOT NULL,
	is_complete          INTEGER NOT NULL DEFAULT 0,
	total_pages          INTEGER,
	view_width           REAL NULL,
	view_height          REAL NULL,
	last_updated         REAL NOT NULL,
	PRIMARY KEY (book_hash, settings_key)
);
`

func (s *Store) migrate() error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return engerr.Wrap(engerr.KindStoreCorrupt, "take connection for migration", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return engerr.Wrap(engerr.KindStoreCorrupt, "run migrations", err)
	}
	return nil
}

// UpsertBatch commits a batch of pages plus the updated meta row atomically
// (spec §4.5: "Either all effects of the batch are visible or none are").
// A busy database surfaces as engerr.KindStoreBusy so BackgroundWorker can
// apply its retry policy (§5).
func (s *Store) UpsertBatch(ctx context.Context, bookHash, settingsKey string, viewport metrics.ViewportSize, pages []paginate.PageRange, lastProcessedIndex int, isComplete bool, totalPages int, hasTotalPages bool) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return classifyTakeErr(err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteTransient(conn, "BEGIN IMMEDIATE;", nil); err != nil {
		return classifyBusy(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlitex.ExecuteTransient(conn, "ROLLBACK;", nil)
		}
	}()

	now := time.Now().Unix()
	for _, p := range pages {
		var content any
		if p.HasContent {
			content = p.Content
		}
		err := sqlitex.Execute(conn, `
			INSERT INTO page_cache (book_hash, settings_key, page_number, start_index, end_index, content, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(book_hash, settings_key, page_number) DO UPDATE SET
				start_index = excluded.start_index,
				end_index   = excluded.end_index,
				content     = excluded.content,
				last_updated = excluded.last_updated;`,
			&sqlitex.ExecOptions{Args: []any{bookHash, settingsKey, p.PageNumber, p.StartIndex, p.EndIndex, content, now}})
		if err != nil {
			return engerr.Wrap(engerr.KindStoreCorrupt, "upsert page_cache row", err)
		}
	}

	var totalPagesArg any
	if hasTotalPages {
		totalPagesArg = totalPages
	}
	err = sqlitex.Execute(conn, `
		INSERT INTO page_meta (book_hash, settings_key, last_processed_index, is_complete, total_pages, view_width, view_height, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_hash, settings_key) DO UPDATE SET
			last_processed_index = excluded.last_processed_index,
			is_complete          = excluded.is_complete,
			total_pages          = excluded.total_pages,
			view_width           = excluded.view_width,
			view_height          = excluded.view_height,
			last_updated         = excluded.last_updated;`,
		&sqlitex.ExecOptions{Args: []any{bookHash, settingsKey, lastProcessedIndex, boolToInt(isComplete), totalPagesArg, viewport.Width, viewport.Height, now}})
	if err != nil {
		return engerr.Wrap(engerr.KindStoreCorrupt, "upsert page_meta row", err)
	}

	if err := sqlitex.ExecuteTransient(conn, "COMMIT;", nil); err != nil {
		return classifyBusy(err)
	}
	committed = true
	return nil
}

// FetchPage returns a single page, or found=false if not cached.
func (s *Store) FetchPage(ctx context.Context, bookHash, settingsKey string, pageNumber int) (page paginate.PageRange, found bool, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return paginate.PageRange{}, false, classifyTakeErr(err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		SELECT page_number, start_index, end_index, content FROM page_cache
		WHERE book_hash = ? AND settings_key = ? AND page_number = ?;`,
		&sqlitex.ExecOptions{
			Args: []any{bookHash, settingsKey, pageNumber},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				page = paginate.PageRange{
					PageNumber: int(stmt.ColumnInt64(0)),
					StartIndex: int(stmt.ColumnInt64(1)),
					EndIndex:   int(stmt.ColumnInt64(2)),
				}
				if stmt.ColumnType(3) != sqlite.TypeNull {
					page.Content = stmt.ColumnText(3)
					page.HasContent = true
				}
				return nil
			},
		})
	if err != nil {
		return paginate.PageRange{}, false, engerr.Wrap(engerr.KindStoreCorrupt, "fetch page", err)
	}
	return page, found, nil
}

// FetchPageCount returns how many pages are currently cached for the key.
func (s *Store) FetchPageCount(ctx context.Context, bookHash, settingsKey string) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, classifyTakeErr(err)
	}
	defer s.pool.Put(conn)

	count := 0
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM page_cache WHERE book_hash = ? AND settings_key = ?;`,
		&sqlitex.ExecOptions{
			Args: []any{bookHash, settingsKey},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = int(stmt.ColumnInt64(0))
				return nil
			},
		})
	if err != nil {
		return 0, engerr.Wrap(engerr.KindStoreCorrupt, "fetch page count", err)
	}
	return count, nil
}

// FetchMeta returns the meta row for the key, or found=false.
func (s *Store) FetchMeta(ctx context.Context, bookHash, settingsKey string) (meta Meta, found bool, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Meta{}, false, classifyTakeErr(err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		SELECT settings_key, last_processed_index, is_complete, total_pages, view_width, view_height, last_updated
		FROM page_meta WHERE book_hash = ? AND settings_key = ?;`,
		&sqlitex.ExecOptions{
			Args: []any{bookHash, settingsKey},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				meta = Meta{
					SettingsKey:        stmt.ColumnText(0),
					LastProcessedIndex: int(stmt.ColumnInt64(1)),
					IsComplete:         stmt.ColumnInt64(2) != 0,
					ViewWidth:          stmt.ColumnFloat(4),
					ViewHeight:         stmt.ColumnFloat(5),
					LastUpdated:        time.Unix(stmt.ColumnInt64(6), 0),
				}
				if stmt.ColumnType(3) != sqlite.TypeNull {
					meta.TotalPages = int(stmt.ColumnInt64(3))
					meta.HasTotalPages = true
				}
				return nil
			},
		})
	if err != nil {
		return Meta{}, false, engerr.Wrap(engerr.KindStoreCorrupt, "fetch meta", err)
	}
	return meta, found, nil
}

// DeleteAllForBook removes every cached settingsKey for a book (e.g. on an
// encoding override, where the canonical text itself changed).
func (s *Store) DeleteAllForBook(ctx context.Context, bookHash string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return classifyTakeErr(err)
	}
	defer s.pool.Put(conn)

	for _, table := range []string{"page_cache", "page_meta"} {
		err := sqlitex.Execute(conn, fmt.Sprintf(`DELETE FROM %s WHERE book_hash = ?;`, table),
			&sqlitex.ExecOptions{Args: []any{bookHash}})
		if err != nil {
			return engerr.Wrap(engerr.KindStoreCorrupt, "delete all for book", err)
		}
	}
	return nil
}

// DeleteAllExcept removes every settingsKey for bookHash other than
// keepSettingsKey, the keep-only sweep run once a new settings job has
// caught up (§12).
func (s *Store) DeleteAllExcept(ctx context.Context, bookHash, keepSettingsKey string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return classifyTakeErr(err)
	}
	defer s.pool.Put(conn)

	for _, table := range []string{"page_cache", "page_meta"} {
		err := sqlitex.Execute(conn, fmt.Sprintf(`DELETE FROM %s WHERE book_hash = ? AND settings_key != ?;`, table),
			&sqlitex.ExecOptions{Args: []any{bookHash, keepSettingsKey}})
		if err != nil {
			return engerr.Wrap(engerr.KindStoreCorrupt, "delete all except", err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func classifyTakeErr(err error) error {
	return engerr.Wrap(engerr.KindStoreCorrupt, "take pooled connection", err)
}

func classifyBusy(err error) error {
	if sqlite.ErrCode(err) == sqlite.ResultBusy {
		return engerr.Wrap(engerr.KindStoreBusy, "database busy", err)
	}
	return engerr.Wrap(engerr.KindStoreCorrupt, "transaction failed", err)
}
