// Package catalog implements the Catalog Adapter (spec §6): a thin,
// serializable contract over a sqlite-backed store of Video and LibraryItem
// records, with a single-writer/concurrent-reader discipline.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"videopipe/internal/errs"
	"videopipe/internal/logging"
	"videopipe/internal/metrics"
)

const defaultTimeout = 5 * time.Second

// ThumbnailStatus mirrors Video.thumbnail_status (spec §3).
type ThumbnailStatus string

const (
	ThumbnailAbsent     ThumbnailStatus = "absent"
	ThumbnailPending    ThumbnailStatus = "pending"
	ThumbnailInProgress ThumbnailStatus = "in_progress"
	ThumbnailCompleted  ThumbnailStatus = "completed"
	ThumbnailError      ThumbnailStatus = "error"
)

// Video is the catalog's persisted representation of a discovered file
// (spec §3).
type Video struct {
	ID              string
	URL             string
	Title           string
	Duration        float64
	Width           *int
	Height          *int
	FrameRate       *float64
	CodecTag        string
	Bitrate         *int64
	FileSize        *int64
	CustomMetadata  map[string]string
	DateAdded       time.Time
	DateModified    time.Time
	ThumbnailURL    string
	MosaicURL       string
	PreviewURL      string
	ThumbnailStatus ThumbnailStatus
	RelativePath    string
}

// LibraryItemType mirrors LibraryItem.type (spec §3).
type LibraryItemType string

const (
	ItemFolder      LibraryItemType = "folder"
	ItemSmartFolder LibraryItemType = "smart_folder"
	ItemPlaylist    LibraryItemType = "playlist"
)

// LibraryItem is a folder-tree node: a literal folder, a smart folder, or a
// parsed playlist (spec §3).
type LibraryItem struct {
	ID            string
	Name          string
	Type          LibraryItemType
	URL           string
	ParentID      string
	SmartCriteria string // canonical-form serialized SmartCriteria, see smartfolder
	DateCreated   time.Time
	DateModified  time.Time
	LastRefresh   time.Time
}

// Stats is the catalog-wide aggregate used in DiscoveryResult.statistics and
// the /metrics collector (spec §9 / SPEC_FULL §13, adapted from the
// teacher's CalculateStats/IndexStats pattern).
type Stats struct {
	TotalVideos       int
	TotalFolders      int
	TotalSmartFolders int
	TotalPlaylists    int
	MosaicsGenerated  int
	PreviewsGenerated int
}

// Catalog manages all persistence for videos and library items.
type Catalog struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
	txMu   sync.Mutex
	txTime time.Time
}

// Open creates or opens the sqlite catalog at dbPath, applying the same
// WAL-mode pragmas the teacher's database layer uses.
func Open(ctx context.Context, dbPath string) (*Catalog, error) {
	logging.Info("catalog: opening database at %s", dbPath)

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	c := &Catalog{db: db, dbPath: dbPath}
	if err := c.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: schema init: %w", err)
	}

	logging.Info("catalog: initialized at %s", dbPath)
	return c, nil
}

func (c *Catalog) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		duration REAL NOT NULL DEFAULT 0,
		width INTEGER,
		height INTEGER,
		frame_rate REAL,
		codec_tag TEXT,
		bitrate INTEGER,
		file_size INTEGER,
		custom_metadata TEXT,
		date_added INTEGER NOT NULL,
		date_modified INTEGER NOT NULL,
		thumbnail_url TEXT,
		mosaic_url TEXT,
		preview_url TEXT,
		thumbnail_status TEXT NOT NULL DEFAULT 'absent',
		relative_path TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_videos_relative_path ON videos(relative_path);
	CREATE INDEX IF NOT EXISTS idx_videos_title ON videos(title COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS library_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		url TEXT UNIQUE,
		parent_id TEXT,
		smart_criteria TEXT,
		date_created INTEGER NOT NULL,
		date_modified INTEGER NOT NULL,
		last_refresh INTEGER,
		FOREIGN KEY (parent_id) REFERENCES library_items(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_library_items_parent ON library_items(parent_id);
	CREATE INDEX IF NOT EXISTS idx_library_items_type ON library_items(type);

	CREATE TABLE IF NOT EXISTS smart_folder_videos (
		library_item_id TEXT NOT NULL,
		video_id TEXT NOT NULL,
		PRIMARY KEY (library_item_id, video_id),
		FOREIGN KEY (library_item_id) REFERENCES library_items(id) ON DELETE CASCADE,
		FOREIGN KEY (video_id) REFERENCES videos(id) ON DELETE CASCADE
	);
	`
	_, err := c.db.ExecContext(ctx, schema)
	return err
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// BeginBatch starts a transaction for a batch of upserts. Mirrors the
// teacher's BeginBatch/EndBatch split: the write lock is only held while the
// transaction is created, not for its entire duration.
func (c *Catalog) BeginBatch(ctx context.Context) (*sql.Tx, error) {
	c.mu.Lock()
	c.txMu.Lock()
	c.txTime = time.Now()
	c.txMu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// EndBatch commits tx, or rolls it back if runErr is non-nil, and records
// the transaction's duration.
func (c *Catalog) EndBatch(tx *sql.Tx, runErr error) error {
	c.txMu.Lock()
	duration := time.Since(c.txTime).Seconds()
	c.txMu.Unlock()

	if runErr != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", runErr, rbErr)
		}
		return runErr
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// UpsertVideo inserts or updates video within tx.
func (c *Catalog) UpsertVideo(tx *sql.Tx, v *Video) error {
	start := time.Now()
	metadata, err := json.Marshal(v.CustomMetadata)
	if err != nil {
		return fmt.Errorf("catalog: marshal custom_metadata: %w", err)
	}

	query := `
	INSERT INTO videos (id, url, title, duration, width, height, frame_rate, codec_tag,
		bitrate, file_size, custom_metadata, date_added, date_modified,
		thumbnail_url, mosaic_url, preview_url, thumbnail_status, relative_path)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		title = excluded.title,
		duration = excluded.duration,
		width = excluded.width,
		height = excluded.height,
		frame_rate = excluded.frame_rate,
		codec_tag = excluded.codec_tag,
		bitrate = excluded.bitrate,
		file_size = excluded.file_size,
		custom_metadata = excluded.custom_metadata,
		date_modified = excluded.date_modified,
		thumbnail_url = excluded.thumbnail_url,
		mosaic_url = excluded.mosaic_url,
		preview_url = excluded.preview_url,
		thumbnail_status = excluded.thumbnail_status,
		relative_path = excluded.relative_path
	`
	_, err = tx.Exec(query, v.ID, v.URL, v.Title, v.Duration, v.Width, v.Height, v.FrameRate,
		v.CodecTag, v.Bitrate, v.FileSize, string(metadata), v.DateAdded.Unix(), v.DateModified.Unix(),
		nullableString(v.ThumbnailURL), nullableString(v.MosaicURL), nullableString(v.PreviewURL),
		string(v.ThumbnailStatus), v.RelativePath)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues("upsert_video", status).Inc()
	metrics.DBQueryDuration.WithLabelValues("upsert_video").Observe(time.Since(start).Seconds())
	return err
}

// DeleteVideoByURL removes a video row by its URL.
func (c *Catalog) DeleteVideoByURL(ctx context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	_, err := c.db.ExecContext(ctx, "DELETE FROM videos WHERE url = ?", url)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues("delete_video", status).Inc()
	metrics.DBQueryDuration.WithLabelValues("delete_video").Observe(time.Since(start).Seconds())
	return err
}

// FetchVideoByURL returns the video at url, or errs.NotFound if absent.
func (c *Catalog) FetchVideoByURL(ctx context.Context, url string) (*Video, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	row := c.db.QueryRowContext(ctx, videoSelectColumns+" FROM videos WHERE url = ?", url)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, errs.NewLibraryError(errs.NotFound, url, nil)
	}
	return v, err
}

// VideoPredicate filters FetchVideos results in-process; the catalog does
// not attempt to compile arbitrary predicates into SQL.
type VideoPredicate func(*Video) bool

// FetchVideos returns all videos matching predicate (nil matches all),
// sorted by title ascending per spec §5's determinism requirement.
func (c *Catalog) FetchVideos(ctx context.Context, predicate VideoPredicate) ([]*Video, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx, videoSelectColumns+" FROM videos ORDER BY title ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		if predicate == nil || predicate(v) {
			out = append(out, v)
		}
	}
	return out, rows.Err()
}

const videoSelectColumns = `SELECT id, url, title, duration, width, height, frame_rate, codec_tag,
	bitrate, file_size, custom_metadata, date_added, date_modified,
	thumbnail_url, mosaic_url, preview_url, thumbnail_status, relative_path`

type scannable interface {
	Scan(dest ...any) error
}

func scanVideo(row scannable) (*Video, error) {
	var v Video
	var metadata, thumbURL, mosaicURL, previewURL sql.NullString
	var width, height sql.NullInt64
	var frameRate sql.NullFloat64
	var bitrate, fileSize sql.NullInt64
	var dateAdded, dateModified int64

	err := row.Scan(&v.ID, &v.URL, &v.Title, &v.Duration, &width, &height, &frameRate, &v.CodecTag,
		&bitrate, &fileSize, &metadata, &dateAdded, &dateModified,
		&thumbURL, &mosaicURL, &previewURL, &v.ThumbnailStatus, &v.RelativePath)
	if err != nil {
		return nil, err
	}

	if width.Valid {
		w := int(width.Int64)
		v.Width = &w
	}
	if height.Valid {
		h := int(height.Int64)
		v.Height = &h
	}
	if frameRate.Valid {
		v.FrameRate = &frameRate.Float64
	}
	if bitrate.Valid {
		v.Bitrate = &bitrate.Int64
	}
	if fileSize.Valid {
		v.FileSize = &fileSize.Int64
	}
	v.ThumbnailURL = thumbURL.String
	v.MosaicURL = mosaicURL.String
	v.PreviewURL = previewURL.String
	v.DateAdded = time.Unix(dateAdded, 0)
	v.DateModified = time.Unix(dateModified, 0)

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &v.CustomMetadata); err != nil {
			return nil, fmt.Errorf("catalog: unmarshal custom_metadata for %s: %w", v.URL, err)
		}
	}
	return &v, nil
}

// UpsertFolder inserts or updates item within tx (folders are created
// during batch processing, once per unique path, per spec §4.9 step 4).
func (c *Catalog) UpsertFolder(tx *sql.Tx, item *LibraryItem) error {
	query := `
	INSERT INTO library_items (id, name, type, url, parent_id, smart_criteria,
		date_created, date_modified, last_refresh)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		name = excluded.name,
		date_modified = excluded.date_modified
	`
	var lastRefresh any
	if !item.LastRefresh.IsZero() {
		lastRefresh = item.LastRefresh.Unix()
	}
	_, err := tx.Exec(query, item.ID, item.Name, string(item.Type), nullableString(item.URL),
		nullableString(item.ParentID), nullableString(item.SmartCriteria),
		item.DateCreated.Unix(), item.DateModified.Unix(), lastRefresh)
	return err
}

// FetchFolder returns the library item with the given url and type, or
// errs.NotFound if absent.
func (c *Catalog) FetchFolder(ctx context.Context, url string, itemType LibraryItemType) (*LibraryItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	row := c.db.QueryRowContext(ctx, `
		SELECT id, name, type, url, parent_id, smart_criteria, date_created, date_modified, last_refresh
		FROM library_items WHERE url = ? AND type = ?
	`, url, string(itemType))

	item, err := scanFolder(row)
	if err == sql.ErrNoRows {
		return nil, errs.NewLibraryError(errs.NotFound, url, nil)
	}
	return item, err
}

func scanFolder(row scannable) (*LibraryItem, error) {
	var item LibraryItem
	var url, parentID, criteria sql.NullString
	var dateCreated, dateModified int64
	var lastRefresh sql.NullInt64

	err := row.Scan(&item.ID, &item.Name, &item.Type, &url, &parentID, &criteria,
		&dateCreated, &dateModified, &lastRefresh)
	if err != nil {
		return nil, err
	}

	item.URL = url.String
	item.ParentID = parentID.String
	item.SmartCriteria = criteria.String
	item.DateCreated = time.Unix(dateCreated, 0)
	item.DateModified = time.Unix(dateModified, 0)
	if lastRefresh.Valid {
		item.LastRefresh = time.Unix(lastRefresh.Int64, 0)
	}
	return &item, nil
}

// Stats aggregates catalog-wide counts, adapted from the teacher's
// CalculateStats (spec SPEC_FULL §13).
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var s Stats
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos").Scan(&s.TotalVideos); err != nil {
		return s, err
	}
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM library_items WHERE type = ?", string(ItemFolder)).Scan(&s.TotalFolders); err != nil {
		return s, err
	}
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM library_items WHERE type = ?", string(ItemSmartFolder)).Scan(&s.TotalSmartFolders); err != nil {
		return s, err
	}
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM library_items WHERE type = ?", string(ItemPlaylist)).Scan(&s.TotalPlaylists); err != nil {
		return s, err
	}
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos WHERE mosaic_url IS NOT NULL AND mosaic_url != ''").Scan(&s.MosaicsGenerated); err != nil {
		return s, err
	}
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos WHERE preview_url IS NOT NULL AND preview_url != ''").Scan(&s.PreviewsGenerated); err != nil {
		return s, err
	}
	return s, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
