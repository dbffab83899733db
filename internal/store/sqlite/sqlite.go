// Package sqlite implements store.Store on a local SQLite database. It
// keeps the same serialized shape as the file backend: two independent
// collections, timestamps persisted as RFC 3339 text.
package sqlite

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shortspan/shortspan/internal/logger"
	"github.com/shortspan/shortspan/internal/model"
	"github.com/shortspan/shortspan/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS shortened_urls (
    id              TEXT PRIMARY KEY,
    original_url    TEXT NOT NULL,
    short_code      TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    expiry_date     TEXT NOT NULL,
    validity_period INTEGER NOT NULL,
    click_count     INTEGER NOT NULL DEFAULT 0,
    is_custom       INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_urls_code ON shortened_urls (short_code COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS click_data (
    id            TEXT PRIMARY KEY,
    short_code_id TEXT NOT NULL,
    timestamp     TEXT NOT NULL,
    source        TEXT NOT NULL,
    country       TEXT NOT NULL DEFAULT '',
    region        TEXT NOT NULL DEFAULT '',
    city          TEXT NOT NULL DEFAULT '',
    latitude      REAL NOT NULL DEFAULT 0,
    longitude     REAL NOT NULL DEFAULT 0,
    user_agent    TEXT NOT NULL DEFAULT ''
);
`

// Store is a SQLite-backed store.Store.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// New opens (or creates) the database at path and ensures the schema.
// Pass ":memory:" for an in-process throwaway database.
func New(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Store{db: db, log: log.Component("store")}, nil
}

func (s *Store) LoadAliases() ([]model.ShortenedURL, error) {
	rows, err := s.db.Query(`
        SELECT id, original_url, short_code, created_at, expiry_date,
               validity_period, click_count, is_custom
        FROM shortened_urls ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []model.ShortenedURL
	for rows.Next() {
		var u model.ShortenedURL
		var createdAt, expiryDate string
		if err := rows.Scan(&u.ID, &u.OriginalURL, &u.ShortCode, &createdAt,
			&expiryDate, &u.ValidityPeriod, &u.ClickCount, &u.IsCustomCode); err != nil {
			return nil, err
		}
		if u.CreatedAt, err = parseTime(createdAt); err != nil {
			s.log.Warn("skipping alias with bad timestamp", "id", u.ID, "error", err.Error())
			continue
		}
		if u.ExpiryDate, err = parseTime(expiryDate); err != nil {
			s.log.Warn("skipping alias with bad timestamp", "id", u.ID, "error", err.Error())
			continue
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (s *Store) AppendAliases(urls []model.ShortenedURL) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, u := range urls {
		_, err := tx.Exec(`
            INSERT INTO shortened_urls
                (id, original_url, short_code, created_at, expiry_date,
                 validity_period, click_count, is_custom)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.OriginalURL, u.ShortCode, formatTime(u.CreatedAt),
			formatTime(u.ExpiryDate), u.ValidityPeriod, u.ClickCount, u.IsCustomCode)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) UpdateAliasByCode(code string, mutate func(*model.ShortenedURL)) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	row := tx.QueryRow(`
        SELECT id, original_url, short_code, created_at, expiry_date,
               validity_period, click_count, is_custom
        FROM shortened_urls WHERE short_code = ? COLLATE NOCASE`, code)

	var u model.ShortenedURL
	var createdAt, expiryDate string
	err = row.Scan(&u.ID, &u.OriginalURL, &u.ShortCode, &createdAt,
		&expiryDate, &u.ValidityPeriod, &u.ClickCount, &u.IsCustomCode)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return store.ErrNotFound
	}
	if err != nil {
		tx.Rollback()
		return err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		tx.Rollback()
		return err
	}
	if u.ExpiryDate, err = parseTime(expiryDate); err != nil {
		tx.Rollback()
		return err
	}

	mutate(&u)

	_, err = tx.Exec(`
        UPDATE shortened_urls
        SET original_url = ?, short_code = ?, created_at = ?, expiry_date = ?,
            validity_period = ?, click_count = ?, is_custom = ?
        WHERE id = ?`,
		u.OriginalURL, u.ShortCode, formatTime(u.CreatedAt), formatTime(u.ExpiryDate),
		u.ValidityPeriod, u.ClickCount, u.IsCustomCode, u.ID)
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) LoadClicks() ([]model.ClickData, error) {
	rows, err := s.db.Query(`
        SELECT id, short_code_id, timestamp, source, country, region, city,
               latitude, longitude, user_agent
        FROM click_data ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clicks []model.ClickData
	for rows.Next() {
		var c model.ClickData
		var ts string
		if err := rows.Scan(&c.ID, &c.ShortCodeID, &ts, &c.Source,
			&c.Location.Country, &c.Location.Region, &c.Location.City,
			&c.Location.Latitude, &c.Location.Longitude, &c.UserAgent); err != nil {
			return nil, err
		}
		if c.Timestamp, err = parseTime(ts); err != nil {
			s.log.Warn("skipping click with bad timestamp", "id", c.ID, "error", err.Error())
			continue
		}
		clicks = append(clicks, c)
	}
	return clicks, rows.Err()
}

func (s *Store) AppendClick(click model.ClickData) error {
	_, err := s.db.Exec(`
        INSERT INTO click_data
            (id, short_code_id, timestamp, source, country, region, city,
             latitude, longitude, user_agent)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		click.ID, click.ShortCodeID, formatTime(click.Timestamp), click.Source,
		click.Location.Country, click.Location.Region, click.Location.City,
		click.Location.Latitude, click.Location.Longitude, click.UserAgent)
	return err
}

func (s *Store) PruneExpiredAliases(now time.Time) (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM shortened_urls WHERE expiry_date < ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) Close() error { return s.db.Close() }

// timeLayout is RFC 3339 with fixed millisecond width, so stored UTC
// timestamps compare correctly as text (the prune DELETE relies on this).
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

var _ store.Store = (*Store)(nil)
