package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
)

// SQLiteStore is the embedded backend, on the modernc.org/sqlite driver
// opened by database.OpenSQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore constructs a SQLiteStore on an open handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteContentColumns = `id, external_ref, channel_ref, name, template_name, description, slots, signups, revision`

// CreateContent inserts a content row and returns its generated id.
func (s *SQLiteStore) CreateContent(ctx context.Context, c model.NewContent) (int64, error) {
	slots, err := encodeSlots(c.Slots)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contents (external_ref, channel_ref, name, template_name, description, slots, signups, revision)
		 VALUES (?, ?, ?, ?, ?, ?, '[]', ?)`,
		c.ExternalRef, c.ChannelRef, c.Name, c.TemplateName, c.Description, slots, newRevision(),
	)
	if err != nil {
		return 0, storageErr("insert content", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert content id", err)
	}
	return id, nil
}

// GetContent returns a content by id or model.ErrContentNotFound.
func (s *SQLiteStore) GetContent(ctx context.Context, id int64) (*model.Content, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteContentColumns+` FROM contents WHERE id = ?`, id)
	return scanSQLiteContent(row, "get content")
}

// GetContentByExternalRef looks a content up by its display handle.
func (s *SQLiteStore) GetContentByExternalRef(ctx context.Context, externalRef string) (*model.Content, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteContentColumns+` FROM contents WHERE external_ref = ? ORDER BY id DESC LIMIT 1`,
		externalRef,
	)
	return scanSQLiteContent(row, "get content by external ref")
}

// ListActiveContents returns a channel's contents, newest first.
func (s *SQLiteStore) ListActiveContents(ctx context.Context, channelRef string) ([]model.Content, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteContentColumns+` FROM contents WHERE channel_ref = ? ORDER BY id DESC`,
		channelRef,
	)
	if err != nil {
		return nil, storageErr("list contents", err)
	}
	defer rows.Close()

	contents := []model.Content{}
	for rows.Next() {
		c, err := scanSQLiteContent(rows, "scan content")
		if err != nil {
			return nil, err
		}
		contents = append(contents, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list contents", err)
	}
	return contents, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteContent(row scanner, op string) (*model.Content, error) {
	var c model.Content
	var description, signups sql.NullString
	var slots string
	err := row.Scan(&c.ID, &c.ExternalRef, &c.ChannelRef, &c.Name, &c.TemplateName, &description, &slots, &signups, &c.Revision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrContentNotFound
		}
		return nil, storageErr(op, err)
	}
	c.Description = description.String
	if err := decodeColumns(&c, slots, signups.String); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReplaceSlotMatrix overwrites the slot matrix.
func (s *SQLiteStore) ReplaceSlotMatrix(ctx context.Context, id int64, revision string, m model.SlotMatrix) (string, error) {
	u, err := encodeUpdate(m, true, nil, false)
	if err != nil {
		return "", err
	}
	return s.write(ctx, id, revision, u)
}

// ReplaceSignups overwrites the waitlist.
func (s *SQLiteStore) ReplaceSignups(ctx context.Context, id int64, revision string, signups []model.Signup) (string, error) {
	u, err := encodeUpdate(nil, false, signups, true)
	if err != nil {
		return "", err
	}
	return s.write(ctx, id, revision, u)
}

// ReplaceRoster overwrites slot matrix and waitlist in one write.
func (s *SQLiteStore) ReplaceRoster(ctx context.Context, id int64, revision string, m model.SlotMatrix, signups []model.Signup) (string, error) {
	u, err := encodeUpdate(m, true, signups, true)
	if err != nil {
		return "", err
	}
	return s.write(ctx, id, revision, u)
}

// write is a compare-and-swap on the revision column. SQLite has no row
// locks, so the check lives in the UPDATE itself.
func (s *SQLiteStore) write(ctx context.Context, id int64, revision string, u rosterUpdate) (next string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", storageErr("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	next = newRevision()
	res, err := tx.ExecContext(ctx,
		`UPDATE contents
		 SET slots = COALESCE(?, slots), signups = COALESCE(?, signups), revision = ?
		 WHERE id = ? AND (? = '' OR revision = ?)`,
		u.slots, u.signups, next, id, revision, revision,
	)
	if err != nil {
		return "", storageErr("update content", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", storageErr("update content", err)
	}
	if n == 0 {
		var exists int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM contents WHERE id = ?`, id).Scan(&exists)
		if err != nil {
			return "", storageErr("check content", err)
		}
		if exists == 0 {
			err = model.ErrContentNotFound
		} else {
			err = fmt.Errorf("content %d: %w", id, model.ErrStaleRevision)
		}
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", storageErr("commit transaction", err)
	}
	return next, nil
}

// DeleteContent removes a content row.
func (s *SQLiteStore) DeleteContent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contents WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete content", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrContentNotFound
	}
	return nil
}

// GetTemplate returns the stored roles payload of a template.
func (s *SQLiteStore) GetTemplate(ctx context.Context, name string) (*model.TemplateRecord, error) {
	var roles string
	err := s.db.QueryRowContext(ctx, `SELECT roles FROM templates WHERE name = ?`, name).Scan(&roles)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTemplateNotFound
		}
		return nil, storageErr("get template", err)
	}
	return &model.TemplateRecord{Name: name, Roles: []byte(roles)}, nil
}

// SaveTemplate inserts or replaces a template wholesale.
func (s *SQLiteStore) SaveTemplate(ctx context.Context, name string, parties [][]string) error {
	roles, err := encodeParties(parties)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO templates (name, roles) VALUES (?, ?)`, name, roles)
	if err != nil {
		return storageErr("save template", err)
	}
	return nil
}

// ListTemplateNames returns every template name, sorted.
func (s *SQLiteStore) ListTemplateNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM templates ORDER BY name`)
	if err != nil {
		return nil, storageErr("list templates", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr("scan template", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list templates", err)
	}
	return names, nil
}

// DeleteTemplate removes a template. Contents built from it are untouched.
func (s *SQLiteStore) DeleteTemplate(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE name = ?`, name)
	if err != nil {
		return storageErr("delete template", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrTemplateNotFound
	}
	return nil
}
