package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the PostgreSQL backend. It uses pgx directly (no ORM).
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore on an open pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

const pgContentColumns = `id, external_ref, channel_ref, name, template_name, description, slots, signups, revision`

// CreateContent inserts a content row and returns its generated id.
func (s *PostgresStore) CreateContent(ctx context.Context, c model.NewContent) (int64, error) {
	slots, err := encodeSlots(c.Slots)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRow(ctx,
		`INSERT INTO contents (external_ref, channel_ref, name, template_name, description, slots, signups, revision)
		 VALUES ($1, $2, $3, $4, $5, $6, '[]', $7)
		 RETURNING id`,
		c.ExternalRef, c.ChannelRef, c.Name, c.TemplateName, c.Description, slots, newRevision(),
	).Scan(&id)
	if err != nil {
		return 0, storageErr("insert content", err)
	}
	return id, nil
}

// GetContent returns a content by id or model.ErrContentNotFound.
func (s *PostgresStore) GetContent(ctx context.Context, id int64) (*model.Content, error) {
	row := s.db.QueryRow(ctx, `SELECT `+pgContentColumns+` FROM contents WHERE id = $1`, id)
	return scanPgContent(row, "get content")
}

// GetContentByExternalRef looks a content up by its display handle.
func (s *PostgresStore) GetContentByExternalRef(ctx context.Context, externalRef string) (*model.Content, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+pgContentColumns+` FROM contents WHERE external_ref = $1 ORDER BY id DESC LIMIT 1`,
		externalRef,
	)
	return scanPgContent(row, "get content by external ref")
}

// ListActiveContents returns a channel's contents, newest first.
func (s *PostgresStore) ListActiveContents(ctx context.Context, channelRef string) ([]model.Content, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pgContentColumns+` FROM contents WHERE channel_ref = $1 ORDER BY id DESC`,
		channelRef,
	)
	if err != nil {
		return nil, storageErr("list contents", err)
	}
	defer rows.Close()

	contents := []model.Content{}
	for rows.Next() {
		c, err := scanPgContent(rows, "scan content")
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

func scanPgContent(row pgx.Row, op string) (*model.Content, error) {
	var c model.Content
	var slots, signups string
	err := row.Scan(&c.ID, &c.ExternalRef, &c.ChannelRef, &c.Name, &c.TemplateName, &c.Description, &slots, &signups, &c.Revision)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrContentNotFound
		}
		return nil, storageErr(op, err)
	}
	if err := decodeColumns(&c, slots, signups); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReplaceSlotMatrix overwrites the slot matrix.
func (s *PostgresStore) ReplaceSlotMatrix(ctx context.Context, id int64, revision string, m model.SlotMatrix) (string, error) {
	u, err := encodeUpdate(m, true, nil, false)
	if err != nil {
		return "", err
	}
	return s.write(ctx, id, revision, u)
}

// ReplaceSignups overwrites the waitlist.
func (s *PostgresStore) ReplaceSignups(ctx context.Context, id int64, revision string, signups []model.Signup) (string, error) {
	u, err := encodeUpdate(nil, false, signups, true)
	if err != nil {
		return "", err
	}
	return s.write(ctx, id, revision, u)
}

// ReplaceRoster overwrites slot matrix and waitlist in one write.
func (s *PostgresStore) ReplaceRoster(ctx context.Context, id int64, revision string, m model.SlotMatrix, signups []model.Signup) (string, error) {
	u, err := encodeUpdate(m, true, signups, true)
	if err != nil {
		return "", err
	}
	return s.write(ctx, id, revision, u)
}

// write checks the revision and applies u inside one transaction.
//
// SELECT ... FOR UPDATE locks the content row, so a second writer in any
// process blocks until this transaction ends and then sees the new
// revision, instead of silently overwriting the aggregate.
func (s *PostgresStore) write(ctx context.Context, id int64, revision string, u rosterUpdate) (next string, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", storageErr("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var current string
	err = tx.QueryRow(ctx, `SELECT revision FROM contents WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", model.ErrContentNotFound
		}
		return "", storageErr("lock content row", err)
	}
	if revision != AnyRevision && revision != current {
		err = fmt.Errorf("content %d: %w", id, model.ErrStaleRevision)
		return "", err
	}

	next = newRevision()
	_, err = tx.Exec(ctx,
		`UPDATE contents
		 SET slots = COALESCE($1, slots), signups = COALESCE($2, signups), revision = $3
		 WHERE id = $4`,
		u.slots, u.signups, next, id,
	)
	if err != nil {
		return "", storageErr("update content", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return "", storageErr("commit transaction", err)
	}
	return next, nil
}

// DeleteContent removes a content row.
func (s *PostgresStore) DeleteContent(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM contents WHERE id = $1`, id)
	if err != nil {
		return storageErr("delete content", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrContentNotFound
	}
	return nil
}

// GetTemplate returns the stored roles payload of a template.
func (s *PostgresStore) GetTemplate(ctx context.Context, name string) (*model.TemplateRecord, error) {
	var roles string
	err := s.db.QueryRow(ctx, `SELECT roles FROM templates WHERE name = $1`, name).Scan(&roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTemplateNotFound
		}
		return nil, storageErr("get template", err)
	}
	return &model.TemplateRecord{Name: name, Roles: []byte(roles)}, nil
}

// SaveTemplate inserts or replaces a template wholesale.
func (s *PostgresStore) SaveTemplate(ctx context.Context, name string, parties [][]string) error {
	roles, err := encodeParties(parties)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO templates (name, roles) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET roles = EXCLUDED.roles`,
		name, roles,
	)
	if err != nil {
		return storageErr("save template", err)
	}
	return nil
}

// ListTemplateNames returns every template name, sorted.
func (s *PostgresStore) ListTemplateNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT name FROM templates ORDER BY name`)
	if err != nil {
		return nil, storageErr("list templates", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storageErr("scan templates", err)
	}
	return names, nil
}

// DeleteTemplate removes a template. Contents built from it are untouched.
func (s *PostgresStore) DeleteTemplate(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM templates WHERE name = $1`, name)
	if err != nil {
		return storageErr("delete template", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTemplateNotFound
	}
	return nil
}
