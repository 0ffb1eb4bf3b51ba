package database

// Roles, slots and signups are JSON text columns. Roles keep whichever
// template shape was written; readers normalize it.

const postgresSchema = `
CREATE TABLE IF NOT EXISTS templates (
	name  TEXT PRIMARY KEY,
	roles TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contents (
	id            BIGSERIAL PRIMARY KEY,
	external_ref  TEXT NOT NULL DEFAULT '',
	channel_ref   TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL,
	template_name TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	slots         TEXT NOT NULL DEFAULT '[]',
	signups       TEXT NOT NULL DEFAULT '[]',
	revision      TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS contents_channel_idx ON contents (channel_ref, id DESC);
CREATE INDEX IF NOT EXISTS contents_external_ref_idx ON contents (external_ref);
`

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS templates (
		name  TEXT PRIMARY KEY,
		roles TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contents (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		external_ref  TEXT NOT NULL DEFAULT '',
		channel_ref   TEXT NOT NULL DEFAULT '',
		name          TEXT NOT NULL,
		template_name TEXT NOT NULL,
		description   TEXT,
		slots         TEXT NOT NULL DEFAULT '[]',
		signups       TEXT,
		revision      TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS contents_channel_idx ON contents (channel_ref, id DESC)`,
	`CREATE INDEX IF NOT EXISTS contents_external_ref_idx ON contents (external_ref)`,
}
