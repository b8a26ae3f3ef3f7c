package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    current_phase INTEGER NOT NULL DEFAULT 1,
    current_day INTEGER NOT NULL DEFAULT 1,
    paused_until DATETIME,
    reminder_time TEXT NOT NULL DEFAULT '10:00',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reminders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    phase INTEGER NOT NULL,
    day INTEGER NOT NULL,
    focus TEXT NOT NULL,
    resource TEXT NOT NULL DEFAULT '',
    practice TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_reminders_phase_day ON reminders(phase, day);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
