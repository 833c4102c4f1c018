package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS threads (
            id SERIAL PRIMARY KEY,
            user1_id INT NOT NULL,
            user2_id INT NOT NULL,
            subject TEXT,
            listing_id INT,
            status TEXT NOT NULL DEFAULT 'active'
                CHECK (status IN ('active', 'archived', 'closed')),
            last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (user1_id < user2_id)
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS threads_pair_listing_idx
            ON threads (user1_id, user2_id, listing_id);`,
		`CREATE INDEX IF NOT EXISTS threads_user1_activity_idx
            ON threads (user1_id, last_message_at DESC);`,
		`CREATE INDEX IF NOT EXISTS threads_user2_activity_idx
            ON threads (user2_id, last_message_at DESC);`,
		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            thread_id INT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
            sender_id INT NOT NULL,
            recipient_id INT NOT NULL,
            body TEXT NOT NULL,
            subject TEXT,
            message_type TEXT NOT NULL DEFAULT 'general'
                CHECK (message_type IN ('inquiry', 'response', 'general')),
            listing_id INT,
            attachments TEXT[] NOT NULL DEFAULT '{}',
            read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_thread_order_idx
            ON messages (thread_id, created_at, id);`,
		`CREATE INDEX IF NOT EXISTS messages_unread_idx
            ON messages (recipient_id, thread_id) WHERE read = FALSE;`,
		`CREATE TABLE IF NOT EXISTS profiles (
            user_id INT PRIMARY KEY,
            full_name TEXT NOT NULL,
            company_name TEXT
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
