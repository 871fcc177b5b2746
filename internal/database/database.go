// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/wfoster/partyhub/internal/game"
)

// Pool is the global Postgres connection pool. It stays nil unless
// DATABASE_URL is set; the embedded question bank is used then.
var Pool *pgxpool.Pool

// Connect initializes the pool from DATABASE_URL. Returns nil without
// connecting when the variable is unset.
func Connect(ctx context.Context) error {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("unable to reach Postgres: %w", err)
	}
	Pool = pool
	return nil
}

// Close releases the pool, if connected.
func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
	}
}

// LoadQuestionBank reads the trivia questions table into a bank. Falls back
// to the embedded bank when no database is configured or the table is empty.
//
// Expected schema:
//
//	CREATE TABLE trivia_questions (
//	    category TEXT NOT NULL,
//	    question TEXT NOT NULL,
//	    answer   TEXT NOT NULL
//	);
func LoadQuestionBank(ctx context.Context) game.QuestionBank {
	if Pool == nil {
		return game.DefaultBank()
	}

	rows, err := Pool.Query(ctx, `SELECT category, question, answer FROM trivia_questions`)
	if err != nil {
		logrus.Warnf("database: failed to query trivia questions, using embedded bank: %v", err)
		return game.DefaultBank()
	}
	defer rows.Close()

	bank := make(game.QuestionBank)
	for rows.Next() {
		var category, question, answer string
		if err := rows.Scan(&category, &question, &answer); err != nil {
			logrus.Warnf("database: failed to scan trivia question row: %v", err)
			continue
		}
		bank[category] = append(bank[category], game.Question{Text: question, Answer: answer})
	}
	if err := rows.Err(); err != nil {
		logrus.Warnf("database: trivia question scan aborted, using embedded bank: %v", err)
		return game.DefaultBank()
	}
	if len(bank) == 0 {
		return game.DefaultBank()
	}
	return bank
}
