package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/certready/certready-backend/internal/config"
	"github.com/certready/certready-backend/internal/database"
	"github.com/certready/certready-backend/internal/logger"
)

// seedQuestion is the JSON shape expected in the input file.
type seedQuestion struct {
	Text          string          `json:"text"`
	Options       json.RawMessage `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
	Domain        string          `json:"domain"`
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		fmt.Println("Usage: seed-questions <questions.json>")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Str("file", os.Args[1]).Msg("Failed to read questions file")
	}

	var questions []seedQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse questions file")
	}
	if len(questions) == 0 {
		fmt.Println("No questions found in file, nothing to do")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Printf("=== Seeding %d Questions ===\n", len(questions))

	rows := make([][]any, 0, len(questions))
	for i, q := range questions {
		if q.Text == "" || q.CorrectAnswer == "" {
			log.Fatal().Int("index", i).Msg("Question is missing text or correct_answer")
		}
		rows = append(rows, []any{uuid.New(), q.Text, q.Options, q.CorrectAnswer, q.Domain})
	}

	copied, err := pool.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"id", "text", "options", "correct_answer", "domain"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to insert questions")
	}

	fmt.Printf("Success! Inserted %d questions\n", copied)
}
