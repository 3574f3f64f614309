package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certready/certready-backend/internal/config"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// FraudWorker persists fraud events from the fraud queue in batches. Events
// are produced by the submission path when an answer targets a locked
// question; persistence is async so detection never waits on PostgreSQL.
type FraudWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewFraudWorker creates a new FraudWorker.
func NewFraudWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *FraudWorker {
	return &FraudWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "fraud_worker").Logger(),
	}
}

type fraudPayload struct {
	ExamID        uuid.UUID `json:"exam_id"`
	UserID        uuid.UUID `json:"user_id"`
	QuestionID    uuid.UUID `json:"question_id"`
	QuestionIndex int       `json:"question_index"`
	Phase         string    `json:"phase"`
	DetectedAt    time.Time `json:"detected_at"`
}

// Start begins the batching worker loop. Call in a goroutine.
func (w *FraudWorker) Start(ctx context.Context) {
	w.log.Info().Msg("FraudWorker started")

	buffer := make([]*fraudPayload, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check flush conditions (time or size).
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Check context for graceful shutdown.
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from redis. BLPop blocks for 1 second.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.FraudEventsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer.
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload fraudPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed fraud event")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// flushSafe attempts bulk insert, then falls back to row-by-row with requeue.
func (w *FraudWorker) flushSafe(ctx context.Context, batch []*fraudPayload) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *FraudWorker) bulkInsert(ctx context.Context, batch []*fraudPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		rows = append(rows, []interface{}{
			p.ExamID, p.UserID, p.QuestionID, p.QuestionIndex, p.Phase, p.DetectedAt,
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"fraud_events"},
		[]string{"exam_id", "user_id", "question_id", "question_index", "phase", "detected_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *FraudWorker) fallbackInsert(ctx context.Context, batch []*fraudPayload) {
	requeueList := make([]*fraudPayload, 0)

	for _, p := range batch {
		_, err := w.pool.Exec(ctx,
			`INSERT INTO fraud_events (exam_id, user_id, question_id, question_index, phase, detected_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ExamID, p.UserID, p.QuestionID, p.QuestionIndex, p.Phase, p.DetectedAt,
		)
		if err != nil {
			w.log.Error().Err(err).Str("user_id", p.UserID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, p)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *FraudWorker) requeue(ctx context.Context, items []*fraudPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.FraudEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue fraud events. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed fraud events back to Redis")
	// Avoid thrashing if the DB is down hard.
	time.Sleep(2 * time.Second)
}

func (w *FraudWorker) shutdown(buffer []*fraudPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
