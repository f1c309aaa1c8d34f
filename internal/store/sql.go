package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
	"github.com/kevichi7/bench-sort/internal/apitypes"
)

// SQLStore is the durable Job Store variant: a relational table accessed
// through database/sql, grounded on
// shared/pkg/store/{interface,postgres_jobs,memory}.go's query shapes. The
// driver is chosen from the DSN scheme: postgres:// selects lib/pq, anything
// else is treated as a SQLite file path.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open parses databaseURL, opens the matching driver, sets the connection
// pool size, and runs migrations.
func Open(databaseURL string, maxConns int) (*SQLStore, error) {
	driver, dsn := dialectFor(databaseURL)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if driver == "sqlite3" {
		// SQLite serializes writers regardless; capping at 1 avoids
		// "database is locked" errors under the worker pool's concurrent
		// lease attempts instead of retrying around them.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := Migrate(db, driver); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

func dialectFor(databaseURL string) (driver, dsn string) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return "postgres", databaseURL
	}
	return "sqlite3", databaseURL
}

// ph returns the dialect's positional placeholder for argument index n
// (1-based): "$n" for Postgres, "?" for SQLite.
func (s *SQLStore) ph(n int) string {
	if s.driver == "postgres" {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// forUpdateSkipLocked returns the row-lock clause Lease appends to its
// SELECT: Postgres gets the real SKIP LOCKED lease pattern from §4.7;
// SQLite has no such clause and serializes writers anyway (see Open), so a
// plain, dialect-accepted no-op suffices there.
func (s *SQLStore) forUpdateSkipLocked() string {
	if s.driver == "postgres" {
		return "FOR UPDATE SKIP LOCKED"
	}
	return ""
}

func (s *SQLStore) Enqueue(ctx context.Context, req apitypes.Request) (*apitypes.Job, error) {
	id := uuid.NewString()
	now := time.Now()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("store: marshal request: %w", err)
	}
	algosJSON, err := json.Marshal(req.Algorithms)
	if err != nil {
		return nil, fmt.Errorf("store: marshal algorithms: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO jobs
		(id, status, request_json, created_at, dist, elem_type, repeats, threads, baseline, algos, mode)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10), s.ph(11))

	_, err = s.db.ExecContext(ctx, query,
		id, string(apitypes.JobPending), string(reqJSON), now,
		string(req.Distribution), string(req.ElemType), req.Repeats, req.Threads,
		req.Baseline, string(algosJSON), "in-process")
	if err != nil {
		return nil, fmt.Errorf("store: enqueue: %w", err)
	}

	return &apitypes.Job{
		ID:        id,
		Status:    apitypes.JobPending,
		Request:   req,
		CreatedAt: now,
		Mode:      "in-process",
	}, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*apitypes.Job, error) {
	query := fmt.Sprintf(`SELECT id, status, request_json, result_json, error, created_at,
		started_at, finished_at, duration_ms, mode, state_transitions
		FROM jobs WHERE id = %s`, s.ph(1))
	row := s.db.QueryRowContext(ctx, query, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return job, err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*apitypes.Job, error) {
	var (
		id, status, reqJSON                   string
		resultJSON, errMsg, mode, transitions sql.NullString
		createdAt                             time.Time
		startedAt, finishedAt                 sql.NullTime
		durationMS                            sql.NullInt64
	)
	if err := row.Scan(&id, &status, &reqJSON, &resultJSON, &errMsg, &createdAt,
		&startedAt, &finishedAt, &durationMS, &mode, &transitions); err != nil {
		return nil, err
	}

	job := &apitypes.Job{
		ID:        id,
		Status:    apitypes.JobStatus(status),
		CreatedAt: createdAt,
		Mode:      mode.String,
	}
	if err := json.Unmarshal([]byte(reqJSON), &job.Request); err != nil {
		return nil, fmt.Errorf("store: unmarshal request_json: %w", err)
	}
	if resultJSON.Valid {
		job.Result = []byte(resultJSON.String)
	}
	if errMsg.Valid {
		job.Error = &errMsg.String
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}
	if durationMS.Valid {
		job.DurationMS = &durationMS.Int64
	}
	if transitions.Valid && transitions.String != "" {
		_ = json.Unmarshal([]byte(transitions.String), &job.StateTransitions)
	}
	return job, nil
}

func (s *SQLStore) Cancel(ctx context.Context, id string) (apitypes.JobStatus, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status.Terminal() {
		return job.Status, nil
	}
	if job.Status == apitypes.JobPending {
		query := fmt.Sprintf(`UPDATE jobs SET status = %s, finished_at = %s, error = %s
			WHERE id = %s AND status = %s`,
			s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))
		_, err := s.db.ExecContext(ctx, query, string(apitypes.JobCanceled), time.Now(), "", id, string(apitypes.JobPending))
		if err != nil {
			return "", fmt.Errorf("store: cancel: %w", err)
		}
		return apitypes.JobCanceled, nil
	}
	// Running: the caller's worker cancel registry handles the live
	// cooperative signal; this store only records the eventual outcome via
	// MarkCanceled once the worker observes it.
	return job.Status, nil
}

func (s *SQLStore) ActiveCount(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM jobs WHERE status IN (%s, %s)`, s.ph(1), s.ph(2))
	var n int
	err := s.db.QueryRowContext(ctx, query, string(apitypes.JobPending), string(apitypes.JobRunning)).Scan(&n)
	return n, err
}

func (s *SQLStore) QueueDepth(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM jobs WHERE status = %s`, s.ph(1))
	var n int
	err := s.db.QueryRowContext(ctx, query, string(apitypes.JobPending)).Scan(&n)
	return n, err
}

// Lease implements the single-row lease transaction from §4.7: select the
// oldest pending job with FOR UPDATE SKIP LOCKED (Postgres) so concurrent
// workers never contend on the same row, update it to running, and commit.
func (s *SQLStore) Lease(ctx context.Context, workerID string) (*apitypes.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	selectQuery := fmt.Sprintf(`SELECT id, request_json FROM jobs
		WHERE status = %s ORDER BY created_at ASC LIMIT 1 %s`,
		s.ph(1), s.forUpdateSkipLocked())

	var id, reqJSON string
	err = tx.QueryRowContext(ctx, selectQuery, string(apitypes.JobPending)).Scan(&id, &reqJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: lease select: %w", err)
	}

	now := time.Now()
	updateQuery := fmt.Sprintf(`UPDATE jobs SET status = %s, started_at = %s WHERE id = %s`,
		s.ph(1), s.ph(2), s.ph(3))
	if _, err := tx.ExecContext(ctx, updateQuery, string(apitypes.JobRunning), now, id); err != nil {
		return nil, fmt.Errorf("store: lease update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	var req apitypes.Request
	if err := json.Unmarshal([]byte(reqJSON), &req); err != nil {
		return nil, fmt.Errorf("store: lease unmarshal: %w", err)
	}
	return &apitypes.Job{
		ID:        id,
		Status:    apitypes.JobRunning,
		Request:   req,
		StartedAt: &now,
		Mode:      "in-process",
	}, nil
}

func (s *SQLStore) Complete(ctx context.Context, id string, result []byte) error {
	return s.finish(ctx, id, apitypes.JobDone, result, nil)
}

func (s *SQLStore) Fail(ctx context.Context, id string, errMsg string) error {
	return s.finish(ctx, id, apitypes.JobFailed, nil, &errMsg)
}

func (s *SQLStore) MarkCanceled(ctx context.Context, id string, errMsg string) error {
	return s.finish(ctx, id, apitypes.JobCanceled, nil, &errMsg)
}

func (s *SQLStore) finish(ctx context.Context, id string, status apitypes.JobStatus, result []byte, errMsg *string) error {
	now := time.Now()

	var startedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT started_at, status FROM jobs WHERE id = %s`, s.ph(1)), id).
		Scan(&startedAt, new(string))
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("store: finish lookup: %w", err)
	}

	var durationMS *int64
	if startedAt.Valid {
		d := now.Sub(startedAt.Time).Milliseconds()
		durationMS = &d
	}

	var errVal any
	if errMsg != nil {
		errVal = *errMsg
	}
	// result_json must stay NULL for non-done outcomes so "result present
	// iff status=done" (§4.7 invariant) holds at the SQL layer too, not
	// just in the JSON the caller sees.
	var resultVal any
	if len(result) > 0 {
		resultVal = string(result)
	}

	query := fmt.Sprintf(`UPDATE jobs SET status = %s, result_json = %s, error = %s,
		finished_at = %s, duration_ms = %s
		WHERE id = %s AND status NOT IN (%s, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9))
	_, err = s.db.ExecContext(ctx, query,
		string(status), resultVal, errVal, now, durationMS, id,
		string(apitypes.JobDone), string(apitypes.JobFailed), string(apitypes.JobCanceled))
	if err != nil {
		return fmt.Errorf("store: finish: %w", err)
	}
	return nil
}

// CancelAllPending transitions every pending row to canceled in one
// statement, the SQL half of the shutdown-time cancel broadcast.
func (s *SQLStore) CancelAllPending(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`UPDATE jobs SET status = %s, finished_at = %s, error = %s
		WHERE status = %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4))
	res, err := s.db.ExecContext(ctx, query, string(apitypes.JobCanceled), time.Now(), "", string(apitypes.JobPending))
	if err != nil {
		return 0, fmt.Errorf("store: cancel all pending: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
