package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"contentops/internal/config"
	"contentops/internal/database"
	"contentops/internal/services"
)

const (
	jobColumns        = "id, kind, payload, status, attempts, max_attempts, available_at, lease_owner, heartbeat_at, last_error, dedupe_key, created_at, updated_at"
	claimRaceAttempts = 5
)

// ErrLeaseLost is returned when a worker acts on a job it no longer owns.
var ErrLeaseLost = errors.New("job lease lost")

// Enqueuer is the write side of the queue used by producers.
type Enqueuer interface {
	Enqueue(ctx context.Context, req Request) (bool, error)
}

// Options tune retry behaviour.
type Options struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
	// Clock overrides time.Now.
	Clock func() time.Time
}

// Queue manages job persistence over the shared database.
type Queue struct {
	db          *database.DB
	maxAttempts int
	retryBase   time.Duration
	now         func() time.Time
}

// New wraps an open database.
func New(db *database.DB, opts Options) *Queue {
	q := &Queue{
		db:          db,
		maxAttempts: opts.MaxAttempts,
		retryBase:   opts.RetryBaseDelay,
		now:         opts.Clock,
	}
	if q.maxAttempts <= 0 {
		q.maxAttempts = 1
	}
	if q.now == nil {
		q.now = time.Now
	}
	return q
}

// NewFromConfig applies the worker retry settings.
func NewFromConfig(db *database.DB, cfg *config.Config) *Queue {
	return New(db, Options{
		MaxAttempts:    cfg.Workers.MaxAttempts,
		RetryBaseDelay: cfg.Workers.RetryBaseDelayDuration(),
	})
}

func (q *Queue) clock() time.Time {
	return q.now().UTC()
}

// Enqueue inserts a job. When the request carries a dedupe key that an active
// job already holds, nothing is inserted and the result is false.
func (q *Queue) Enqueue(ctx context.Context, req Request) (bool, error) {
	if _, ok := ParseKind(string(req.Kind)); !ok {
		return false, services.Wrap(services.ErrValidation, "queue", "enqueue", fmt.Sprintf("unknown job kind %q", req.Kind), nil)
	}
	payload, err := encodePayload(req.Payload)
	if err != nil {
		return false, err
	}
	now := q.clock()
	insert := q.db.Builder().Insert("jobs").
		Columns("id", "kind", "payload", "status", "attempts", "max_attempts", "available_at", "dedupe_key", "created_at", "updated_at").
		Values(uuid.NewString(), string(req.Kind), payload, string(StatusQueued), 0, q.maxAttempts,
			database.FormatTime(now.Add(req.Delay)), database.NullableString(req.DedupeKey),
			database.FormatTime(now), database.FormatTime(now)).
		Suffix("ON CONFLICT DO NOTHING")
	res, err := q.db.Exec(ctx, insert)
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", req.Kind, err)
	}
	return database.RowsAffected(res) == 1, nil
}

// Claim leases the oldest available job for owner. It returns nil when no job
// is ready. When kinds are given only those kinds are considered.
func (q *Queue) Claim(ctx context.Context, owner string, kinds ...Kind) (*Job, error) {
	for attempt := 0; attempt < claimRaceAttempts; attempt++ {
		now := q.clock()
		pick := q.db.Builder().Select("id").From("jobs").
			Where(sq.Eq{"status": string(StatusQueued)}).
			Where(sq.LtOrEq{"available_at": database.FormatTime(now)}).
			OrderBy("available_at ASC", "created_at ASC").
			Limit(1)
		if len(kinds) > 0 {
			pick = pick.Where(sq.Eq{"kind": kindStrings(kinds)})
		}
		var id string
		if err := q.db.QueryRow(ctx, pick).Scan(&id); err != nil {
			if database.IsNoRows(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("select job: %w", err)
		}

		update := q.db.Builder().Update("jobs").
			Set("status", string(StatusRunning)).
			Set("lease_owner", owner).
			Set("heartbeat_at", database.FormatTime(now)).
			Set("attempts", sq.Expr("attempts + 1")).
			Set("updated_at", database.FormatTime(now)).
			Where(sq.Eq{"id": id, "status": string(StatusQueued)})
		res, err := q.db.Exec(ctx, update)
		if err != nil {
			return nil, fmt.Errorf("claim job %s: %w", id, err)
		}
		if database.RowsAffected(res) == 1 {
			return q.Get(ctx, id)
		}
		// Another worker won the row; pick again.
	}
	return nil, nil
}

// Heartbeat refreshes the lease on a running job.
func (q *Queue) Heartbeat(ctx context.Context, id, owner string) error {
	now := database.FormatTime(q.clock())
	update := q.db.Builder().Update("jobs").
		Set("heartbeat_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id, "lease_owner": owner, "status": string(StatusRunning)})
	return q.execOwned(ctx, update, id, "heartbeat")
}

// Complete marks a running job done.
func (q *Queue) Complete(ctx context.Context, id, owner string) error {
	update := q.db.Builder().Update("jobs").
		Set("status", string(StatusDone)).
		Set("last_error", "").
		Set("updated_at", database.FormatTime(q.clock())).
		Where(sq.Eq{"id": id, "lease_owner": owner, "status": string(StatusRunning)})
	return q.execOwned(ctx, update, id, "complete")
}

// Fail records a failed attempt. Retryable errors requeue the job with
// exponential backoff until max attempts are used; the returned status says
// which way it went.
func (q *Queue) Fail(ctx context.Context, job *Job, owner string, cause error) (Status, error) {
	if job == nil {
		return "", errors.New("job is nil")
	}
	now := q.clock()
	status := FailureStatus(cause, job.Attempts, job.MaxAttempts)
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	update := q.db.Builder().Update("jobs").
		Set("status", string(status)).
		Set("last_error", message).
		Set("lease_owner", "").
		Set("heartbeat_at", nil).
		Set("updated_at", database.FormatTime(now)).
		Where(sq.Eq{"id": job.ID, "lease_owner": owner, "status": string(StatusRunning)})
	if status == StatusQueued {
		update = update.Set("available_at", database.FormatTime(now.Add(RetryDelay(q.retryBase, job.Attempts))))
	}
	if err := q.execOwned(ctx, update, job.ID, "fail"); err != nil {
		return "", err
	}
	return status, nil
}

// ReclaimStale returns running jobs whose heartbeat is older than cutoff to
// the queue. Jobs that already used every attempt are marked dead instead.
func (q *Queue) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	update := q.db.Builder().Update("jobs").
		Set("status", sq.Expr("CASE WHEN attempts >= max_attempts THEN ? ELSE ? END", string(StatusDead), string(StatusQueued))).
		Set("last_error", "lease expired").
		Set("lease_owner", "").
		Set("heartbeat_at", nil).
		Set("updated_at", database.FormatTime(q.clock())).
		Where(sq.Eq{"status": string(StatusRunning)}).
		Where(sq.Lt{"heartbeat_at": database.FormatTime(cutoff.UTC())})
	res, err := q.db.Exec(ctx, update)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return database.RowsAffected(res), nil
}

// Retry moves dead jobs back to queued with a fresh attempt budget. With no
// ids, every dead job is retried.
func (q *Queue) Retry(ctx context.Context, ids ...string) (int64, error) {
	now := database.FormatTime(q.clock())
	update := q.db.Builder().Update("jobs").
		Set("status", string(StatusQueued)).
		Set("attempts", 0).
		Set("last_error", "").
		Set("available_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"status": string(StatusDead)})
	if len(ids) > 0 {
		update = update.Where(sq.Eq{"id": ids})
	}
	res, err := q.db.Exec(ctx, update)
	if err != nil {
		return 0, fmt.Errorf("retry jobs: %w", err)
	}
	return database.RowsAffected(res), nil
}

// PurgeFinished deletes done jobs last updated before cutoff.
func (q *Queue) PurgeFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	del := q.db.Builder().Delete("jobs").
		Where(sq.Eq{"status": string(StatusDone)}).
		Where(sq.Lt{"updated_at": database.FormatTime(cutoff.UTC())})
	res, err := q.db.Exec(ctx, del)
	if err != nil {
		return 0, fmt.Errorf("purge jobs: %w", err)
	}
	return database.RowsAffected(res), nil
}

// Get fetches a job by id.
func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	query := q.db.Builder().Select(jobColumns).From("jobs").Where(sq.Eq{"id": id})
	job, err := scanJob(q.db.QueryRow(ctx, query))
	if database.IsNoRows(err) {
		return nil, services.Wrap(services.ErrNotFound, "queue", "get", "job "+id+" not found", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Filter narrows List.
type Filter struct {
	Statuses []Status
	Kinds    []Kind
	Limit    uint64
}

// List returns the most recently updated jobs matching filter.
func (q *Queue) List(ctx context.Context, filter Filter) ([]*Job, error) {
	query := q.db.Builder().Select(jobColumns).From("jobs").OrderBy("updated_at DESC", "id ASC")
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where(sq.Eq{"status": statuses})
	}
	if len(filter.Kinds) > 0 {
		query = query.Where(sq.Eq{"kind": kindStrings(filter.Kinds)})
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Counts returns the number of jobs per status.
func (q *Queue) Counts(ctx context.Context) (map[Status]int, error) {
	query := q.db.Builder().Select("status", "COUNT(1)").From("jobs").GroupBy("status")
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

func (q *Queue) execOwned(ctx context.Context, stmt sq.Sqlizer, id, op string) error {
	res, err := q.db.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("%s job %s: %w", op, id, err)
	}
	if database.RowsAffected(res) != 1 {
		return fmt.Errorf("%s job %s: %w", op, id, ErrLeaseLost)
	}
	return nil
}

func kindStrings(kinds []Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func scanJob(scanner database.RowScanner) (*Job, error) {
	var (
		job                    Job
		kind, status, payload  string
		availableRaw           string
		heartbeat              sql.NullString
		dedupe                 sql.NullString
		createdRaw, updatedRaw string
	)
	if err := scanner.Scan(&job.ID, &kind, &payload, &status, &job.Attempts, &job.MaxAttempts,
		&availableRaw, &job.LeaseOwner, &heartbeat, &job.LastError, &dedupe, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	job.Kind = Kind(kind)
	job.Status = Status(status)
	job.DedupeKey = dedupe.String
	job.HeartbeatAt = database.ParseNullTime(heartbeat)
	job.AvailableAt, _ = database.ParseTime(availableRaw)
	job.CreatedAt, _ = database.ParseTime(createdRaw)
	job.UpdatedAt, _ = database.ParseTime(updatedRaw)

	var err error
	if job.Payload, err = decodePayload(payload); err != nil {
		return nil, err
	}
	return &job, nil
}
