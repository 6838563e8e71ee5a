package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

const scheduledPostColumns = `id, account_id, content_id, post_index, platforms, payload, due_at, status, error_message, job_handle, created_at, updated_at`

type ScheduledPostRepository struct{ db *sql.DB }

func NewScheduledPostRepository(db *sql.DB) *ScheduledPostRepository {
	return &ScheduledPostRepository{db: db}
}

func (r *ScheduledPostRepository) Create(ctx context.Context, post *model.ScheduledPost) (int64, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	payload, err := json.Marshal(post.Payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}
	// The partial unique index on pending rows arbitrates concurrent creates
	// for the same key: the loser gets no row back instead of a duplicate.
	var id int64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO scheduled_posts (account_id, content_id, post_index, platforms, payload, due_at, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (account_id, content_id, post_index) WHERE status = 'pending' DO NOTHING
		 RETURNING id`,
		post.AccountID, post.ContentID, post.PostIndex, post.Platforms, payload,
		post.DueAt, post.Status, post.CreatedAt, post.UpdatedAt).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("pending schedule already exists for %s/%s/%d: %w",
			post.AccountID, post.ContentID, post.PostIndex, model.ErrScheduleConflict)
	}
	if err != nil {
		return 0, err
	}
	post.ID = id
	return id, nil
}

func (r *ScheduledPostRepository) GetByID(ctx context.Context, id int64) (*model.ScheduledPost, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scheduledPostColumns+` FROM scheduled_posts WHERE id=$1`, id)
	post, err := scanScheduledPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return post, err
}

// FindReusable returns the latest row for the schedule key, any status. The
// caller decides whether it can be reset or a new row is needed.
func (r *ScheduledPostRepository) FindReusable(ctx context.Context, accountID, contentID string, postIndex int) (*model.ScheduledPost, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scheduledPostColumns+` FROM scheduled_posts
		 WHERE account_id=$1 AND content_id=$2 AND post_index=$3
		 ORDER BY updated_at DESC LIMIT 1`,
		accountID, contentID, postIndex)
	post, err := scanScheduledPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return post, err
}

// ResetForReschedule flips the row back to pending with the new intent. The
// stale job handle is cleared in the same statement so a crash between cancel
// and enqueue leaves no dangling reference.
func (r *ScheduledPostRepository) ResetForReschedule(ctx context.Context, id int64, dueAt time.Time, platforms string, payload model.PostPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET due_at=$1, platforms=$2, payload=$3,
			status=$4, error_message=NULL, job_handle=NULL, updated_at=$5
		 WHERE id=$6`,
		dueAt, platforms, body, model.ScheduledPostStatusPending, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("scheduled post %d not found", id)
	}
	return nil
}

func (r *ScheduledPostRepository) SetJobHandle(ctx context.Context, id int64, handle *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET job_handle=$1, updated_at=$2 WHERE id=$3`,
		handle, time.Now().UTC(), id)
	return err
}

func (r *ScheduledPostRepository) MarkTerminal(ctx context.Context, id int64, status string, errMsg *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status=$1, error_message=$2, job_handle=NULL, updated_at=$3 WHERE id=$4`,
		status, errMsg, time.Now().UTC(), id)
	return err
}

func (r *ScheduledPostRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduledPostColumns+` FROM scheduled_posts
		 WHERE status=$1 AND due_at <= $2 ORDER BY due_at ASC LIMIT $3`,
		model.ScheduledPostStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

func (r *ScheduledPostRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduledPostColumns+` FROM scheduled_posts
		 WHERE account_id=$1 ORDER BY due_at DESC LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

func collectScheduledPosts(rows *sql.Rows) ([]*model.ScheduledPost, error) {
	var list []*model.ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, post)
	}
	return list, rows.Err()
}

func scanScheduledPost(row rowScanner) (*model.ScheduledPost, error) {
	post := &model.ScheduledPost{}
	var payload []byte
	var errMsg, handle sql.NullString
	if err := row.Scan(&post.ID, &post.AccountID, &post.ContentID, &post.PostIndex, &post.Platforms,
		&payload, &post.DueAt, &post.Status, &errMsg, &handle, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &post.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload for post %d: %w", post.ID, err)
		}
	}
	if errMsg.Valid {
		post.ErrorMessage = &errMsg.String
	}
	if handle.Valid {
		post.JobHandle = &handle.String
	}
	return post, nil
}

var _ repository.IScheduledPost = (*ScheduledPostRepository)(nil)
