package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mssql "github.com/microsoft/go-mssqldb"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

type ScheduledPostRepositoryMSSQL struct{ db *sql.DB }

func NewScheduledPostRepositoryMSSQL(db *sql.DB) *ScheduledPostRepositoryMSSQL {
	return &ScheduledPostRepositoryMSSQL{db: db}
}

func (r *ScheduledPostRepositoryMSSQL) Create(ctx context.Context, post *model.ScheduledPost) (int64, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	payload, err := json.Marshal(post.Payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}
	var id int64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO dbo.[scheduled_posts] (account_id, content_id, post_index, platforms, payload, due_at, status, created_at, updated_at)
		 OUTPUT INSERTED.id
		 VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9)`,
		post.AccountID, post.ContentID, post.PostIndex, post.Platforms, string(payload),
		post.DueAt, post.Status, post.CreatedAt, post.UpdatedAt).Scan(&id)
	if err != nil {
		// The filtered unique index on pending rows rejects a concurrent
		// duplicate as a unique-key violation.
		var sqlErr mssql.Error
		if errors.As(err, &sqlErr) && (sqlErr.Number == 2601 || sqlErr.Number == 2627) {
			return 0, fmt.Errorf("pending schedule already exists for %s/%s/%d: %w",
				post.AccountID, post.ContentID, post.PostIndex, model.ErrScheduleConflict)
		}
		return 0, err
	}
	post.ID = id
	return id, nil
}

func (r *ScheduledPostRepositoryMSSQL) GetByID(ctx context.Context, id int64) (*model.ScheduledPost, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scheduledPostColumns+` FROM dbo.[scheduled_posts] WHERE id=@p1`, id)
	post, err := scanScheduledPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return post, err
}

func (r *ScheduledPostRepositoryMSSQL) FindReusable(ctx context.Context, accountID, contentID string, postIndex int) (*model.ScheduledPost, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT TOP 1 `+scheduledPostColumns+` FROM dbo.[scheduled_posts]
		 WHERE account_id=@p1 AND content_id=@p2 AND post_index=@p3
		 ORDER BY updated_at DESC`,
		accountID, contentID, postIndex)
	post, err := scanScheduledPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return post, err
}

func (r *ScheduledPostRepositoryMSSQL) ResetForReschedule(ctx context.Context, id int64, dueAt time.Time, platforms string, payload model.PostPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[scheduled_posts] SET due_at=@p1, platforms=@p2, payload=@p3,
			status=@p4, error_message=NULL, job_handle=NULL, updated_at=@p5
		 WHERE id=@p6`,
		dueAt, platforms, string(body), model.ScheduledPostStatusPending, time.Now().UTC(), id)
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

func (r *ScheduledPostRepositoryMSSQL) SetJobHandle(ctx context.Context, id int64, handle *string) error {
	var h sql.NullString
	if handle != nil {
		h.Valid = true
		h.String = *handle
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[scheduled_posts] SET job_handle=@p1, updated_at=@p2 WHERE id=@p3`,
		h, time.Now().UTC(), id)
	return err
}

func (r *ScheduledPostRepositoryMSSQL) MarkTerminal(ctx context.Context, id int64, status string, errMsg *string) error {
	var msg sql.NullString
	if errMsg != nil {
		msg.Valid = true
		msg.String = *errMsg
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[scheduled_posts] SET status=@p1, error_message=@p2, job_handle=NULL, updated_at=@p3 WHERE id=@p4`,
		status, msg, time.Now().UTC(), id)
	return err
}

func (r *ScheduledPostRepositoryMSSQL) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT TOP (@p3) `+scheduledPostColumns+` FROM dbo.[scheduled_posts]
		 WHERE status=@p1 AND due_at <= @p2 ORDER BY due_at ASC`,
		model.ScheduledPostStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

func (r *ScheduledPostRepositoryMSSQL) ListByAccount(ctx context.Context, accountID string, limit int) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT TOP (@p2) `+scheduledPostColumns+` FROM dbo.[scheduled_posts]
		 WHERE account_id=@p1 ORDER BY due_at DESC`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

var _ repository.IScheduledPost = (*ScheduledPostRepositoryMSSQL)(nil)
