package repository

import (
	"context"

	"social-publisher/domain/model"
)

// IUser resolves JWT subjects against the product's account table.
type IUser interface {
	GetByUserName(ctx context.Context, userName string) (model.User, error)
}
