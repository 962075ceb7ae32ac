package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// ユーザー統計のキャッシュ書き込みはStatsUsecase経由のUpdateStatsだけ。
type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)

	//emailで1件取得。見つからなければ(nil, nil)。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	UpdateStats(ctx context.Context, userID int64, totalOrders, totalSpent int64, lastOrderDate *time.Time) error

	//一括再計算の走査用
	ListIDs(ctx context.Context) ([]int64, error)
}
