package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type StatsOutput struct {
	UserID        int64      `json:"user_id"`
	TotalOrders   int64      `json:"total_orders"`
	TotalSpent    int64      `json:"total_spent"`
	LastOrderDate *time.Time `json:"last_order_date"`
}

type BulkRecomputeOutput struct {
	Recomputed int `json:"recomputed"`
	Failed     int `json:"failed"`
}

// ユーザー統計の再計算。増分更新はせず、毎回注文行を全走査して作り直す。
// 決定的な計算なので何度呼んでも・同時に呼んでも同じ値に収束する。
type StatsUsecase struct {
	tx     repo.TransactionManager
	users  repo.UserRepository
	logger *zap.Logger
}

func NewStatsUsecase(tx repo.TransactionManager, users repo.UserRepository, logger *zap.Logger) *StatsUsecase {
	return &StatsUsecase{tx: tx, users: users, logger: logger}
}

func (u *StatsUsecase) Recompute(ctx context.Context, userID int64) (StatsOutput, error) {
	if userID <= 0 {
		return StatsOutput{}, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var out StatsOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Users().FindByID(ctx, userID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "user not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		orders, err := r.Orders().ListByUserID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//total_orders/total_spentは完了集合だけ、
		//last_order_dateは全注文が対象（「最後に注文した日」は支払いと別の問い）
		var totalOrders, totalSpent int64
		var last *time.Time
		for _, o := range orders {
			if o.Status.IsCompleted() {
				totalOrders++
				totalSpent += o.Total
			}
			if last == nil || o.CreatedAt.After(*last) {
				t := o.CreatedAt
				last = &t
			}
		}

		if err := r.Users().UpdateStats(ctx, userID, totalOrders, totalSpent, last); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = StatsOutput{
			UserID:        userID,
			TotalOrders:   totalOrders,
			TotalSpent:    totalSpent,
			LastOrderDate: last,
		}
		return nil
	})
	if err != nil {
		return StatsOutput{}, err
	}
	return out, nil
}

// 全ユーザーの修復ツール。1人の失敗でバッチを止めない。
func (u *StatsUsecase) RecomputeAll(ctx context.Context) (BulkRecomputeOutput, error) {
	ids, err := u.users.ListIDs(ctx)
	if err != nil {
		return BulkRecomputeOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var out BulkRecomputeOutput
	for _, id := range ids {
		if _, err := u.Recompute(ctx, id); err != nil {
			u.logger.Error("bulk stats recompute failed for user",
				zap.Int64("user_id", id),
				zap.Error(err))
			out.Failed++
			continue
		}
		out.Recomputed++
	}
	return out, nil
}
