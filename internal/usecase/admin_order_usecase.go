package usecase

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	stats  *StatsUsecase
	logger *zap.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, stats *StatsUsecase, logger *zap.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, stats: stats, logger: logger}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" {
		if _, ok := model.ParseOrderStatus(f.Status); !ok {
			return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// 手動のステータス更新。webhookと同じ遷移表・同じ条件付き更新を通る。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID string, in AdminUpdateOrderStatusInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus, ok := model.ParseOrderStatus(in.Status)
	if !ok {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var fromStatus model.OrderStatus
	var recomputeUserID *int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//すでに同じなら何もしない（200）
		if o.Status == newStatus {
			return nil
		}
		if !model.CanTransition(o.Status, newStatus) {
			return NewHTTPError(http.StatusBadRequest, "invalid status transition")
		}

		applied, err := r.Orders().UpdateStatusFrom(ctx, orderID, o.Status, newStatus)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !applied {
			//webhookと競合した。やり直してもらう
			return NewHTTPError(http.StatusConflict, "order status changed concurrently")
		}

		fromStatus = o.Status

		//監査ログ（UPDATE_ORDER_STATUS）
		beforeJSON := `{"status":"` + string(o.Status) + `"}`
		afterJSON := `{"status":"` + string(newStatus) + `"}`
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//完了集合への出入りがあれば統計を作り直す
		if o.UserID != nil && fromStatus.IsCompleted() != newStatus.IsCompleted() {
			recomputeUserID = o.UserID
		}
		return nil
	})
	if err != nil {
		return err
	}

	if recomputeUserID != nil {
		if _, err := u.stats.Recompute(ctx, *recomputeUserID); err != nil {
			u.logger.Warn("stats recompute after admin status update failed",
				zap.Int64("user_id", *recomputeUserID),
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	}

	return nil
}

// superadmin専用の物理削除。明細ごと消すが、
// ユーザー統計の再計算は意図的にしない（削除を過去の集計へ波及させない）。
func (u *AdminOrderUsecase) Delete(ctx context.Context, actorAdminUserID int64, orderID string) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().DeleteByOrderID(ctx, orderID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Orders().Delete(ctx, orderID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		beforeJSON := `{"status":"` + string(o.Status) + `","total":"` + itoa(o.Total) + `"}`
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionDeleteOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    "{}",
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})
}

// 管理者起点の統計再計算。再計算そのものはStatsUsecaseに委譲し、
// 操作ログだけをここで残す（ログ書き込みの失敗で再計算は巻き戻さない）。
func (u *AdminOrderUsecase) RecomputeUserStats(ctx context.Context, actorAdminUserID int64, userID int64) (StatsOutput, error) {
	if actorAdminUserID <= 0 {
		return StatsOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	out, err := u.stats.Recompute(ctx, userID)
	if err != nil {
		return StatsOutput{}, err
	}

	afterJSON := `{"total_orders":"` + itoa(out.TotalOrders) + `","total_spent":"` + itoa(out.TotalSpent) + `"}`
	auditErr := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionRecomputeStats,
			ResourceType: model.AuditResourceUser,
			ResourceID:   itoa(userID),
			BeforeJSON:   "{}",
			AfterJSON:    afterJSON,
			CreatedAt:    time.Now(),
		})
	})
	if auditErr != nil {
		u.logger.Warn("audit log for stats recompute failed",
			zap.Int64("user_id", userID),
			zap.Error(auditErr))
	}

	return out, nil
}

// 管理者操作ログの閲覧
func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit < 0 || f.Limit > 200 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Offset < 0 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}

	var logs []model.AuditLog

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		logs, err = r.AuditLogs().List(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return []model.AuditLog{}, err
	}
	return logs, nil
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
