package usecase

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/gateway"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// 1イベントの照合結果。
type ReconciliationResult string

const (
	//合法な遷移を適用した
	ResultApplied ReconciliationResult = "applied"
	//既に反映済みなどで何もしなかった（成功扱い）
	ResultNoOp ReconciliationResult = "no_op"
	//現在状態から遷移できない古いイベント。記録して無視
	ResultAnomalySkipped ReconciliationResult = "anomaly_skipped"
	//参照先の注文が存在しない。再送されても無駄なので成功応答で終える
	ResultOrderNotFound ReconciliationResult = "order_not_found"
)

type ReconcileOutput struct {
	Result  ReconciliationResult `json:"result"`
	OrderID string               `json:"order_id,omitempty"`
	Status  model.OrderStatus    `json:"status,omitempty"`
}

// 支払いイベントを注文へ反映する。webhookも手動照会もここ1本を通る。
type ReconcileUsecase struct {
	tx       repo.TransactionManager
	gateways *gateway.Registry
	stats    *StatsUsecase
	logger   *zap.Logger
}

func NewReconcileUsecase(tx repo.TransactionManager, gateways *gateway.Registry, stats *StatsUsecase, logger *zap.Logger) *ReconcileUsecase {
	return &ReconcileUsecase{tx: tx, gateways: gateways, stats: stats, logger: logger}
}

// 事業者status → 注文statusの対応。pendingは遷移なし（支払いIDの記録だけ）。
func targetStatusFor(s model.PaymentStatus) (model.OrderStatus, bool) {
	switch s {
	case model.PaymentStatusApproved:
		return model.OrderStatusConfirmed, true
	case model.PaymentStatusRejected, model.PaymentStatusCancelled:
		return model.OrderStatusCancelled, true
	default:
		return "", false
	}
}

// 同じイベントが何度届いても最終状態は1回適用と同じになること。
// 順不同・同時配送にも耐える（条件付き更新で最後の競り合いを閉じる）。
func (u *ReconcileUsecase) HandlePaymentEvent(ctx context.Context, ev model.PaymentEvent) (ReconcileOutput, error) {
	var out ReconcileOutput
	var recomputeUserID *int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, ev.ExternalReference)
		if errors.Is(err, repo.ErrNotFound) {
			//未知の参照は再送しても解決しないので成功扱いで終える
			u.logger.Warn("payment event for unknown order",
				zap.String("provider", ev.Provider),
				zap.String("payment_id", ev.PaymentID),
				zap.String("external_reference", ev.ExternalReference))
			out = ReconcileOutput{Result: ResultOrderNotFound}
			return nil
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out.OrderID = o.ID
		out.Status = o.Status

		//pendingは支払いID/方法の記録だけ
		target, transitions := targetStatusFor(ev.Status)
		if !transitions {
			if o.PaymentID == "" && ev.PaymentID != "" {
				if err := r.Orders().UpdatePayment(ctx, o.ID, ev.PaymentID, ev.Provider); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
			out.Result = ResultNoOp
			return nil
		}

		//冪等: 反映済み、またはキャンセル済み注文への再配送
		if o.Status == target || o.Status == model.OrderStatusCancelled {
			out.Result = ResultNoOp
			return nil
		}

		//発送済みへの古いrejected等。進んだ状態は巻き戻さない
		if !model.CanTransition(o.Status, target) {
			u.logger.Warn("stale payment event skipped",
				zap.String("order_id", o.ID),
				zap.String("provider", ev.Provider),
				zap.String("payment_id", ev.PaymentID),
				zap.String("current_status", string(o.Status)),
				zap.String("target_status", string(target)))
			out.Result = ResultAnomalySkipped
			return nil
		}

		applied, err := r.Orders().UpdateStatusFrom(ctx, o.ID, o.Status, target)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !applied {
			//別workerが先に書いた。読み直して判定する
			cur, err := r.Orders().FindByID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out.Status = cur.Status
			if cur.Status == target {
				out.Result = ResultNoOp
			} else {
				u.logger.Warn("lost status race, event skipped",
					zap.String("order_id", o.ID),
					zap.String("current_status", string(cur.Status)),
					zap.String("target_status", string(target)))
				out.Result = ResultAnomalySkipped
			}
			return nil
		}

		//支払いID/方法はステータスと同じトランザクションで書く
		if err := r.Orders().UpdatePayment(ctx, o.ID, ev.PaymentID, ev.Provider); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out.Result = ResultApplied
		out.Status = target

		if target.IsCompleted() && o.UserID != nil {
			recomputeUserID = o.UserID
		}
		return nil
	})
	if err != nil {
		return ReconcileOutput{}, err
	}

	//統計の失敗で支払い確定を巻き戻さない。記録して続行
	if recomputeUserID != nil {
		if _, err := u.stats.Recompute(ctx, *recomputeUserID); err != nil {
			u.logger.Error("stats recompute after confirmation failed",
				zap.Int64("user_id", *recomputeUserID),
				zap.String("order_id", out.OrderID),
				zap.Error(err))
		}
	}

	return out, nil
}

// pull型の照合。事業者へ現在状態を取りに行き、同じ反映パスへ流す。
func (u *ReconcileUsecase) VerifyPayment(ctx context.Context, provider string, transactionID string) (ReconcileOutput, error) {
	gw, ok := u.gateways.Get(provider)
	if !ok {
		return ReconcileOutput{}, NewHTTPError(http.StatusBadRequest, "unknown payment provider")
	}

	ev, err := gw.FetchStatus(ctx, transactionID)
	if err != nil {
		//手動照会は待っている呼び出し元がいるのでエラーを返す
		if ge, ok := gateway.AsError(err); ok {
			return ReconcileOutput{}, NewHTTPError(http.StatusBadGateway, ge.Message)
		}
		return ReconcileOutput{}, NewHTTPError(http.StatusBadGateway, "payment lookup failed")
	}

	return u.HandlePaymentEvent(ctx, ev)
}
