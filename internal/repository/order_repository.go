package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	Create(ctx context.Context, order model.Order) error
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)

	//ステータス書き込みの唯一の入口。
	//現在値がfromのときだけtoへ更新する（同時実行の競り合いをここで閉じる）。
	//更新できたらtrue、別のworkerに先を越されたらfalse。
	UpdateStatusFrom(ctx context.Context, orderID string, from, to model.OrderStatus) (bool, error)

	//pending通知用。支払いID/方法だけを記録してステータスは触らない。
	UpdatePayment(ctx context.Context, orderID string, paymentID, method string) error

	//superadminの物理削除
	Delete(ctx context.Context, orderID string) error

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
