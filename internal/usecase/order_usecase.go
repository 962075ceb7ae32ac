package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/gateway"
	repo "storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

type OrderUsecase struct {
	tx       repo.TransactionManager
	gateways *gateway.Registry
	stats    *StatsUsecase
	logger   *zap.Logger
}

func NewOrderUsecase(tx repo.TransactionManager, gateways *gateway.Registry, stats *StatsUsecase, logger *zap.Logger) *OrderUsecase {
	return &OrderUsecase{tx: tx, gateways: gateways, stats: stats, logger: logger}
}

type CreateOrderItemInput struct {
	ProductID string
	Quantity  int64
	Size      string
}

type CreateOrderInput struct {
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      string
	CustomerAddress    string
	CustomerCity       string
	CustomerDepartment string
	CustomerPostalCode string

	Items []CreateOrderItemInput

	//呼び出し側申告の金額。負なら拒否（丸めない）
	Subtotal *int64
	Shipping *int64
}

type OrderItemOutput struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Size      string `json:"size"`
	UnitPrice int64  `json:"unit_price"`
}

type OrderOutput struct {
	ID            string            `json:"id"`
	UserID        *int64            `json:"user_id"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Subtotal      int64             `json:"subtotal"`
	Shipping      int64             `json:"shipping"`
	Total         int64             `json:"total"`
	Status        model.OrderStatus `json:"status"`
	PaymentID     string            `json:"payment_id,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []OrderItemOutput `json:"items"`
}

// 注文作成。注文と明細は1トランザクションで全部書くか全部書かないか。
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (OrderOutput, error) {
	if err := validator.ValidateCustomerInfo(in.CustomerName, in.CustomerEmail, in.CustomerPhone); err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(in.Items) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "order has no items")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be positive")
		}
	}

	//申告値は負なら受け付けない
	if in.Subtotal != nil && *in.Subtotal < 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "subtotal must not be negative")
	}
	if in.Shipping != nil && *in.Shipping < 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "shipping must not be negative")
	}

	email := strings.TrimSpace(strings.ToLower(in.CustomerEmail))

	var out OrderOutput
	var resolvedUserID *int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//商品の存在確認と購入時点価格のスナップショット
		orderID := uuid.NewString()
		items := make([]model.OrderItem, 0, len(in.Items))
		var computed int64

		for _, it := range in.Items {
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, fmt.Sprintf("product not found: %s", it.ProductID))
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			items = append(items, model.OrderItem{
				ID:        uuid.NewString(),
				OrderID:   orderID,
				ProductID: p.ID,
				Quantity:  it.Quantity,
				Size:      it.Size,
				UnitPrice: p.Price,
			})
			computed += p.Price * it.Quantity
		}

		subtotal := computed
		if in.Subtotal != nil {
			subtotal = *in.Subtotal
		}
		var shipping int64
		if in.Shipping != nil {
			shipping = *in.Shipping
		}

		//ゲスト購入を許すのでemail一致はbest-effort
		user, err := r.Users().FindByEmail(ctx, email)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if user != nil {
			resolvedUserID = &user.ID
		}

		order := model.Order{
			ID:                 orderID,
			UserID:             resolvedUserID,
			CustomerName:       in.CustomerName,
			CustomerEmail:      email,
			CustomerPhone:      in.CustomerPhone,
			CustomerAddress:    in.CustomerAddress,
			CustomerCity:       in.CustomerCity,
			CustomerDepartment: in.CustomerDepartment,
			CustomerPostalCode: in.CustomerPostalCode,
			Subtotal:           subtotal,
			Shipping:           shipping,
			Total:              subtotal + shipping,
			Status:             model.OrderStatusPending,
		}

		if err := r.Orders().Create(ctx, order); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(order, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	//統計の再計算は独立。失敗しても注文作成は成立している
	if resolvedUserID != nil {
		if _, err := u.stats.Recompute(ctx, *resolvedUserID); err != nil {
			u.logger.Warn("stats recompute after order create failed",
				zap.Int64("user_id", *resolvedUserID),
				zap.String("order_id", out.ID),
				zap.Error(err))
		}
	}

	return out, nil
}

// 決済開始。失敗しても注文はPENDINGのまま・支払いIDなしで残す。
func (u *OrderUsecase) InitiatePayment(ctx context.Context, orderID string, provider string) (gateway.Checkout, error) {
	gw, ok := u.gateways.Get(provider)
	if !ok {
		return gateway.Checkout{}, NewHTTPError(http.StatusBadRequest, "unknown payment provider")
	}

	var order model.Order
	var items []model.OrderItem

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusBadRequest, "order is not pending")
		}

		its, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order = o
		items = its
		return nil
	})
	if err != nil {
		return gateway.Checkout{}, err
	}

	lines := make([]gateway.LineItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, gateway.LineItem{
			ProductID: it.ProductID,
			Size:      it.Size,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	checkout, err := gw.Initiate(ctx, gateway.InitiateRequest{
		OrderID:       order.ID,
		Amount:        order.Total,
		CustomerEmail: order.CustomerEmail,
		CustomerName:  order.CustomerName,
		Items:         lines,
	})
	if err != nil {
		u.logger.Error("payment initiation failed",
			zap.String("order_id", order.ID),
			zap.String("provider", provider),
			zap.Error(err))
		return gateway.Checkout{}, NewHTTPError(http.StatusBadGateway, "payment initiation failed")
	}

	return checkout, nil
}

// 照合パスが書いたのと同じ行を読む（キャッシュ無し）
func (u *OrderUsecase) GetOrder(ctx context.Context, orderID string) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListUserOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByUserID(ctx, userID)
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

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Size:      it.Size,
			UnitPrice: it.UnitPrice,
		})
	}

	return OrderOutput{
		ID:            o.ID,
		UserID:        o.UserID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Subtotal:      o.Subtotal,
		Shipping:      o.Shipping,
		Total:         o.Total,
		Status:        o.Status,
		PaymentID:     o.PaymentID,
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
		Items:         outItems,
	}
}
