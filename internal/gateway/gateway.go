package gateway

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain/model"
)

// 事業者呼び出しの失敗。non-2xxや不正レスポンスはすべてこれで返す。
type Error struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func NewError(provider string, statusCode int, message string) error {
	return &Error{Provider: provider, StatusCode: statusCode, Message: message}
}

func AsError(err error) (*Error, bool) {
	var ge *Error
	ok := errors.As(err, &ge)
	return ge, ok
}

type LineItem struct {
	ProductID string
	Name      string
	Size      string
	Quantity  int64
	UnitPrice int64
}

type InitiateRequest struct {
	OrderID       string
	Amount        int64
	CustomerEmail string
	CustomerName  string
	Items         []LineItem
}

// 決済開始の結果。ExternalReferenceは事業者に渡した注文ID。
type Checkout struct {
	CheckoutURL       string `json:"checkout_url"`
	ExternalReference string `json:"external_reference"`
}

// 事業者1社ぶんのアダプタ。
// 注文IDを必ずexternal referenceとして渡し、照合できるようにする。
type PaymentGateway interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (Checkout, error)
	FetchStatus(ctx context.Context, paymentID string) (model.PaymentEvent, error)
}

// provider名 → アダプタ。webhook/照会側はこれ経由で事業者非依存になる。
type Registry struct {
	gateways map[string]PaymentGateway
}

func NewRegistry(gws ...PaymentGateway) *Registry {
	m := make(map[string]PaymentGateway, len(gws))
	for _, gw := range gws {
		m[gw.Name()] = gw
	}
	return &Registry{gateways: m}
}

func (r *Registry) Get(name string) (PaymentGateway, bool) {
	gw, ok := r.gateways[name]
	return gw, ok
}
