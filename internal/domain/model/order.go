package model

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// 入力文字列は境界でここを通してenumへ変換する
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case OrderStatusPending:
		return OrderStatusPending, true
	case OrderStatusConfirmed:
		return OrderStatusConfirmed, true
	case OrderStatusShipped:
		return OrderStatusShipped, true
	case OrderStatusDelivered:
		return OrderStatusDelivered, true
	case OrderStatusCancelled:
		return OrderStatusCancelled, true
	default:
		return "", false
	}
}

// DELIVERED / CANCELLED からは遷移しない
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// 売上集計の対象（CONFIRMEDは配送前でも売上として数える）
func (s OrderStatus) IsCompleted() bool {
	return s == OrderStatusConfirmed || s == OrderStatusDelivered
}

// 遷移表。ここが唯一の正。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// 注文。ゲスト購入を許すのでUserIDはnull可。
// Total == Subtotal + Shipping は作成時に保証し、以後勝手に再計算しない。
type Order struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID *int64 `gorm:"index" json:"user_id"`

	CustomerName       string `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail      string `gorm:"type:varchar(255);not null;index" json:"customer_email"`
	CustomerPhone      string `gorm:"type:varchar(50);not null" json:"customer_phone"`
	CustomerAddress    string `gorm:"type:text" json:"customer_address"`
	CustomerCity       string `gorm:"type:varchar(100)" json:"customer_city"`
	CustomerDepartment string `gorm:"type:varchar(100)" json:"customer_department"`
	CustomerPostalCode string `gorm:"type:varchar(20)" json:"customer_postal_code"`

	Subtotal int64       `gorm:"not null" json:"subtotal"`
	Shipping int64       `gorm:"not null;default:0" json:"shipping"`
	Total    int64       `gorm:"not null" json:"total"`
	Status   OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	// 決済事業者側のID（webhook/照会で埋まる）
	PaymentID     string `gorm:"type:varchar(100);index" json:"payment_id"`
	PaymentMethod string `gorm:"type:varchar(50)" json:"payment_method"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
