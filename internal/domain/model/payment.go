package model

import "strings"

// 事業者から見た支払い状態。各アダプタが自社表現をここへ変換する。
type PaymentStatus string

const (
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentStatusApproved:
		return PaymentStatusApproved, true
	case PaymentStatusPending:
		return PaymentStatusPending, true
	case PaymentStatusRejected:
		return PaymentStatusRejected, true
	case PaymentStatusCancelled:
		return PaymentStatusCancelled, true
	default:
		return "", false
	}
}

// 非同期通知（webhook/照会）1件分。永続化はせず注文への反映にだけ使う。
// ExternalReferenceは作成時に事業者へ渡した注文ID。
type PaymentEvent struct {
	Provider          string
	PaymentID         string
	Status            PaymentStatus
	Amount            int64
	ExternalReference string
}
