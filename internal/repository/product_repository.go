package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// カタログ参照。この側からは読み取りだけを約束する。
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (model.Product, error)
}
