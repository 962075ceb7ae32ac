package server

import (
	"storefront/internal/config"
	"storefront/internal/handler"

	"github.com/labstack/echo/v4"
)

// New はルートを登録したechoインスタンスを返す。
func New(
	cfg config.Config,
	orderH *handler.OrderHandler,
	paymentH *handler.PaymentHandler,
	webhookH *handler.WebhookHandler,
	adminOrderH *handler.AdminOrderHandler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	orderH.RegisterRoutes(e, cfg)
	paymentH.RegisterRoutes(e)
	webhookH.RegisterRoutes(e)
	adminOrderH.RegisterRoutes(e, cfg)

	return e
}
