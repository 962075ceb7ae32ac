package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	orders    *usecase.OrderUsecase
	reconcile *usecase.ReconcileUsecase
}

func NewPaymentHandler(orders *usecase.OrderUsecase, reconcile *usecase.ReconcileUsecase) *PaymentHandler {
	return &PaymentHandler{orders: orders, reconcile: reconcile}
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/orders/:id/payment/:provider", h.initiate)
	e.GET("/payments/:provider/verify/:id", h.verify)
}

// 決済開始。成功したらcheckout URLを返す。
// 失敗しても注文はPENDINGのままなので呼び出し側はやり直せる。
func (h *PaymentHandler) initiate(c echo.Context) error {
	orderID := c.Param("id")
	provider := c.Param("provider")
	if orderID == "" || provider == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.orders.InitiatePayment(c.Request().Context(), orderID, provider)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 手動照合。webhookと同じ反映パスを同期で回して結果を返す。
func (h *PaymentHandler) verify(c echo.Context) error {
	provider := c.Param("provider")
	txID := c.Param("id")
	if provider == "" || txID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.reconcile.VerifyPayment(c.Request().Context(), provider, txID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
