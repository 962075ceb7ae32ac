package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// 事業者からの非同期通知。
// 処理を試みたあとは内部エラーでも必ず200を返す（事業者側の再送ストームを止める）。
// 200より先に処理を始めないこと。
type WebhookHandler struct {
	reconcile *usecase.ReconcileUsecase
	logger    *zap.Logger
}

func NewWebhookHandler(reconcile *usecase.ReconcileUsecase, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{reconcile: reconcile, logger: logger}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/wompi", h.wompi)
	e.POST("/webhooks/mercadopago", h.mercadopago)
}

type webhookAck struct {
	Received bool   `json:"received"`
	Result   string `json:"result,omitempty"`
}

type wompiWebhookRequest struct {
	Event string `json:"event"`
	Data  struct {
		Transaction struct {
			ID string `json:"id"`
		} `json:"transaction"`
	} `json:"data"`
}

func (h *WebhookHandler) wompi(c echo.Context) error {
	var req wompiWebhookRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Warn("wompi webhook with unreadable body", zap.Error(err))
		return c.JSON(http.StatusOK, webhookAck{Received: true})
	}

	txID := req.Data.Transaction.ID
	if txID == "" {
		h.logger.Warn("wompi webhook without transaction id", zap.String("event", req.Event))
		return c.JSON(http.StatusOK, webhookAck{Received: true})
	}

	//通知は信用せず、事業者へ現在状態を取りに行ってから反映する
	out, err := h.reconcile.VerifyPayment(c.Request().Context(), "wompi", txID)
	if err != nil {
		h.logger.Error("wompi webhook processing failed",
			zap.String("transaction_id", txID),
			zap.Error(err))
		return c.JSON(http.StatusOK, webhookAck{Received: true})
	}

	return c.JSON(http.StatusOK, webhookAck{Received: true, Result: string(out.Result)})
}

type mercadoPagoWebhookRequest struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (h *WebhookHandler) mercadopago(c echo.Context) error {
	var req mercadoPagoWebhookRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Warn("mercadopago webhook with unreadable body", zap.Error(err))
		return c.JSON(http.StatusOK, webhookAck{Received: true})
	}

	//query形式（?type=payment&data.id=...）でも来る
	typ := req.Type
	if typ == "" {
		typ = c.QueryParam("type")
	}
	paymentID := req.Data.ID
	if paymentID == "" {
		paymentID = c.QueryParam("data.id")
	}

	//payment以外の通知は捨てる
	if typ != "payment" || paymentID == "" {
		return c.JSON(http.StatusOK, webhookAck{Received: true})
	}

	out, err := h.reconcile.VerifyPayment(c.Request().Context(), "mercadopago", paymentID)
	if err != nil {
		h.logger.Error("mercadopago webhook processing failed",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return c.JSON(http.StatusOK, webhookAck{Received: true})
	}

	return c.JSON(http.StatusOK, webhookAck{Received: true, Result: string(out.Result)})
}
