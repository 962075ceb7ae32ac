package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/domain/model"
)

const wompiProviderName = "wompi"

// Wompiのsandbox/production APIベースURL
const (
	WompiSandboxBaseURL    = "https://sandbox.wompi.co/v1"
	WompiProductionBaseURL = "https://production.wompi.co/v1"
)

type WompiConfig struct {
	PublicKey   string
	PrivateKey  string
	BaseURL     string
	FrontendURL string
}

type WompiGateway struct {
	cfg    WompiConfig
	client *http.Client
}

func NewWompiGateway(cfg WompiConfig) *WompiGateway {
	return &WompiGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *WompiGateway) Name() string { return wompiProviderName }

type wompiPaymentLinkRequest struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	SingleUse       bool              `json:"single_use"`
	Currency        string            `json:"currency"`
	AmountInCents   int64             `json:"amount_in_cents"`
	Reference       string            `json:"reference"`
	RedirectURL     string            `json:"redirect_url"`
	CollectShipping bool              `json:"collect_shipping"`
	CustomerData    wompiCustomerData `json:"customer_data"`
}

type wompiCustomerData struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type wompiLinkResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// 支払いリンクを作成する。Wompiはamountをセント単位で受ける。
func (g *WompiGateway) Initiate(ctx context.Context, req InitiateRequest) (Checkout, error) {
	payload := wompiPaymentLinkRequest{
		Name:          fmt.Sprintf("Orden #%s", req.OrderID),
		Description:   "Compra en la tienda",
		SingleUse:     true,
		Currency:      "COP",
		AmountInCents: req.Amount * 100,
		Reference:     req.OrderID,
		RedirectURL:   fmt.Sprintf("%s/payment-success?order_id=%s", g.cfg.FrontendURL, req.OrderID),
		CustomerData: wompiCustomerData{
			Email:    req.CustomerEmail,
			FullName: req.CustomerName,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Checkout{}, NewError(wompiProviderName, 0, err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/payment_links", bytes.NewReader(body))
	if err != nil {
		return Checkout{}, NewError(wompiProviderName, 0, err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.PrivateKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Checkout{}, NewError(wompiProviderName, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Checkout{}, NewError(wompiProviderName, resp.StatusCode, string(msg))
	}

	var out wompiLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Checkout{}, NewError(wompiProviderName, resp.StatusCode, "invalid response body")
	}
	if out.Data.ID == "" {
		return Checkout{}, NewError(wompiProviderName, resp.StatusCode, "missing payment link id")
	}

	return Checkout{
		CheckoutURL:       "https://checkout.wompi.co/l/" + out.Data.ID,
		ExternalReference: req.OrderID,
	}, nil
}

type wompiTransactionResponse struct {
	Data struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		Reference     string `json:"reference"`
		AmountInCents int64  `json:"amount_in_cents"`
	} `json:"data"`
}

func (g *WompiGateway) FetchStatus(ctx context.Context, paymentID string) (model.PaymentEvent, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/transactions/"+paymentID, nil)
	if err != nil {
		return model.PaymentEvent{}, NewError(wompiProviderName, 0, err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.PublicKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return model.PaymentEvent{}, NewError(wompiProviderName, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.PaymentEvent{}, NewError(wompiProviderName, resp.StatusCode, "transaction not found")
	}

	var out wompiTransactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.PaymentEvent{}, NewError(wompiProviderName, resp.StatusCode, "invalid response body")
	}

	return model.PaymentEvent{
		Provider:          wompiProviderName,
		PaymentID:         out.Data.ID,
		Status:            mapWompiStatus(out.Data.Status),
		Amount:            out.Data.AmountInCents / 100,
		ExternalReference: out.Data.Reference,
	}, nil
}

// Wompiのstatusを内部表現へ
func mapWompiStatus(s string) model.PaymentStatus {
	switch s {
	case "APPROVED":
		return model.PaymentStatusApproved
	case "PENDING":
		return model.PaymentStatusPending
	case "DECLINED", "ERROR":
		return model.PaymentStatusRejected
	case "VOIDED":
		return model.PaymentStatusCancelled
	default:
		return model.PaymentStatusPending
	}
}
