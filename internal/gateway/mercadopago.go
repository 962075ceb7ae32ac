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

const mercadoPagoProviderName = "mercadopago"

const MercadoPagoBaseURL = "https://api.mercadopago.com"

type MercadoPagoConfig struct {
	AccessToken string
	BaseURL     string
	FrontendURL string
	BackendURL  string
}

type MercadoPagoGateway struct {
	cfg    MercadoPagoConfig
	client *http.Client
}

func NewMercadoPagoGateway(cfg MercadoPagoConfig) *MercadoPagoGateway {
	return &MercadoPagoGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *MercadoPagoGateway) Name() string { return mercadoPagoProviderName }

type mpItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	Quantity    int64  `json:"quantity"`
	CurrencyID  string `json:"currency_id"`
	UnitPrice   int64  `json:"unit_price"`
}

type mpBackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type mpPayer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type mpPreferenceRequest struct {
	Items             []mpItem   `json:"items"`
	Payer             mpPayer    `json:"payer"`
	BackURLs          mpBackURLs `json:"back_urls"`
	ExternalReference string     `json:"external_reference"`
	NotificationURL   string     `json:"notification_url"`
}

type mpPreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// checkout preferenceを作成する。
// external_referenceに注文IDを渡し、webhookで照合できるようにする。
func (g *MercadoPagoGateway) Initiate(ctx context.Context, req InitiateRequest) (Checkout, error) {
	items := make([]mpItem, 0, len(req.Items)+1)
	var itemsTotal int64
	for _, it := range req.Items {
		items = append(items, mpItem{
			ID:          it.ProductID,
			Title:       it.Name,
			Description: fmt.Sprintf("Talla: %s", it.Size),
			CategoryID:  "fashion",
			Quantity:    it.Quantity,
			CurrencyID:  "COP",
			UnitPrice:   it.UnitPrice,
		})
		itemsTotal += it.UnitPrice * it.Quantity
	}

	// 送料は明細との差分を1行で足す
	if shipping := req.Amount - itemsTotal; shipping > 0 {
		items = append(items, mpItem{
			ID:          "shipping",
			Title:       "Envío",
			Description: "Costo de envío",
			CategoryID:  "shipping",
			Quantity:    1,
			CurrencyID:  "COP",
			UnitPrice:   shipping,
		})
	}

	payload := mpPreferenceRequest{
		Items: items,
		Payer: mpPayer{Name: req.CustomerName, Email: req.CustomerEmail},
		BackURLs: mpBackURLs{
			Success: g.cfg.FrontendURL + "/payment-success",
			Failure: g.cfg.FrontendURL + "/checkout",
			Pending: g.cfg.FrontendURL + "/payment-pending",
		},
		ExternalReference: req.OrderID,
		NotificationURL:   g.cfg.BackendURL + "/webhooks/mercadopago",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Checkout{}, NewError(mercadoPagoProviderName, 0, err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return Checkout{}, NewError(mercadoPagoProviderName, 0, err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Checkout{}, NewError(mercadoPagoProviderName, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Checkout{}, NewError(mercadoPagoProviderName, resp.StatusCode, string(msg))
	}

	var out mpPreferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Checkout{}, NewError(mercadoPagoProviderName, resp.StatusCode, "invalid response body")
	}

	//本番はinit_point、sandboxはsandbox_init_point
	checkoutURL := out.InitPoint
	if checkoutURL == "" {
		checkoutURL = out.SandboxInitPoint
	}
	if checkoutURL == "" {
		return Checkout{}, NewError(mercadoPagoProviderName, resp.StatusCode, "missing init point")
	}

	return Checkout{
		CheckoutURL:       checkoutURL,
		ExternalReference: req.OrderID,
	}, nil
}

type mpPaymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	TransactionAmount int64       `json:"transaction_amount"`
	ExternalReference string      `json:"external_reference"`
}

func (g *MercadoPagoGateway) FetchStatus(ctx context.Context, paymentID string) (model.PaymentEvent, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return model.PaymentEvent{}, NewError(mercadoPagoProviderName, 0, err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.AccessToken)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return model.PaymentEvent{}, NewError(mercadoPagoProviderName, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.PaymentEvent{}, NewError(mercadoPagoProviderName, resp.StatusCode, "payment not found")
	}

	var out mpPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.PaymentEvent{}, NewError(mercadoPagoProviderName, resp.StatusCode, "invalid response body")
	}

	return model.PaymentEvent{
		Provider:          mercadoPagoProviderName,
		PaymentID:         out.ID.String(),
		Status:            mapMercadoPagoStatus(out.Status),
		Amount:            out.TransactionAmount,
		ExternalReference: out.ExternalReference,
	}, nil
}

// MercadoPagoのstatusを内部表現へ
func mapMercadoPagoStatus(s string) model.PaymentStatus {
	switch s {
	case "approved":
		return model.PaymentStatusApproved
	case "pending", "in_process", "authorized":
		return model.PaymentStatusPending
	case "rejected":
		return model.PaymentStatusRejected
	case "cancelled", "refunded", "charged_back":
		return model.PaymentStatusCancelled
	default:
		return model.PaymentStatusPending
	}
}
