// Package asaas talks to the payment provider through the backend's proxy function.
package asaas

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/skip2/go-qrcode"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
)

// DefaultFunction is the edge function that holds the payment API key.
const DefaultFunction = "asaas-proxy"

// Invoker calls a named edge function.
type Invoker interface {
	Invoke(ctx context.Context, name string, body, out any) error
}

// Client issues payment-provider actions through the proxy.
type Client struct {
	fn       Invoker
	function string
}

// New creates a client. An empty function name uses DefaultFunction.
func New(fn Invoker, function string) *Client {
	if function == "" {
		function = DefaultFunction
	}
	return &Client{fn: fn, function: function}
}

type request struct {
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Status  int             `json:"status"`
	Code    string          `json:"code"`
}

func (c *Client) call(ctx context.Context, action string, data, out any) error {
	var env envelope
	if err := c.fn.Invoke(ctx, c.function, request{Action: action, Data: data}, &env); err != nil {
		return err
	}
	if !env.Success {
		status := env.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		return &apperr.StatusError{
			Service: string(domain.ServiceAsaas),
			Status:  status,
			Code:    env.Code,
			Body:    fmt.Sprintf("%s: %s", action, env.Error),
		}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("asaas %s: parse response: %w", action, err)
	}
	return nil
}

// FindCustomerByCPF returns the customer registered with cpf, or nil when none exists.
func (c *Client) FindCustomerByCPF(ctx context.Context, cpf string) (*domain.Customer, error) {
	var list struct {
		Data []domain.Customer `json:"data"`
	}
	if err := c.call(ctx, "listCustomers", map[string]string{"cpfCnpj": domain.NormalizeCPF(cpf)}, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	return &list.Data[0], nil
}

// CreateCustomer registers a new customer.
func (c *Client) CreateCustomer(ctx context.Context, in domain.Customer) (*domain.Customer, error) {
	in.CPFCNPJ = domain.NormalizeCPF(in.CPFCNPJ)
	var out domain.Customer
	if err := c.call(ctx, "createCustomer", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnsureCustomer returns the existing customer for in.CPFCNPJ or creates one.
func (c *Client) EnsureCustomer(ctx context.Context, in domain.Customer) (*domain.Customer, error) {
	existing, err := c.FindCustomerByCPF(ctx, in.CPFCNPJ)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return c.CreateCustomer(ctx, in)
}

// ChargeInput is a one-off payment or a subscription when Cycle is set.
type ChargeInput struct {
	Customer          string             `json:"customer"`
	BillingType       domain.BillingType `json:"billingType"`
	Value             float64            `json:"value"`
	DueDate           string             `json:"dueDate"`
	Cycle             domain.Cycle       `json:"cycle,omitempty"`
	Description       string             `json:"description,omitempty"`
	ExternalReference string             `json:"externalReference,omitempty"`
	CreditCard        *domain.CreditCard `json:"creditCard,omitempty"`
}

// CreatePayment creates a one-off charge.
func (c *Client) CreatePayment(ctx context.Context, in ChargeInput) (*domain.Payment, error) {
	var out domain.Payment
	if err := c.call(ctx, "createPayment", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSubscription creates a recurring charge.
func (c *Client) CreateSubscription(ctx context.Context, in ChargeInput) (*domain.Payment, error) {
	var out struct {
		domain.Payment
		NextDueDate string `json:"nextDueDate"`
	}
	if err := c.call(ctx, "createSubscription", in, &out); err != nil {
		return nil, err
	}
	p := out.Payment
	p.SubscriptionID = p.ID
	if p.DueDate == "" {
		p.DueDate = out.NextDueDate
	}
	return &p, nil
}

// PixQRCode fetches the PIX payload of a payment and renders the image when the
// provider returns only the payload.
func (c *Client) PixQRCode(ctx context.Context, paymentID string) (*domain.PixQRCode, error) {
	var out domain.PixQRCode
	if err := c.call(ctx, "pixQrCode", map[string]string{"id": paymentID}, &out); err != nil {
		return nil, err
	}
	if out.EncodedImage == "" && out.Payload != "" {
		png, err := RenderQR(out.Payload)
		if err != nil {
			return nil, err
		}
		out.EncodedImage = base64.StdEncoding.EncodeToString(png)
	}
	return &out, nil
}

// RenderQR encodes payload as a 256px PNG QR code.
func RenderQR(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("render pix qr code: %w", err)
	}
	return png, nil
}

// Ping asks the proxy to reach the provider.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, "ping", nil, nil)
}
