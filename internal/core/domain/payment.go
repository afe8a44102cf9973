package domain

import "time"

// BillingType is a payment method accepted by the payment provider.
type BillingType string

const (
	BillingPIX        BillingType = "PIX"
	BillingCreditCard BillingType = "CREDIT_CARD"
	BillingBoleto     BillingType = "BOLETO"
)

// Valid reports whether t is a supported billing type.
func (t BillingType) Valid() bool {
	switch t {
	case BillingPIX, BillingCreditCard, BillingBoleto:
		return true
	}
	return false
}

// Cycle is a subscription period; empty means a one-off payment.
type Cycle string

const (
	CycleMonthly   Cycle = "MONTHLY"
	CycleQuarterly Cycle = "QUARTERLY"
	CycleYearly    Cycle = "YEARLY"
)

// CreditCard carries tokenized card data for CREDIT_CARD billing.
type CreditCard struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CCV         string `json:"ccv"`
	Token       string `json:"token,omitempty"`
}

// PaymentRequest is the input of ProcessPayment.
type PaymentRequest struct {
	UserID      string      `json:"user_id"`
	CPF         string      `json:"cpf"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	PlanID      string      `json:"plan_id"`
	Value       float64     `json:"value"`
	BillingType BillingType `json:"billing_type"`
	Cycle       Cycle       `json:"cycle,omitempty"`
	DueDate     string      `json:"due_date,omitempty"`
	Description string      `json:"description,omitempty"`
	CreditCard  *CreditCard `json:"credit_card,omitempty"`
}

// Customer is a payment-provider customer.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	CPFCNPJ string `json:"cpfCnpj"`
	Email   string `json:"email"`
	Phone   string `json:"mobilePhone"`
}

// PixQRCode is the PIX copy-paste payload and its image.
type PixQRCode struct {
	EncodedImage string `json:"encodedImage"`
	Payload      string `json:"payload"`
	Expiration   string `json:"expirationDate"`
}

// Payment is a charge created at the payment provider.
type Payment struct {
	ID             string      `json:"id"`
	SubscriptionID string      `json:"subscription,omitempty"`
	CustomerID     string      `json:"customer"`
	Value          float64     `json:"value"`
	BillingType    BillingType `json:"billingType"`
	Status         string      `json:"status"`
	DueDate        string      `json:"dueDate"`
	InvoiceURL     string      `json:"invoiceUrl"`
	BankSlipURL    string      `json:"bankSlipUrl,omitempty"`
	Pix            *PixQRCode  `json:"pix,omitempty"`
}

// SubscriptionRecord is the row written to subscriptions after a payment.
type SubscriptionRecord struct {
	ID          string      `db:"id"`
	UserID      string      `db:"user_id"`
	PlanID      string      `db:"plan_id"`
	ExternalID  string      `db:"external_id"`
	BillingType BillingType `db:"billing_type"`
	Cycle       Cycle       `db:"cycle"`
	Value       float64     `db:"value"`
	Status      string      `db:"status"`
	CreatedAt   time.Time   `db:"created_at"`
}

// Plan is a row of subscription_plans.
type Plan struct {
	ID     string  `db:"id"     json:"id"`
	Name   string  `db:"name"   json:"name"`
	Price  float64 `db:"price"  json:"price"`
	Cycle  Cycle   `db:"cycle"  json:"cycle"`
	Active bool    `db:"active" json:"active"`
}
