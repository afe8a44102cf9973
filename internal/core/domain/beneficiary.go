package domain

import "time"

// BeneficiaryStatus mirrors the telehealth provider's enrollment state.
type BeneficiaryStatus string

const (
	BeneficiaryActive   BeneficiaryStatus = "ACTIVE"
	BeneficiaryInactive BeneficiaryStatus = "INACTIVE"
)

// Beneficiary is an end-user enrolled in a health plan.
type Beneficiary struct {
	ID              string            `json:"id"               db:"id"`
	UserID          string            `json:"user_id"          db:"user_id"`
	UUID            string            `json:"uuid"             db:"rapidoc_uuid"`
	AsaasCustomerID string            `json:"asaas_customer_id" db:"asaas_customer_id"`
	CPF             string            `json:"cpf"              db:"cpf"`
	Name            string            `json:"name"             db:"name"`
	Email           string            `json:"email"            db:"email"`
	Phone           string            `json:"phone"            db:"phone"`
	BirthDate       string            `json:"birth_date"       db:"birth_date"`
	ZipCode         string            `json:"zip_code"         db:"zip_code"`
	PlanID          string            `json:"plan_id"          db:"plan_id"`
	Status          BeneficiaryStatus `json:"status"           db:"status"`
	UpdatedAt       time.Time         `json:"updated_at"       db:"updated_at"`
}

// IsActive reports whether the provider considers the beneficiary enrolled.
func (b *Beneficiary) IsActive() bool {
	return b.Status == "" || b.Status == BeneficiaryActive
}

// Profile is the contact record used for notifications.
type Profile struct {
	UserID    string `json:"user_id"    db:"user_id"`
	Name      string `json:"name"       db:"name"`
	Email     string `json:"email"      db:"email"`
	Phone     string `json:"phone"      db:"phone"`
	PushToken string `json:"push_token" db:"push_token"`
}
