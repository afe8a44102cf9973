package domain

import "time"

// Session is the authenticated beneficiary state kept by the session store.
type Session struct {
	BeneficiaryUUID string    `json:"beneficiaryUuid"`
	CPF             string    `json:"cpf"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	LoginDate       time.Time `json:"loginDate"`
}

// Tokens are the bearer credentials issued on login.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}
