// Package rapidoc is the telehealth provider client.
package rapidoc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/infra/httpx"
)

// Config holds telehealth provider credentials.
type Config struct {
	BaseURL  string        `yaml:"base_url"`
	ClientID string        `yaml:"client_id"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Client calls the telehealth provider REST API.
type Client struct {
	http *httpx.Client
}

// New creates a client authenticated with a bearer token and client id.
func New(cfg Config, opts ...httpx.Option) *Client {
	opts = append([]httpx.Option{
		httpx.WithBearer(cfg.Token),
		httpx.WithHeader("clientId", cfg.ClientID),
		httpx.WithHeader("Content-Type", "application/vnd.rapidoc.tema-v2+json"),
	}, opts...)
	return &Client{http: httpx.New(string(domain.ServiceRapidoc), cfg.BaseURL, cfg.Timeout, opts...)}
}

// Monitor exposes call statistics.
func (c *Client) Monitor() *httpx.Monitor { return c.http.Monitor }

type beneficiary struct {
	UUID     string `json:"uuid,omitempty"`
	Name     string `json:"name"`
	CPF      string `json:"cpf"`
	Birthday string `json:"birthday,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	ZipCode  string `json:"zipCode,omitempty"`
	PlanUUID string `json:"planUuid,omitempty"`
	IsActive *bool  `json:"isActive,omitempty"`
}

func (b beneficiary) toDomain() *domain.Beneficiary {
	out := &domain.Beneficiary{
		UUID:      b.UUID,
		Name:      b.Name,
		CPF:       domain.NormalizeCPF(b.CPF),
		Email:     b.Email,
		Phone:     b.Phone,
		BirthDate: b.Birthday,
		ZipCode:   b.ZipCode,
		PlanID:    b.PlanUUID,
		Status:    domain.BeneficiaryActive,
	}
	if b.IsActive != nil && !*b.IsActive {
		out.Status = domain.BeneficiaryInactive
	}
	return out
}

func fromDomain(b *domain.Beneficiary) beneficiary {
	return beneficiary{
		UUID:     b.UUID,
		Name:     b.Name,
		CPF:      domain.NormalizeCPF(b.CPF),
		Birthday: b.BirthDate,
		Phone:    b.Phone,
		Email:    b.Email,
		ZipCode:  b.ZipCode,
		PlanUUID: b.PlanID,
	}
}

type response struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message"`
	Beneficiary   *beneficiary  `json:"beneficiary"`
	Beneficiaries []beneficiary `json:"beneficiaries"`
}

// rejected turns a 2xx body with success=false into an error.
func rejected(op, message string) error {
	if message == "" {
		message = "request rejected"
	}
	return &apperr.StatusError{
		Service: string(domain.ServiceRapidoc),
		Status:  http.StatusUnprocessableEntity,
		Body:    fmt.Sprintf("%s: %s", op, message),
	}
}

// FindBeneficiaryByCPF looks a beneficiary up by CPF.
func (c *Client) FindBeneficiaryByCPF(ctx context.Context, cpf string) (*domain.Beneficiary, error) {
	cpf = domain.NormalizeCPF(cpf)
	var resp response
	err := c.http.Do(ctx, httpx.Request{Method: http.MethodGet, Path: "/beneficiaries/" + url.PathEscape(cpf)}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, rejected("find beneficiary", resp.Message)
	}
	switch {
	case resp.Beneficiary != nil:
		return resp.Beneficiary.toDomain(), nil
	case len(resp.Beneficiaries) > 0:
		return resp.Beneficiaries[0].toDomain(), nil
	}
	return nil, &apperr.StatusError{
		Service: string(domain.ServiceRapidoc),
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Body:    "beneficiary not found",
	}
}

// CreateBeneficiary enrolls b and returns it with the provider UUID.
func (c *Client) CreateBeneficiary(ctx context.Context, b *domain.Beneficiary) (*domain.Beneficiary, error) {
	var resp response
	err := c.http.Do(ctx, httpx.Request{
		Method: http.MethodPost,
		Path:   "/beneficiaries",
		Body:   []beneficiary{fromDomain(b)},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || len(resp.Beneficiaries) == 0 {
		return nil, rejected("create beneficiary", resp.Message)
	}
	return resp.Beneficiaries[0].toDomain(), nil
}

// UpdateBeneficiary replaces the remote contact data of beneficiary uuid.
func (c *Client) UpdateBeneficiary(ctx context.Context, uuid string, b *domain.Beneficiary) error {
	var resp response
	err := c.http.Do(ctx, httpx.Request{
		Method: http.MethodPut,
		Path:   "/beneficiaries/" + url.PathEscape(uuid),
		Body:   fromDomain(b),
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return rejected("update beneficiary", resp.Message)
	}
	return nil
}

// RequestImmediate asks for an on-demand clinical consultation.
func (c *Client) RequestImmediate(ctx context.Context, beneficiaryUUID string) (*domain.Consultation, error) {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		URL     string `json:"url"`
		UUID    string `json:"uuid"`
	}
	err := c.http.Do(ctx, httpx.Request{
		Method: http.MethodGet,
		Path:   "/beneficiaries/" + url.PathEscape(beneficiaryUUID) + "/request-appointment",
		Query:  url.Values{"serviceType": {domain.ServiceTypeClinical}},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, rejected("request appointment", resp.Message)
	}
	return &domain.Consultation{UUID: resp.UUID, URL: resp.URL}, nil
}

// Availability lists open slots of a specialty between dateFrom and dateTo (dd/MM/yyyy).
func (c *Client) Availability(
	ctx context.Context,
	specialtyUUID, beneficiaryUUID, dateFrom, dateTo string,
) ([]domain.AvailabilitySlot, error) {
	q := url.Values{"specialtyUuid": {specialtyUUID}, "beneficiaryUuid": {beneficiaryUUID}}
	if dateFrom != "" {
		q.Set("dateInitial", dateFrom)
	}
	if dateTo != "" {
		q.Set("dateFinal", dateTo)
	}
	var resp struct {
		Success bool                      `json:"success"`
		Message string                    `json:"message"`
		Data    []domain.AvailabilitySlot `json:"data"`
	}
	err := c.http.Do(ctx, httpx.Request{Method: http.MethodGet, Path: "/specialty-availability", Query: q}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, rejected("availability", resp.Message)
	}
	for i := range resp.Data {
		if resp.Data[i].SpecialtyUUID == "" {
			resp.Data[i].SpecialtyUUID = specialtyUUID
		}
	}
	return resp.Data, nil
}

// Schedule books an availability slot.
func (c *Client) Schedule(ctx context.Context, req domain.AppointmentRequest) (*domain.Appointment, error) {
	var resp struct {
		Success bool               `json:"success"`
		Message string             `json:"message"`
		Data    domain.Appointment `json:"data"`
	}
	err := c.http.Do(ctx, httpx.Request{Method: http.MethodPost, Path: "/appointments", Body: req}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, rejected("schedule appointment", resp.Message)
	}
	return &resp.Data, nil
}

// Cancel cancels a scheduled appointment.
func (c *Client) Cancel(ctx context.Context, appointmentUUID string) error {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	err := c.http.Do(ctx, httpx.Request{
		Method: http.MethodDelete,
		Path:   "/appointments/" + url.PathEscape(appointmentUUID),
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return rejected("cancel appointment", resp.Message)
	}
	return nil
}

// Ping lists specialties as a cheap authenticated probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.http.Do(ctx, httpx.Request{Method: http.MethodGet, Path: "/specialties"}, nil)
}

// Close releases idle connections.
func (c *Client) Close() error { return c.http.Close() }
