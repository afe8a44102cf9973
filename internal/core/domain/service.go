// Package domain holds the entities exchanged between the orchestrator and its collaborators.
package domain

// Service names an external collaborator.
type Service string

const (
	ServiceRapidoc  Service = "rapidoc"
	ServiceSupabase Service = "supabase"
	ServiceAsaas    Service = "asaas"
	ServiceResend   Service = "resend"
)

// AllServices lists the collaborators in probe/report order.
var AllServices = []Service{ServiceRapidoc, ServiceSupabase, ServiceAsaas, ServiceResend}

// DisplayName returns the vendor name used in user-facing messages.
func (s Service) DisplayName() string {
	switch s {
	case ServiceRapidoc:
		return "RapiDoc"
	case ServiceSupabase:
		return "Supabase"
	case ServiceAsaas:
		return "Asaas"
	case ServiceResend:
		return "Resend"
	}
	return string(s)
}
