// Package notify renders notification templates and payment receipts.
package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/vietddude/tema/internal/core/domain"
)

// Message is a rendered template.
type Message struct {
	Subject string
	Title   string
	Text    string
	HTML    string
}

// Render fills template t with data. Unknown templates are an error.
func Render(t domain.Template, data map[string]string) (Message, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(data[k]); v != "" {
			return v
		}
		return def
	}
	name := get("name", "paciente")

	var m Message
	switch t {
	case domain.TemplateConsultationConfirmed:
		m.Title = "Consulta confirmada"
		m.Text = fmt.Sprintf("Olá %s, sua consulta foi confirmada para %s.", name, get("date", "o horário agendado"))
		if url := data["url"]; url != "" {
			m.Text += " Acesse: " + url
		}
	case domain.TemplateConsultationCancelled:
		m.Title = "Consulta cancelada"
		m.Text = fmt.Sprintf("Olá %s, sua consulta %s foi cancelada.", name, get("appointment", ""))
	case domain.TemplateAppointmentReminder:
		m.Title = "Lembrete de consulta"
		m.Text = fmt.Sprintf("Olá %s, lembramos que você tem uma consulta em %s.", name, get("date", "breve"))
	case domain.TemplatePaymentConfirmed:
		m.Title = "Pagamento confirmado"
		m.Text = fmt.Sprintf("Olá %s, recebemos seu pagamento de R$ %s via %s.",
			name, get("value", "0,00"), get("billing_type", "PIX"))
		if inv := data["invoice_url"]; inv != "" {
			m.Text += " Fatura: " + inv
		}
	case domain.TemplatePaymentFailed:
		m.Title = "Falha no pagamento"
		m.Text = fmt.Sprintf("Olá %s, não conseguimos processar seu pagamento. %s",
			name, get("reason", "Tente novamente ou escolha outra forma de pagamento."))
	case domain.TemplateWelcome:
		m.Title = "Bem-vindo"
		m.Text = fmt.Sprintf("Olá %s, seu cadastro foi concluído. Você já pode agendar consultas.", name)
	default:
		return Message{}, fmt.Errorf("unknown template %d", int(t))
	}

	m.Subject = m.Title + " - Tema Saúde"
	m.Text = strings.TrimSpace(strings.ReplaceAll(m.Text, "  ", " "))
	m.HTML = fmt.Sprintf("<h2>%s</h2><p>%s</p>", html.EscapeString(m.Title), html.EscapeString(m.Text))
	return m, nil
}
