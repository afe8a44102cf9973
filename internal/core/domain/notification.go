package domain

import "time"

// Channel is the delivery path of a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

// Template is the closed set of notification templates.
type Template int

const (
	TemplateConsultationConfirmed Template = iota + 1
	TemplateConsultationCancelled
	TemplateAppointmentReminder
	TemplatePaymentConfirmed
	TemplatePaymentFailed
	TemplateWelcome
)

var templateNames = map[Template]string{
	TemplateConsultationConfirmed: "consultation_confirmed",
	TemplateConsultationCancelled: "consultation_cancelled",
	TemplateAppointmentReminder:   "appointment_reminder",
	TemplatePaymentConfirmed:      "payment_confirmed",
	TemplatePaymentFailed:         "payment_failed",
	TemplateWelcome:               "welcome",
}

func (t Template) String() string {
	if n, ok := templateNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParseTemplate maps a wire name to a Template.
func ParseTemplate(name string) (Template, bool) {
	for t, n := range templateNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Notification is a row of system_notifications.
type Notification struct {
	ID        string            `db:"id"         json:"id"`
	UserID    string            `db:"user_id"    json:"user_id"`
	Channel   Channel           `db:"channel"    json:"channel"`
	Template  string            `db:"template"   json:"template"`
	Title     string            `db:"title"      json:"title"`
	Message   string            `db:"message"    json:"message"`
	Data      map[string]string `db:"-"          json:"data,omitempty"`
	Read      bool              `db:"read"       json:"read"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// Attachment is a file sent with an email.
type Attachment struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// Email is a transactional message.
type Email struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}
