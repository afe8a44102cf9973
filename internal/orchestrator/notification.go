package orchestrator

import (
	"context"
	"fmt"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/events"
	"github.com/vietddude/tema/internal/notify"
)

const (
	labelEmail        = "Envio de email"
	labelInApp        = "Notificação no app"
	labelProfile      = "Perfil do usuário"
	labelConsultLog   = "Registro da consulta"
	labelSubscription = "Registro da assinatura"
	labelWriteBack    = "Atualização do cadastro"
	labelRapidocSync  = "RapiDoc sync"
	labelAsaasSync    = "Asaas sync"
)

type delivery struct {
	email Outcome
	inApp Outcome
	sent  bool // email attempted
	row   *domain.Notification
}

// deliver sends an email (when requested and possible) and records the in-app row.
// Both steps run regardless of each other.
func (o *Orchestrator) deliver(
	ctx context.Context,
	profile *domain.Profile,
	channel domain.Channel,
	msg notify.Message,
	template domain.Template,
	attachments []domain.Attachment,
) delivery {
	var d delivery
	if channel == domain.ChannelEmail {
		d.sent = true
		var err error
		if profile.Email == "" {
			err = apperr.Validation("email", "profile has no email address")
		} else {
			_, err = call(ctx, o, func(ctx context.Context) (string, error) {
				return o.mailer.Send(ctx, domain.Email{
					To:          []string{profile.Email},
					Subject:     msg.Subject,
					HTML:        msg.HTML,
					Text:        msg.Text,
					Attachments: attachments,
				})
			})
		}
		d.email = o.outcome(domain.ServiceResend, labelEmail, err)
	}

	d.row = &domain.Notification{
		UserID:    profile.UserID,
		Channel:   channel,
		Template:  template.String(),
		Title:     msg.Title,
		Message:   msg.Text,
		CreatedAt: o.now().UTC(),
	}
	err := o.record(ctx, "supabase.notification", func(ctx context.Context) error {
		return o.store.InsertNotification(ctx, d.row)
	})
	d.inApp = o.outcome(domain.ServiceSupabase, labelInApp, err)
	return d
}

// notifyBestEffort delivers a template and reports every step as secondary.
func notifyBestEffort[T any](
	ctx context.Context,
	o *Orchestrator,
	r *Result[T],
	userID string,
	template domain.Template,
	data map[string]string,
	attachments []domain.Attachment,
) {
	profile, err := o.loadProfile(ctx, userID)
	if err != nil {
		r.secondary(o.outcome(domain.ServiceSupabase, labelProfile, err))
		return
	}
	if data["name"] == "" {
		data["name"] = profile.Name
	}
	msg, err := notify.Render(template, data)
	if err != nil {
		r.secondary(o.outcome(domain.ServiceResend, labelEmail, err))
		return
	}
	d := o.deliver(ctx, profile, domain.ChannelEmail, msg, template, attachments)
	r.secondary(d.email)
	r.secondary(d.inApp)
}

// SendNotification delivers template to userID over channel. The email, when the channel
// is email, is the primary step and the in-app row is secondary; for other channels the
// in-app row is primary.
func (o *Orchestrator) SendNotification(
	ctx context.Context,
	userID string,
	channel domain.Channel,
	template domain.Template,
	data map[string]string,
) (r Result[*domain.Notification]) {
	defer finish(o, "send_notification", &r, requireAll)

	switch channel {
	case domain.ChannelEmail, domain.ChannelPush, domain.ChannelInApp:
	default:
		fail(o, &r, apperr.Validation("channel", fmt.Sprintf("unsupported channel %q", channel)), "notification.validate")
		return r
	}
	if data == nil {
		data = map[string]string{}
	}

	profile, err := o.loadProfile(ctx, userID)
	if err != nil {
		fail(o, &r, err, "notification.profile")
		return r
	}
	if data["name"] == "" {
		data["name"] = profile.Name
	}
	msg, err := notify.Render(template, data)
	if err != nil {
		fail(o, &r, apperr.Validation("template", err.Error()), "notification.render")
		return r
	}

	d := o.deliver(ctx, profile, channel, msg, template, nil)
	if d.sent {
		r.primary(d.email)
		r.secondary(d.inApp)
	} else {
		r.primary(d.inApp)
	}
	r.Data = d.row

	o.emit(ctx, events.New(events.NotificationSent, userID, d.email.OK() && d.inApp.OK(), map[string]any{
		"channel":  string(channel),
		"template": template.String(),
		"email":    d.sent && d.email.OK(),
		"in_app":   d.inApp.OK(),
	}))
	return r
}
