package utils

import (
	"context"
	"fmt"
	"html"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"khushin_back_end/internal/config"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/order"
)

// Mailer sends transactional email over SMTP. With no SMTP host configured it only logs.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
	}
}

// BuildMessage assembles an HTML message without sending it.
func (m *Mailer) BuildMessage(to, subject, htmlBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, err
	}
	if err := msg.To(to); err != nil {
		return nil, err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg, err := m.BuildMessage(to, subject, htmlBody)
	if err != nil {
		return err
	}
	if m.host == "" {
		log.WithFields(log.Fields{"to": to, "subject": subject}).Info("📭 SMTP not configured, email skipped")
		return nil
	}

	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}
	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return err
	}

	log.WithField("to", to).Info("📤 Sending email")
	return client.DialAndSendWithContext(ctx, msg)
}

// SendOrderConfirmation mails the paid order summary to the shipping address on file.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, o models.Order) error {
	subject := fmt.Sprintf("Your Khushin order %s is confirmed", o.OrderRef)
	return m.Send(ctx, o.Shipping.Email, subject, OrderConfirmationHTML(o))
}

// OrderConfirmationHTML renders the order confirmation email body.
func OrderConfirmationHTML(o models.Order) string {
	var rows strings.Builder
	for _, item := range o.Items {
		fmt.Fprintf(&rows, `
			<tr>
				<td style="padding: 8px; border: 1px solid #e5e0d8;">%s</td>
				<td style="padding: 8px; border: 1px solid #e5e0d8;">%d</td>
				<td style="padding: 8px; border: 1px solid #e5e0d8;">%s</td>
				<td style="padding: 8px; border: 1px solid #e5e0d8;">%s</td>
			</tr>`,
			html.EscapeString(item.Name), item.Quantity,
			order.FormatINR(item.Price), order.FormatINR(item.Price*int64(item.Quantity)))
	}

	shipping := "Free"
	if o.ShippingCost > 0 {
		shipping = order.FormatINR(o.ShippingCost)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Order confirmation</title></head>
<body style="font-family: Georgia, serif; background-color: #faf8f5; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: #fff; padding: 24px;">
		<h2 style="color: #3b2f2f;">Thank you, %s</h2>
		<p>Your order <strong>%s</strong> has been confirmed.</p>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f3efe9;">
					<th style="padding: 8px; text-align: left;">Item</th>
					<th style="padding: 8px; text-align: left;">Qty</th>
					<th style="padding: 8px; text-align: left;">Price</th>
					<th style="padding: 8px; text-align: left;">Total</th>
				</tr>
			</thead>
			<tbody>%s
			</tbody>
		</table>
		<p>Subtotal: %s<br>Shipping: %s<br><strong>Total: %s</strong></p>
		<p>Delivering to %s, %s %s</p>
	</div>
</body>
</html>`,
		html.EscapeString(o.Shipping.FullName), o.OrderRef, rows.String(),
		order.FormatINR(o.Subtotal), shipping, order.FormatINR(o.Total),
		html.EscapeString(o.Shipping.Address), html.EscapeString(o.Shipping.City), html.EscapeString(o.Shipping.PostalCode))
}
