package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
)

const (
	TemplateVerifyEmail       = "verify_email"
	TemplateResetPassword     = "reset_password"
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOrderStatus       = "order_status"
	TemplateWelcomeDiscount   = "welcome_discount"
	TemplateCampaign          = "campaign"
)

type localized struct {
	subject *texttemplate.Template
	body    *template.Template
}

var templates = map[string]map[string]localized{
	TemplateVerifyEmail: {
		"en": parse("Confirm your email", `<p>Hello {{.Name}},</p><p>Confirm your email address: <a href="{{.Link}}">{{.Link}}</a></p>`),
		"bg": parse("Потвърдете имейла си", `<p>Здравейте, {{.Name}},</p><p>Потвърдете имейл адреса си: <a href="{{.Link}}">{{.Link}}</a></p>`),
	},
	TemplateResetPassword: {
		"en": parse("Reset your password", `<p>Reset your password here: <a href="{{.Link}}">{{.Link}}</a></p><p>The link expires in one hour.</p>`),
		"bg": parse("Смяна на парола", `<p>Сменете паролата си тук: <a href="{{.Link}}">{{.Link}}</a></p><p>Връзката е валидна един час.</p>`),
	},
	TemplateOrderConfirmation: {
		"en": parse("Order {{.Number}} confirmed", `<p>Thank you for your order {{.Number}}.</p><ul>{{range .Items}}<li>{{.Quantity}} x {{.Name}} - {{.Price}}</li>{{end}}</ul><p>Total: {{.Total}} {{.Currency}}</p>`),
		"bg": parse("Поръчка {{.Number}} е потвърдена", `<p>Благодарим за поръчка {{.Number}}.</p><ul>{{range .Items}}<li>{{.Quantity}} x {{.Name}} - {{.Price}}</li>{{end}}</ul><p>Общо: {{.Total}} {{.Currency}}</p>`),
	},
	TemplateOrderStatus: {
		"en": parse("Order {{.Number}} is now {{.Status}}", `<p>Your order {{.Number}} is now {{.Status}}.</p>{{if .TrackingNumber}}<p>Tracking: {{.TrackingNumber}} ({{.Courier}})</p>{{end}}`),
		"bg": parse("Поръчка {{.Number}}: {{.Status}}", `<p>Статусът на поръчка {{.Number}} е {{.Status}}.</p>{{if .TrackingNumber}}<p>Номер за проследяване: {{.TrackingNumber}} ({{.Courier}})</p>{{end}}`),
	},
	TemplateWelcomeDiscount: {
		"en": parse("Welcome! Here is {{.Percentage}}% off", `<p>Thanks for subscribing. Use code <b>{{.Code}}</b> for {{.Percentage}}% off your next order.</p><p><a href="{{.UnsubscribeLink}}">Unsubscribe</a></p>`),
		"bg": parse("Добре дошли! {{.Percentage}}% отстъпка", `<p>Благодарим за абонамента. Използвайте код <b>{{.Code}}</b> за {{.Percentage}}% отстъпка.</p><p><a href="{{.UnsubscribeLink}}">Отписване</a></p>`),
	},
	TemplateCampaign: {
		"en": parse("{{.Subject}}", `<p>Use code <b>{{.Code}}</b> for {{.Percentage}}% off until {{.Expires}}.</p><p><a href="{{.UnsubscribeLink}}">Unsubscribe</a></p>`),
		"bg": parse("{{.Subject}}", `<p>Използвайте код <b>{{.Code}}</b> за {{.Percentage}}% отстъпка до {{.Expires}}.</p><p><a href="{{.UnsubscribeLink}}">Отписване</a></p>`),
	},
}

func parse(subject, body string) localized {
	return localized{
		subject: texttemplate.Must(texttemplate.New("subject").Parse(subject)),
		body:    template.Must(template.New("body").Parse(body)),
	}
}

// Render builds a message for the named template. Unknown locales fall back to Bulgarian.
func Render(name, locale, to string, data any) (Message, error) {
	byLocale, ok := templates[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown mail template %q", name)
	}
	tpl, ok := byLocale[locale]
	if !ok {
		tpl = byLocale["bg"]
	}

	var subject strings.Builder
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s subject: %w", name, err)
	}
	var body bytes.Buffer
	if err := tpl.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s: %w", name, err)
	}

	return Message{
		To:       to,
		Subject:  subject.String(),
		HTML:     body.String(),
		Template: name,
	}, nil
}
