package notifier

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"
	"time"

	"github.com/vasapolrittideah/orvane-auth/shared/mailer"
)

const (
	verificationCodeTemplate = "verification_code"
	verificationDoneTemplate = "verification_confirmation"
	passwordResetTemplate    = "password_reset"
)

var subjects = map[string]string{
	verificationCodeTemplate: "Your {{.Product}} verification code",
	verificationDoneTemplate: "Your {{.Product}} email is verified",
	passwordResetTemplate:    "Reset your {{.Product}} password",
}

var textBodies = map[string]string{
	verificationCodeTemplate: `Hi,

Your {{.Product}} verification code is {{.Code}}.
It expires in {{.ExpiresIn}}. If you did not sign up, you can ignore this email.
`,
	verificationDoneTemplate: `Hi,

Your email address is now verified. Please sign in to {{.Product}} again.
`,
	passwordResetTemplate: `Hi,

We received a request to reset the password for your {{.Product}} account.
Open the link below to choose a new password. It expires in {{.ExpiresIn}}.

{{.Link}}

If you did not request a password reset, you can ignore this email.
`,
}

var htmlBodies = map[string]string{
	verificationCodeTemplate: `<p>Hi,</p>
<p>Your {{.Product}} verification code is <strong>{{.Code}}</strong>.</p>
<p>It expires in {{.ExpiresIn}}. If you did not sign up, you can ignore this email.</p>`,
	verificationDoneTemplate: `<p>Hi,</p>
<p>Your email address is now verified. Please sign in to {{.Product}} again.</p>`,
	passwordResetTemplate: `<p>Hi,</p>
<p>We received a request to reset the password for your {{.Product}} account.</p>
<p>Open the link below to choose a new password. It expires in {{.ExpiresIn}}.</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>If you did not request a password reset, you can ignore this email.</p>`,
}

type templateData struct {
	Product   string
	Code      string
	Link      string
	ExpiresIn string
}

// Composer renders the emails of the auth workflows.
type Composer struct {
	product  string
	resetURL string
	codeTTL  time.Duration
	resetTTL time.Duration

	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// NewComposer parses the email templates. resetURL is the page that receives
// the reset reference in its token query parameter.
func NewComposer(product, resetURL string, codeTTL, resetTTL time.Duration) (*Composer, error) {
	if _, err := url.Parse(resetURL); err != nil {
		return nil, fmt.Errorf("invalid password reset url: %w", err)
	}

	c := &Composer{
		product:  product,
		resetURL: resetURL,
		codeTTL:  codeTTL,
		resetTTL: resetTTL,
		subject:  texttemplate.New("subject"),
		text:     texttemplate.New("text"),
		html:     htmltemplate.New("html"),
	}

	for name := range subjects {
		if _, err := c.subject.New(name).Parse(subjects[name]); err != nil {
			return nil, err
		}
		if _, err := c.text.New(name).Parse(textBodies[name]); err != nil {
			return nil, err
		}
		if _, err := c.html.New(name).Parse(htmlBodies[name]); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Composer) VerificationCode(to, code string) (mailer.Email, error) {
	return c.render(verificationCodeTemplate, to, templateData{
		Product:   c.product,
		Code:      code,
		ExpiresIn: humanize(c.codeTTL),
	})
}

func (c *Composer) VerificationConfirmation(to string) (mailer.Email, error) {
	return c.render(verificationDoneTemplate, to, templateData{Product: c.product})
}

func (c *Composer) PasswordReset(to, reference string) (mailer.Email, error) {
	link, err := url.Parse(c.resetURL)
	if err != nil {
		return mailer.Email{}, err
	}
	query := link.Query()
	query.Set("token", reference)
	link.RawQuery = query.Encode()

	return c.render(passwordResetTemplate, to, templateData{
		Product:   c.product,
		Link:      link.String(),
		ExpiresIn: humanize(c.resetTTL),
	})
}

func (c *Composer) render(name, to string, data templateData) (mailer.Email, error) {
	var subject, text, html bytes.Buffer

	if err := c.subject.ExecuteTemplate(&subject, name, data); err != nil {
		return mailer.Email{}, err
	}
	if err := c.text.ExecuteTemplate(&text, name, data); err != nil {
		return mailer.Email{}, err
	}
	if err := c.html.ExecuteTemplate(&html, name, data); err != nil {
		return mailer.Email{}, err
	}

	return mailer.Email{
		To:       []string{to},
		Subject:  subject.String(),
		Body:     text.String(),
		HTMLBody: html.String(),
	}, nil
}

// humanize prints whole hours or minutes, e.g. "1 hour" or "5 minutes".
func humanize(d time.Duration) string {
	unit, n := "minute", int(d/time.Minute)
	if d >= time.Hour && d%time.Hour == 0 {
		unit, n = "hour", int(d/time.Hour)
	}
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
