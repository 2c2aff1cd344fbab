// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

/*
Package mail implements the outbound notification dispatcher.

It delivers email-verification and password-reset links over SMTP. Delivery
is fire-and-forget relative to the HTTP response: callers invoke the sender
from a detached goroutine, and a failed send is logged but never rolls back
the state change that triggered it.
*/
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"

	"github.com/kienvo/identra/internal/platform/ctxutil"
)

// Mailer sends transactional emails over plain SMTP.
type Mailer struct {
	host      string
	port      string
	username  string
	password  string
	fromEmail string
	clientURL string
}

// NewMailer constructs a Mailer from SMTP transport settings.
//
// clientURL is the SPA origin embedded in verification/reset links.
func NewMailer(host, port, username, password, clientURL string) *Mailer {
	return &Mailer{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: username,
		clientURL: clientURL,
	}
}

// SendVerificationEmail delivers the email-verification link for a freshly
// registered account.
func (mailer *Mailer) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	logger := ctxutil.GetLogger(ctx)

	verificationLink := fmt.Sprintf("%s/verify-email?token=%s", mailer.clientURL, token)

	body, err := renderTemplate(verificationTemplate, verificationLink)
	if err != nil {
		return fmt.Errorf("mail: render verification template: %w", err)
	}

	if err := mailer.send(toEmail, "Verify your email address", body); err != nil {
		logger.Error("verification_email_failed",
			slog.String("email", toEmail),
			slog.Any("error", err),
		)
		return fmt.Errorf("mail: send verification email: %w", err)
	}

	logger.Info("verification_email_sent", slog.String("email", toEmail))
	return nil
}

// SendPasswordResetEmail delivers the password-reset link.
func (mailer *Mailer) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	logger := ctxutil.GetLogger(ctx)

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", mailer.clientURL, token)

	body, err := renderTemplate(resetTemplate, resetLink)
	if err != nil {
		return fmt.Errorf("mail: render reset template: %w", err)
	}

	if err := mailer.send(toEmail, "Reset your password", body); err != nil {
		logger.Error("password_reset_email_failed",
			slog.String("email", toEmail),
			slog.Any("error", err),
		)
		return fmt.Errorf("mail: send reset email: %w", err)
	}

	logger.Info("password_reset_email_sent", slog.String("email", toEmail))
	return nil
}

// send builds an HTML MIME message and delivers it through the SMTP relay.
func (mailer *Mailer) send(to, subject, body string) error {
	auth := smtp.PlainAuth("", mailer.username, mailer.password, mailer.host)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		mailer.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", mailer.host, mailer.port)
	return smtp.SendMail(addr, auth, mailer.fromEmail, []string{to}, msg)
}

// renderTemplate executes one of the message templates with the action link.
func renderTemplate(tmpl *template.Template, link string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Link string }{Link: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Message bodies are deliberately minimal HTML; the SPA owns the real UX.
var (
	verificationTemplate = template.Must(template.New("verification").Parse(`
<h2>Email Verification</h2>
<p>Please click the link below to verify your email address:</p>
<p><a href="{{.Link}}">Verify Email</a></p>
<p>This link will expire in 24 hours.</p>
`))

	resetTemplate = template.Must(template.New("reset").Parse(`
<h2>Password Reset</h2>
<p>Please click the link below to reset your password:</p>
<p><a href="{{.Link}}">Reset Password</a></p>
<p>This link will expire in 1 hour.</p>
`))
)
