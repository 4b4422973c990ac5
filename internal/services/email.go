package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

type EmailService struct {
	host        string
	port        string
	user        string
	pass        string
	from        string
	frontendURL string
	devMode     bool
}

func NewEmailService(host, port, user, pass, from, frontendURL string) *EmailService {
	devMode := host == "" || user == ""
	if devMode {
		log.Println("⚠ Email service running in DEV MODE (logging to console)")
	}
	return &EmailService{
		host:        host,
		port:        port,
		user:        user,
		pass:        pass,
		from:        from,
		frontendURL: frontendURL,
		devMode:     devMode,
	}
}

func (s *EmailService) SendVerificationEmail(to, token string) error {
	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)

	subject := "Verify your Flashdeck account"
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; margin: 0; padding: 0; background-color: #f8fafc;">
  <div style="max-width: 480px; margin: 40px auto; background: white; border-radius: 12px; padding: 32px;">
    <h1 style="margin: 0 0 8px; font-size: 24px; color: #1e293b;">Flashdeck</h1>
    <h2 style="margin: 0 0 16px; font-size: 20px; color: #1e293b;">Verify Your Email</h2>
    <p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 24px;">
      Welcome to Flashdeck! Click the button below to verify your email address and start building your decks.
    </p>
    <a href="%s" style="display: inline-block; background: #6366f1; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">
      Verify Email
    </a>
    <p style="color: #94a3b8; font-size: 12px; margin: 24px 0 0; line-height: 1.5;">
      If the button doesn't work, copy and paste this link:<br>
      <a href="%s" style="color: #6366f1;">%s</a>
    </p>
  </div>
</body>
</html>`, verifyURL, verifyURL, verifyURL)

	return s.send(to, subject, body)
}

func (s *EmailService) SendPasswordResetEmail(to, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)

	subject := "Reset your Flashdeck password"
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; margin: 0; padding: 0; background-color: #f8fafc;">
  <div style="max-width: 480px; margin: 40px auto; background: white; border-radius: 12px; padding: 32px;">
    <h1 style="margin: 0 0 8px; font-size: 24px; color: #1e293b;">Flashdeck</h1>
    <h2 style="margin: 0 0 16px; font-size: 20px; color: #1e293b;">Reset Your Password</h2>
    <p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 24px;">
      Someone requested a password reset for this account. The link below expires in one hour.
      If this wasn't you, you can ignore this email.
    </p>
    <a href="%s" style="display: inline-block; background: #6366f1; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">
      Reset Password
    </a>
    <p style="color: #94a3b8; font-size: 12px; margin: 24px 0 0; line-height: 1.5;">
      If the button doesn't work, copy and paste this link:<br>
      <a href="%s" style="color: #6366f1;">%s</a>
    </p>
  </div>
</body>
</html>`, resetURL, resetURL, resetURL)

	return s.send(to, subject, body)
}

func (s *EmailService) send(to, subject, htmlBody string) error {
	if s.devMode {
		log.Printf("─── DEV EMAIL ───\nTo: %s\nSubject: %s\n(body suppressed)\n──────────────", to, subject)
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.user, s.pass, s.host)

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg)); err != nil {
		log.Printf("✗ Failed to send email to %s: %v", to, err)
		return err
	}
	return nil
}
