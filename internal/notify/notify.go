package notify

import "context"

// EmailSender delivers a plain-text message to one or more recipients.
type EmailSender interface {
	SendEmail(ctx context.Context, subject, body string, recipients []string) error
}

// SMSSender delivers a short text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}
