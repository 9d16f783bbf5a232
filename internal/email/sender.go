package email

import "context"

// EmailSender delivers one rendered message to one recipient.
type EmailSender interface {
	Send(ctx context.Context, recipient string, msg Message) error
}

const (
	CategoryReport = "report"
	CategoryAlert  = "alert"
)

// Message is a rendered plain-text email. Category ends up as an SES message
// tag so report mail and alert mail can be told apart in delivery metrics.
type Message struct {
	Category string
	Subject  string
	Body     string
}
