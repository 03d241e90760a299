// Package mailer delivers the account lifecycle emails. Delivery is
// fire-and-forget: requests hand messages to a Dispatcher and never wait for
// the provider.
package mailer

import (
	"context"
	"fmt"
	"strings"
)

// Message is a plain-text email. From is filled in by the Sender.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// firstName returns the first space-separated word of a display name.
func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return name
	}
	return fields[0]
}

func WelcomeMessage(email, name string) Message {
	first := firstName(name)
	return Message{
		To:      email,
		Subject: "Welcome to the Task App!",
		Body:    fmt.Sprintf("Welcome to the new Task APP %s, hope you find it useful!", first),
	}
}

func CancellationMessage(email, name string) Message {
	first := firstName(name)
	return Message{
		To:      email,
		Subject: fmt.Sprintf("We're sad to see you go %s", first),
		Body:    fmt.Sprintf("If you're sure about cancelling %s, would you mind responding with your reason for leaving?", first),
	}
}
