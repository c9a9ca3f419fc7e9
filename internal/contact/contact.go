// Package contact delivers the portfolio contact form.
package contact

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ResetDelay is how long a success or error status stays visible before the
// form returns to idle.
const ResetDelay = 5 * time.Second

var (
	// ErrNotConfigured means no delivery credentials are set.
	ErrNotConfigured = errors.New("contact delivery not configured")
	// ErrRejected means the relay answered without reporting success.
	ErrRejected = errors.New("contact relay rejected message")
	// ErrInvalidMessage is returned by Validate.
	ErrInvalidMessage = errors.New("invalid contact message")
)

// Message is one contact form submission.
type Message struct {
	Name    string
	Email   string
	Message string
	Subject string
}

// Sender delivers a Message somewhere a human will read it.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Normalize trims every field.
func (m Message) Normalize() Message {
	return Message{
		Name:    strings.TrimSpace(m.Name),
		Email:   strings.TrimSpace(m.Email),
		Message: strings.TrimSpace(m.Message),
		Subject: strings.TrimSpace(m.Subject),
	}
}

// Validate checks the required fields and the address syntax.
func (m Message) Validate() error {
	switch {
	case m.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidMessage)
	case m.Email == "":
		return fmt.Errorf("%w: email is required", ErrInvalidMessage)
	case m.Message == "":
		return fmt.Errorf("%w: message is required", ErrInvalidMessage)
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return fmt.Errorf("%w: email address is not valid", ErrInvalidMessage)
	}
	return nil
}

// SubjectOrDefault returns the subject line to deliver with.
func (m Message) SubjectOrDefault() string {
	if m.Subject != "" {
		return m.Subject
	}
	return fmt.Sprintf("Portfolio Contact: %s", m.Name)
}

// Status is the client-visible state of the form.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSending Status = "sending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is a terminal outcome of one submission.
type Result struct {
	Status     Status
	Message    string
	ResetAfter time.Duration
	Err        error
}

const (
	successText = "Thank you for your message! I'll get back to you soon."
	failureText = "Sorry, there was an error sending your message. Please try again later."
)

// Submit validates msg, makes exactly one delivery attempt and maps the
// outcome to a Result. It never retries.
func Submit(ctx context.Context, sender Sender, msg Message) Result {
	msg = msg.Normalize()
	if err := msg.Validate(); err != nil {
		return Result{
			Status:     StatusError,
			Message:    strings.TrimPrefix(err.Error(), ErrInvalidMessage.Error()+": "),
			ResetAfter: ResetDelay,
			Err:        err,
		}
	}
	if sender == nil {
		return Result{Status: StatusError, Message: failureText, ResetAfter: ResetDelay, Err: ErrNotConfigured}
	}
	if err := sender.Send(ctx, msg); err != nil {
		return Result{Status: StatusError, Message: failureText, ResetAfter: ResetDelay, Err: err}
	}
	return Result{Status: StatusSuccess, Message: successText, ResetAfter: ResetDelay}
}
