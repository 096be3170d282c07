package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"medicheck-server/internal/logger"
)

// Fallback is returned when the model answers with no text.
const Fallback = "I'm not sure how to respond to that!"

// ErrEmptyMessage rejects blank user input.
var ErrEmptyMessage = errors.New("assistant: message is required")

const systemInstruction = `You are an AI assistant for a mobile medical appointment app. Your goal is to help users:
- Check into their appointments by scanning the hospital QR code while on site.
- Locate nearby hospitals.
- Understand appointment schedules and manage bookings.
- Assist elderly patients with simple, clear language.

When answering questions, be direct, polite, and give step-by-step guidance.

Examples:
- User: "How do I check in?"
  AI: "Make sure camera and location permissions are on. Open the app, tap 'Check-In', then scan the QR code at the hospital."
- User: "How do I book appointments?"
  AI: "Open the 'Appointment Booking' tab, pick your hospital, date, time slot and service, then confirm."
- User: "What documents should I bring for my appointment?"
  AI: "Please bring your ID and any medical reports if applicable."
- User: "Can I cancel or reschedule my appointment?"
  AI: "Yes. In 'Appointment Booking' choose 'Edit' to reschedule or 'Delete' to cancel an upcoming appointment."
- User: "Appointments are not loading"
  AI: "Check that you have a stable internet connection. If the problem persists, contact support."

Always prioritize clear, user-friendly explanations.`

// Generator produces a model answer for a prompt under a system instruction.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Service answers app-help questions.
type Service struct {
	gen Generator
	log *logrus.Entry
}

// NewService creates a new assistant Service.
func NewService(gen Generator, log *logger.Logger) *Service {
	return &Service{gen: gen, log: log.WithComponent("assistant")}
}

// Reply answers one user message.
func (s *Service) Reply(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	text, err := s.gen.Generate(ctx, systemInstruction, message)
	if err != nil {
		s.log.WithError(err).Error("Failed to generate reply")
		return "", fmt.Errorf("assistant: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback, nil
	}
	return text, nil
}
