// Package notify turns booking events into patient emails.
package notify

import (
	"context"
	"time"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/mailer"
	"github.com/diagnosis/elevro/pkg/events"
	"github.com/diagnosis/elevro/pkg/logger"
)

const queue = "elevro-notify"

type Notifier struct {
	mailer mailer.Service
}

func New(m mailer.Service) *Notifier {
	return &Notifier{mailer: m}
}

// Start subscribes to report updates on a queue group, so only one API
// replica sends each email.
func (n *Notifier) Start(sub events.Subscriber) error {
	return sub.QueueSubscribe(events.BookingReportUpdated, queue, n.HandleReportUpdated)
}

func (n *Notifier) HandleReportUpdated(msg *events.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var ev events.ReportUpdatedEvent
	if err := msg.Decode(&ev); err != nil {
		logger.Error("Invalid report event payload", "error", err, "subject", msg.Subject)
		return
	}
	if ev.ReportStatus != string(domain.ReportDelivered) || ev.ReportURL == "" {
		return
	}

	subject, text, html := mailer.ReportReady(ev.Name, ev.TestName, ev.ReportURL)
	if _, err := n.mailer.Send(ctx, ev.Email, ev.Name, subject, text, html); err != nil {
		logger.Error("Failed to send report email", "error", err, "booking_id", ev.BookingID)
		return
	}
	logger.Info("Report email sent", "booking_id", ev.BookingID)
}
