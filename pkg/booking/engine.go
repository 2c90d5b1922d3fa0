package booking

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/timetable"
)

// Notifier delivers user notifications. Delivery is fire-and-forget - a
// failed notification never rolls back a committed booking.
type Notifier interface {
	Enqueue(notification cbdf.Notification) error
}

// Engine ties the timetable builder, conflict detector, inventory ledger
// and lifecycle state machine together behind the booking operations.
type Engine struct {
	Timetable *timetable.Builder
	Notifier  Notifier
}

func NewEngine(timetableBuilder *timetable.Builder, notifier Notifier) *Engine {
	return &Engine{
		Timetable: timetableBuilder,
		Notifier:  notifier,
	}
}

func newIdentifier(recordType string) string {
	return fmt.Sprintf("tripline:%s:%s", recordType, uuid.New().String())
}

func (e *Engine) notify(userRef string, title string, message string, category string) {
	if e.Notifier == nil || userRef == "" {
		return
	}

	err := e.Notifier.Enqueue(cbdf.Notification{
		TargetUser: userRef,
		Type:       cbdf.NotificationTypePush,
		Title:      title,
		Message:    message,
		Category:   category,
	})
	if err != nil {
		log.Warn().Err(err).Str("user", userRef).Msg("Failed to enqueue notification")
	}
}
