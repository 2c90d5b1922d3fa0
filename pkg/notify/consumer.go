package notify

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/cbdf"
)

type NotifyBatchConsumer struct {
	PushManager *PushManager
}

func NewNotifyBatchConsumer(pushManager *PushManager) *NotifyBatchConsumer {
	return &NotifyBatchConsumer{PushManager: pushManager}
}

func (c *NotifyBatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	for _, payload := range payloads {
		var notification cbdf.Notification
		if err := json.Unmarshal([]byte(payload), &notification); err != nil {
			log.Error().Err(err).Msg("Failed to decode notification")
			continue
		}

		pretty.Println(notification)

		if notification.Type != cbdf.NotificationTypePush || c.PushManager == nil {
			continue
		}

		// Delivery failures are logged and dropped - they never affect
		// the booking that raised them
		if err := c.PushManager.SendPush(notification); err != nil {
			log.Error().Err(err).Str("target", notification.TargetUser).Msg("Failed to send push notification")
		}
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Fatal().Err(err).Msg("Failed to consume from queue")
		}
	}
}
