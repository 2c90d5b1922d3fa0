package notify

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/redis_client"
)

const QueueName = "notify-queue"

// QueuePublisher pushes notifications onto the notify queue. Delivery
// happens in the notify consumer, never inline with a booking mutation.
type QueuePublisher struct {
	queue rmq.Queue
}

func NewQueuePublisher() (*QueuePublisher, error) {
	queue, err := redis_client.QueueConnection.OpenQueue(QueueName)
	if err != nil {
		return nil, err
	}

	return &QueuePublisher{queue: queue}, nil
}

func (p *QueuePublisher) Enqueue(notification cbdf.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	return p.queue.PublishBytes(payload)
}
