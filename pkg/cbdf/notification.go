package cbdf

import (
	"encoding/json"
	"time"
)

type Notification struct {
	TargetUser string
	Type       NotificationType

	Title    string
	Message  string
	Category string
}

type NotificationType string

const (
	NotificationTypePush  NotificationType = "Push"
	NotificationTypeEmail NotificationType = "Email"
)

func (n Notification) MarshalBinary() ([]byte, error) {
	return json.Marshal(n)
}

type UserPushNotificationTarget struct {
	UserID                string
	PushNotificationToken string

	ModificationDateTime time.Time `bson:",omitempty"`
}
