package entities

import "time"

// RoomKey is a join credential for one room.
type RoomKey struct {
	Key       string     `dynamodbav:"Key"`
	RoomId    string     `dynamodbav:"RoomId"`
	SingleUse bool       `dynamodbav:"SingleUse"`
	CreatedAt time.Time  `dynamodbav:"CreatedAt"`
	ExpiresAt *time.Time `dynamodbav:"ExpiresAt,omitempty"`
}

func (k RoomKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}
