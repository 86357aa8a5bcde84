package models

import "time"

// Subscription is a directed edge: Subscriber follows Channel.
type Subscription struct {
	ID         string    `json:"_id" bson:"_id"`
	Subscriber string    `json:"subscriber" bson:"subscriber"`
	Channel    string    `json:"channel" bson:"channel"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}
