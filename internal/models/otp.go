package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryMethod is the channel a login challenge is sent over.
type DeliveryMethod string

const (
	DeliveryEmail DeliveryMethod = "email"
	DeliverySMS   DeliveryMethod = "sms"
)

func (m DeliveryMethod) Valid() bool {
	return m == DeliveryEmail || m == DeliverySMS
}

// OTP is a single login challenge. For the email channel Code holds the
// numeric secret and the record id doubles as the correlation token. For the
// sms channel Code holds the gateway-issued token; the secret itself lives at
// the gateway and is checked through its confirm operation.
type OTP struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Identifier     string             `bson:"identifier" json:"identifier"`
	Code           string             `bson:"code" json:"-"`
	DeliveryMethod DeliveryMethod     `bson:"delivery_method" json:"deliveryMethod"`
	Expiry         time.Time          `bson:"expiry" json:"expiry"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.Expiry)
}
