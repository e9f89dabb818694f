package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentPending   = "PENDING"
	PaymentConfirmed = "CONFIRMED"
	PaymentRejected  = "REJECTED"
)

const (
	GatewayMercadoPago = "MERCADOPAGO"
	GatewayWebpay      = "WEBPAY"
)

// GatewayResponse is the raw outcome recorded from the payment gateway when
// a transaction is committed.
type GatewayResponse struct {
	Token             string    `bson:"token,omitempty" json:"token,omitempty"`
	PreferenceID      string    `bson:"preference_id,omitempty" json:"preference_id,omitempty"`
	AuthorizationCode string    `bson:"authorization_code,omitempty" json:"authorization_code,omitempty"`
	ResponseCode      int       `bson:"response_code" json:"response_code"`
	CardNumber        string    `bson:"card_number,omitempty" json:"card_number,omitempty"`
	TransactionDate   time.Time `bson:"transaction_date,omitempty" json:"transaction_date,omitempty"`
}

type Contribution struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber string             `bson:"order_number" json:"order_number"`
	Name        string             `bson:"name" json:"name"`
	Lastname    string             `bson:"lastname,omitempty" json:"lastname,omitempty"`
	Email       string             `bson:"email" json:"email"`
	Amount      float64            `bson:"amount" json:"amount"`
	OS          string             `bson:"os,omitempty" json:"os,omitempty"`
	UserID      Ref                `bson:"user_id" json:"user_id"`
	CampaignID  Ref                `bson:"campaign_id" json:"campaign_id"`
	Foundation  Ref                `bson:"foundation_id" json:"foundation_id"`
	Gateway     string             `bson:"gateway" json:"gateway"` // MERCADOPAGO, WEBPAY
	Payment     string             `bson:"payment" json:"payment"` // PENDING, CONFIRMED, REJECTED
	Response    *GatewayResponse   `bson:"gateway_response,omitempty" json:"gateway_response,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
