package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coordinates struct for latitude and longitude
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// FundsTransferData is the bank account a foundation receives payouts on.
type FundsTransferData struct {
	Bank          string `bson:"bank,omitempty" json:"bank,omitempty"`
	AccountType   string `bson:"account_type,omitempty" json:"account_type,omitempty"`
	AccountNumber string `bson:"account_number,omitempty" json:"account_number,omitempty"`
	HolderID      string `bson:"holder_id,omitempty" json:"holder_id,omitempty"`
	Email         string `bson:"email,omitempty" json:"email,omitempty"`
}

type Foundation struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name            string               `bson:"name" json:"name"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	Phone           string               `bson:"phone,omitempty" json:"phone,omitempty"`
	ConfidenceLevel int                  `bson:"confidence_level" json:"confidence_level"` // 1-3
	Country         string               `bson:"country,omitempty" json:"country,omitempty"`
	City            string               `bson:"city,omitempty" json:"city,omitempty"`
	Address         string               `bson:"address,omitempty" json:"address,omitempty"`
	Coordinates     Coordinates          `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	Status          bool                 `bson:"status" json:"status"`
	Delete          bool                 `bson:"delete" json:"delete"`
	Responsible     Ref                  `bson:"responsible" json:"responsible"`
	Multimedia      []string             `bson:"multimedia" json:"multimedia"`
	FundsTransfer   FundsTransferData    `bson:"funds_transfer_data,omitempty" json:"funds_transfer_data,omitempty"`
	Campaigns       IDList               `bson:"campaigns,omitempty" json:"campaigns,omitempty"`
	CreatedAt       time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updated_at"`

	// Enriched fields
	ResponsibleData *User `bson:"-" json:"responsible_data,omitempty"`
}

// ConfidenceAutoPublish is the trust tier at which a foundation's campaigns
// go live without manual approval.
const ConfidenceAutoPublish = 3

type Category struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	Status bool               `bson:"status" json:"status"`
}
