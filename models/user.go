package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProfileAdmin  = "ADMIN"
	ProfileClient = "CLIENT"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UID          string             `bson:"uid,omitempty" json:"uid,omitempty"`
	Name         string             `bson:"name" json:"name"`
	Lastname     string             `bson:"lastname,omitempty" json:"lastname,omitempty"`
	Email        string             `bson:"email" json:"email"`
	Profile      string             `bson:"profile" json:"profile"` // ADMIN, CLIENT
	Status       bool               `bson:"status" json:"status"`
	Delete       bool               `bson:"delete" json:"delete"`
	PhotoURL     string             `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	Foundation   Ref                `bson:"foundation,omitempty" json:"foundation,omitempty"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}
