package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Profile holds a user's contact and social details, keyed by email.
type Profile struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email" validate:"required,email"`
	ContactNumber string             `bson:"contactNumber" json:"contactNumber"`
	FacebookLink  string             `bson:"facebookLink" json:"facebookLink"`
	TwitterLink   string             `bson:"twitterLink" json:"twitterLink"`
}
