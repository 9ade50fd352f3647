package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/event-hub/internal/database"
	"github.com/iliyamo/event-hub/internal/model"
)

type ProfileRepo struct {
	coll *mongo.Collection
}

func NewProfileRepo(db *mongo.Database) *ProfileRepo {
	return &ProfileRepo{coll: db.Collection(database.ProfilesCollection)}
}

func (r *ProfileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var p model.Profile
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

func (r *ProfileRepo) Insert(ctx context.Context, p *model.Profile) error {
	p.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of the stored profile with p's.
func (r *ProfileRepo) Update(ctx context.Context, p *model.Profile) error {
	set := bson.M{
		"name":          p.Name,
		"contactNumber": p.ContactNumber,
		"facebookLink":  p.FacebookLink,
		"twitterLink":   p.TwitterLink,
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrProfileNotFound
	}
	return nil
}
