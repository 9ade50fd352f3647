package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/repository"
)

type ProfileService struct {
	profiles ProfileStore
	validate *validator.Validate
}

func NewProfileService(profiles ProfileStore) *ProfileService {
	return &ProfileService{profiles: profiles, validate: newValidator()}
}

// Save creates the profile for p.Email or overwrites the existing one.  The
// boolean reports whether a new profile was created.
func (s *ProfileService) Save(ctx context.Context, p model.Profile) (*model.Profile, bool, error) {
	sanitizeProfile(&p)
	if err := validateStruct(s.validate, &p); err != nil {
		return nil, false, err
	}
	existing, err := s.profiles.FindByEmail(ctx, p.Email)
	switch {
	case errors.Is(err, repository.ErrProfileNotFound):
		if err := s.profiles.Insert(ctx, &p); err != nil {
			return nil, false, err
		}
		return &p, true, nil
	case err != nil:
		return nil, false, err
	}
	existing.Name = p.Name
	existing.ContactNumber = p.ContactNumber
	existing.FacebookLink = p.FacebookLink
	existing.TwitterLink = p.TwitterLink
	if err := s.profiles.Update(ctx, existing); err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *ProfileService) Get(ctx context.Context, email string) (*model.Profile, error) {
	return s.profiles.FindByEmail(ctx, email)
}
