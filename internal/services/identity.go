package services

import (
	"context"
	"fmt"

	"github.com/fieldcare/fieldcare-backend/internal/data/repos"
	"github.com/fieldcare/fieldcare-backend/internal/domain/auth"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

// IdentityService resolves an authenticated user id into the profiles the
// user holds.
type IdentityService interface {
	Resolve(ctx context.Context, userID uint) (auth.Identity, error)
}

type identityService struct {
	log      *logger.Logger
	profiles repos.ProfileRepo
}

func NewIdentityService(log *logger.Logger, profiles repos.ProfileRepo) IdentityService {
	return &identityService{
		log:      log.With("service", "IdentityService"),
		profiles: profiles,
	}
}

func (s *identityService) Resolve(ctx context.Context, userID uint) (auth.Identity, error) {
	id := auth.Identity{UserID: userID}
	if userID == 0 {
		return id, fmt.Errorf("user id required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	farmer, err := s.profiles.FarmerByUserID(dbc, userID)
	if err != nil {
		return id, fmt.Errorf("load farmer profile: %w", err)
	}
	if farmer != nil {
		fid := farmer.ID
		id.FarmerID = &fid
	}
	agro, err := s.profiles.AgronomistByUserID(dbc, userID)
	if err != nil {
		return id, fmt.Errorf("load agronomist profile: %w", err)
	}
	if agro != nil {
		aid := agro.ID
		id.AgronomistID = &aid
	}
	s.log.Debug("identity resolved", "user_id", userID, "capabilities", id.Capabilities())
	return id, nil
}
