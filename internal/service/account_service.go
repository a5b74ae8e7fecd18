package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"subhlabh/internal/apierror"
	"subhlabh/internal/dto"
	"subhlabh/internal/model"
	"subhlabh/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 12

// NewAccount is the input of CreateAccount.
type NewAccount struct {
	Email    string
	Password string
	ShopName string
	Timezone string
	Verified bool
}

type AccountService interface {
	Get(ctx context.Context, owner uuid.UUID) (*dto.AccountResponse, error)
	Update(ctx context.Context, owner uuid.UUID, req dto.UpdateAccountRequest) (*dto.AccountResponse, error)
	RequestDeletion(ctx context.Context, owner uuid.UUID) (*dto.AccountResponse, error)
	CancelDeletion(ctx context.Context, owner uuid.UUID) (*dto.AccountResponse, error)
	// PurgeExpired deletes accounts pending deletion for longer than the grace
	// period, together with everything they own.
	PurgeExpired(ctx context.Context) (int, error)
	CreateAccount(ctx context.Context, in NewAccount) (*dto.AccountResponse, error)
	// Owners lists every account id; used by maintenance jobs.
	Owners(ctx context.Context) ([]uuid.UUID, error)
}

type accountService struct {
	repo      repository.ShopUserRepository
	clock     *Clock
	graceDays int
}

func NewAccountService(repo repository.ShopUserRepository, clock *Clock, graceDays int) AccountService {
	return &accountService{repo: repo, clock: clock, graceDays: graceDays}
}

func toAccountResponse(u *model.ShopUser, graceDays int) dto.AccountResponse {
	resp := dto.AccountResponse{
		ID:                  u.ID.String(),
		Email:               u.Email,
		ShopName:            u.ShopName,
		Timezone:            u.Timezone,
		IsVerified:          u.IsVerified,
		IsPendingDeletion:   u.IsPendingDeletion,
		DeletionRequestedAt: u.DeletionRequestedAt,
	}
	if u.IsPendingDeletion && u.DeletionRequestedAt != nil {
		after := u.DeletionRequestedAt.AddDate(0, 0, graceDays)
		resp.PurgeAfter = &after
	}
	return resp
}

func (s *accountService) load(ctx context.Context, owner uuid.UUID) (*model.ShopUser, error) {
	u, err := s.repo.FindByID(ctx, owner)
	if err != nil {
		return nil, notFound(err, "account not found")
	}
	return u, nil
}

func (s *accountService) Get(ctx context.Context, owner uuid.UUID) (*dto.AccountResponse, error) {
	u, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	resp := toAccountResponse(u, s.graceDays)
	return &resp, nil
}

func (s *accountService) Update(ctx context.Context, owner uuid.UUID, req dto.UpdateAccountRequest) (*dto.AccountResponse, error) {
	u, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if req.ShopName != nil {
		name := strings.TrimSpace(*req.ShopName)
		if name == "" {
			return nil, apierror.Validation("shop_name must not be empty")
		}
		u.ShopName = name
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil || *req.Timezone == "" {
			return nil, apierror.Validation(fmt.Sprintf("unknown timezone %q", *req.Timezone))
		}
		u.Timezone = *req.Timezone
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	resp := toAccountResponse(u, s.graceDays)
	return &resp, nil
}

func (s *accountService) RequestDeletion(ctx context.Context, owner uuid.UUID) (*dto.AccountResponse, error) {
	u, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !u.IsPendingDeletion {
		now := s.clock.Now()
		u.IsPendingDeletion = true
		u.DeletionRequestedAt = &now
		if err := s.repo.Update(ctx, u); err != nil {
			return nil, fmt.Errorf("request deletion: %w", err)
		}
		log.Info().Str("owner", owner.String()).Msg("account deletion requested")
	}
	resp := toAccountResponse(u, s.graceDays)
	return &resp, nil
}

func (s *accountService) CancelDeletion(ctx context.Context, owner uuid.UUID) (*dto.AccountResponse, error) {
	u, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !u.IsPendingDeletion {
		return nil, apierror.Business("account deletion was not requested")
	}
	u.IsPendingDeletion = false
	u.DeletionRequestedAt = nil
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("cancel deletion: %w", err)
	}
	log.Info().Str("owner", owner.String()).Msg("account deletion cancelled")
	resp := toAccountResponse(u, s.graceDays)
	return &resp, nil
}

func (s *accountService) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().AddDate(0, 0, -s.graceDays)
	users, err := s.repo.ListPendingDeletion(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, u := range users {
		if err := s.repo.Purge(ctx, u.ID); err != nil {
			log.Error().Err(err).Str("owner", u.ID.String()).Msg("account purge failed")
			continue
		}
		purged++
		log.Info().Str("owner", u.ID.String()).Str("email", u.Email).Msg("account purged")
	}
	return purged, nil
}

func (s *accountService) CreateAccount(ctx context.Context, in NewAccount) (*dto.AccountResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, apierror.Validation("email and password are required")
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apierror.Conflict(fmt.Sprintf("an account for %s already exists", email))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	tz := in.Timezone
	if tz == "" {
		tz = s.clock.defaultLoc.String()
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, apierror.Validation(fmt.Sprintf("unknown timezone %q", tz))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &model.ShopUser{
		Email:        email,
		PasswordHash: string(hash),
		ShopName:     strings.TrimSpace(in.ShopName),
		Timezone:     tz,
		IsVerified:   in.Verified,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	resp := toAccountResponse(u, s.graceDays)
	return &resp, nil
}

func (s *accountService) Owners(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListIDs(ctx)
}
