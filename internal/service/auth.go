package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"brand-ranking/internal/model"
	"brand-ranking/internal/pkg/identity"
	"brand-ranking/internal/pkg/session"
	"brand-ranking/internal/repository"
)

// LoginRequest is a signed sign-in message plus the profile to store.
type LoginRequest struct {
	FID         int64
	Credentials identity.Credentials
	Username    string
	PhotoURL    string
}

// LoginResult is returned by a successful LogIn.
type LoginResult struct {
	Token         string
	User          *model.User
	IsCreated     bool
	HasVotedToday bool
}

// AuthService signs users in.
type AuthService struct {
	verifier identity.Verifier
	issuer   *session.Issuer
	users    *repository.UserRepository
	voting   *VotingService
	isAdmin  func(fid int64) bool
}

// NewAuthService creates a new AuthService instance. isAdmin decides which
// external ids are promoted to admin; nil promotes nobody.
func NewAuthService(
	verifier identity.Verifier,
	issuer *session.Issuer,
	users *repository.UserRepository,
	voting *VotingService,
	isAdmin func(fid int64) bool,
) *AuthService {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &AuthService{
		verifier: verifier,
		issuer:   issuer,
		users:    users,
		voting:   voting,
		isAdmin:  isAdmin,
	}
}

// LogIn verifies the signed message, checks it was signed by req.FID,
// upserts the user and issues a session token.
func (s *AuthService) LogIn(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	fid, err := s.verifier.Verify(ctx, req.Credentials)
	if err != nil {
		if errors.Is(err, identity.ErrVerificationFailed) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}
	if fid != req.FID {
		log.Warn().Int64("claimed_fid", req.FID).Int64("signed_fid", fid).Msg("Sign-in fid mismatch")
		return nil, ErrInvalidCredentials
	}

	role := model.RoleUser
	if s.isAdmin(fid) {
		role = model.RoleAdmin
	}

	user, created, err := s.users.Upsert(ctx, fid, req.Username, req.PhotoURL, role)
	if err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}

	voted, err := s.voting.HasVotedToday(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Int64("fid", fid).
		Bool("created", created).
		Msg("User logged in")

	return &LoginResult{
		Token:         token,
		User:          user,
		IsCreated:     created,
		HasVotedToday: voted,
	}, nil
}
