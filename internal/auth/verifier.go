package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// ErrInvalidToken covers every credential failure; callers treat it as
// authentication failure without detail.
var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves bearer tokens into live profiles. The profile is
// looked up on every verification so role and department reflect current
// state, not the state at token issue time.
type Verifier struct {
	tokens   *TokenManager
	profiles repository.ProfileRepository
}

// NewVerifier constructs a verifier.
func NewVerifier(tokens *TokenManager, profiles repository.ProfileRepository) *Verifier {
	return &Verifier{tokens: tokens, profiles: profiles}
}

// VerifyToken validates the bearer credential and loads its profile.
func (v *Verifier) VerifyToken(ctx context.Context, token string) (*domain.Profile, error) {
	claims, err := v.tokens.ParseToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	profile, err := v.profiles.GetByID(ctx, claims.ProfileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return profile, nil
}
