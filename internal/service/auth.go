package service

import (
	"fmt"

	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

// AuthService validates TOTP codes guarding the mutating agent routes.
// Without a configured secret the guard is disabled.
type AuthService struct {
	logger     *zap.Logger
	totpSecret string
}

func NewAuthService(logger *zap.Logger, totpSecret string) *AuthService {
	return &AuthService{
		logger:     logger,
		totpSecret: totpSecret,
	}
}

func (a *AuthService) Enabled() bool {
	return a.totpSecret != ""
}

func (a *AuthService) GenerateSecret() (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Beacon Agent",
		AccountName: "admin",
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return key.Secret(), nil
}

func (a *AuthService) ValidateToken(token string) bool {
	valid := totp.Validate(token, a.totpSecret)
	if !valid {
		a.logger.Warn("Invalid TOTP token presented")
	}
	return valid
}
