package services

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace-ledger/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/sha3"
)

const (
	LoginMessagePrefix = "marketplace-login:"
	loginMaxAge        = 5 * time.Minute
	loginMaxSkew       = time.Minute
)

var ErrInvalidLogin = errors.New("invalid login")

type AuthService struct {
	secretKey []byte
	ttl       time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthService(secret string, ttl time.Duration, logger zerolog.Logger) *AuthService {
	if secret == "" {
		secret = "default-secret-key-change-in-production"
		logger.Warn().Msg("JWT_SECRET not set, using default key")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &AuthService{
		secretKey: []byte(secret),
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// DeriveIdentity returns the last 20 bytes of the Keccak-256 hash of the
// public key.
func DeriveIdentity(pub ed25519.PublicKey) models.Identity {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	sum := h.Sum(nil)
	return models.IdentityFromBytes(sum[len(sum)-20:])
}

// LoginMessage is the text a client signs to log in at t.
func LoginMessage(t time.Time) string {
	return LoginMessagePrefix + t.UTC().Format(time.RFC3339)
}

// VerifyLogin checks a signed login message and returns the signer's identity.
func (s *AuthService) VerifyLogin(req *models.LoginRequest) (models.Identity, error) {
	pub, err := hex.DecodeString(strings.TrimPrefix(req.PublicKey, "0x"))
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: malformed public key", ErrInvalidLogin)
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(req.Signature, "0x"))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return "", fmt.Errorf("%w: malformed signature", ErrInvalidLogin)
	}

	if !strings.HasPrefix(req.Message, LoginMessagePrefix) {
		return "", fmt.Errorf("%w: unexpected message", ErrInvalidLogin)
	}
	signedAt, err := time.Parse(time.RFC3339, strings.TrimPrefix(req.Message, LoginMessagePrefix))
	if err != nil {
		return "", fmt.Errorf("%w: bad timestamp", ErrInvalidLogin)
	}
	now := s.now()
	if signedAt.Before(now.Add(-loginMaxAge)) || signedAt.After(now.Add(loginMaxSkew)) {
		return "", fmt.Errorf("%w: message expired", ErrInvalidLogin)
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(req.Message), sig) {
		s.logger.Warn().Str("public_key", req.PublicKey).Msg("Login signature rejected")
		return "", fmt.Errorf("%w: signature mismatch", ErrInvalidLogin)
	}

	return DeriveIdentity(ed25519.PublicKey(pub)), nil
}

func (s *AuthService) GenerateToken(id models.Identity, role models.Role) (string, error) {
	now := s.now()

	claims := &Claims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(id),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error generating token")
		return "", err
	}

	return tokenString, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// Authenticate resolves a bearer token to the caller identity.
func (s *AuthService) Authenticate(tokenString string) (models.Identity, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return models.ParseIdentity(claims.Subject)
}
