package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/facegate-io/facegate/internal/config"
	"github.com/facegate-io/facegate/internal/domain"
	"github.com/facegate-io/facegate/internal/observability"
	"github.com/facegate-io/facegate/internal/repository"
	"github.com/facegate-io/facegate/internal/security"

	"gorm.io/gorm"
)

// ErrInvalidCredentials is the single rejection for stage 1: malformed input,
// unknown identifier, and wrong secret are indistinguishable at the protocol
// boundary to prevent user enumeration.
var ErrInvalidCredentials = errors.New("invalid credentials")

var emailRe = regexp.MustCompile(`^([A-Za-z0-9]+[._-])*[A-Za-z0-9]+@[A-Za-z0-9-]+(\.[A-Za-z]{2,})+$`)

const (
	passwordMinLen = 8
	passwordMaxLen = 16
)

// Biometric rejection reasons recorded for audit; callers only ever see a
// generic failure.
const (
	ReasonAssertionInvalid = "assertion_invalid"
	ReasonAssertionExpired = "assertion_expired"
	ReasonNoReference      = "no_reference"
	ReasonEmbeddingFailed  = "embedding_failed"
	ReasonNotMatched       = "not_matched"
	ReasonMatched          = "matched"
)

type RegisterInput struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// RegisterResult always carries a UUID: identifier generation is
// unconditional and precedes validation, so a rejected registration still
// exposes the uuid it consumed. Persistence happens only on acceptance.
type RegisterResult struct {
	UUID     string `json:"uuid"`
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

type LoginResult struct {
	User      *domain.User `json:"user"`
	Assertion string       `json:"-"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// BiometricResult is the stage-2 outcome. Reason is an internal audit token;
// the HTTP layer collapses all rejections into a generic message.
type BiometricResult struct {
	UUID          string
	Username      string
	Authenticated bool
	Reason        string
	Score         float64
	// RestartRequired is set when the assertion itself was rejected and the
	// caller must redo the credential stage; resubmitting images cannot help.
	RestartRequired bool
}

// AuthService sequences the two-stage protocol: credential verification
// issues a session assertion, and a later biometric submission redeems it.
// The assertion is the only state between the stages.
type AuthService struct {
	cfg      *config.Config
	jwtMgr   *security.JWTManager
	userRepo repository.UserRepository
	faceSvc  BiometricVerifier
}

func NewAuthService(cfg *config.Config, jwtMgr *security.JWTManager, userRepo repository.UserRepository, faceSvc BiometricVerifier) *AuthService {
	return &AuthService{cfg: cfg, jwtMgr: jwtMgr, userRepo: userRepo, faceSvc: faceSvc}
}

// Register validates and persists a new identity. The uuid is generated
// before any validation runs and is returned even when the registration is
// rejected.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	uuid := domain.NewUserID()

	msg, err := s.validateRegistration(ctx, uuid, in)
	if err != nil {
		observability.RecordAuthRegister(ctx, "store_failed")
		return nil, fmt.Errorf("uniqueness lookup: %w", err)
	}
	if msg != "" {
		observability.RecordAuthRegister(ctx, "rejected")
		return &RegisterResult{UUID: uuid, Accepted: false, Message: msg}, nil
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		UUID:         uuid,
		Username:     in.Username,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         in.Name,
		Phone:        in.Phone,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		observability.RecordAuthRegister(ctx, "store_failed")
		return nil, fmt.Errorf("create user: %w", err)
	}
	observability.RecordAuthRegister(ctx, "success")
	return &RegisterResult{UUID: uuid, Accepted: true, Message: "registration successful, please enroll a face profile"}, nil
}

// validateRegistration returns a rejection message for caller mistakes and an
// error for store failures; the two must not be conflated or a registry outage
// would masquerade as a validation rejection.
func (s *AuthService) validateRegistration(ctx context.Context, uuid string, in RegisterInput) (string, error) {
	var msgs []string
	if strings.TrimSpace(in.Name) == "" {
		msgs = append(msgs, "name is required")
	}
	if strings.TrimSpace(in.Username) == "" {
		msgs = append(msgs, "username is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		msgs = append(msgs, "email is required")
	} else if !emailRe.MatchString(email) {
		msgs = append(msgs, "email is not valid")
	}
	if strings.TrimSpace(in.Phone) == "" {
		msgs = append(msgs, "phone number is required")
	}
	if in.Password == "" {
		msgs = append(msgs, "password is required")
	}
	if in.PasswordConfirm == "" {
		msgs = append(msgs, "password confirmation is required")
	}
	if in.Password != "" && in.PasswordConfirm != "" {
		if len(in.Password) < passwordMinLen || len(in.Password) > passwordMaxLen ||
			len(in.PasswordConfirm) < passwordMinLen || len(in.PasswordConfirm) > passwordMaxLen {
			msgs = append(msgs, fmt.Sprintf("password length must be between %d and %d", passwordMinLen, passwordMaxLen))
		}
		if in.Password != in.PasswordConfirm {
			msgs = append(msgs, "passwords do not match")
		}
	}
	if len(msgs) > 0 {
		return strings.Join(msgs, "; "), nil
	}

	// Three uniqueness constraints hold simultaneously: username, email, and
	// the freshly generated uuid.
	exists, err := s.identityExists(ctx, uuid, in.Username, email)
	if err != nil {
		return "", err
	}
	if exists {
		return "user already exists", nil
	}
	return "", nil
}

func (s *AuthService) identityExists(ctx context.Context, uuid, username, email string) (bool, error) {
	for _, lookup := range []func() (*domain.User, error){
		func() (*domain.User, error) { return s.userRepo.FindByUsername(ctx, username) },
		func() (*domain.User, error) { return s.userRepo.FindByEmail(ctx, email) },
		func() (*domain.User, error) { return s.userRepo.FindByUUID(ctx, uuid) },
	} {
		_, err := lookup()
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
	}
	return false, nil
}

// Authenticate runs the credential check. Input validation precedes the
// registry read; a malformed identifier never reaches the store.
func (s *AuthService) Authenticate(ctx context.Context, identifier, secret string) (*domain.User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || secret == "" || !emailRe.MatchString(identifier) {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("credential lookup: %w", err)
	}

	ok, err := security.VerifyPassword(user.PasswordHash, secret)
	if err != nil {
		// A hash that cannot be decoded is stored-data corruption, not a
		// wrong password.
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// LoginWithCredentials is stage 1: on success it issues the session
// assertion that the caller later redeems at the biometric stage.
func (s *AuthService) LoginWithCredentials(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, identifier, secret)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			observability.RecordAuthLogin(ctx, "credential", "failure")
		}
		return nil, err
	}

	assertion, err := s.jwtMgr.SignAssertion(user.UUID, user.Username, s.cfg.AssertionTTL)
	if err != nil {
		return nil, fmt.Errorf("sign assertion: %w", err)
	}
	observability.RecordAuthLogin(ctx, "credential", "success")
	return &LoginResult{User: user, Assertion: assertion, ExpiresAt: time.Now().Add(s.cfg.AssertionTTL)}, nil
}

// CompleteBiometric is stage 2: it redeems the assertion and runs the face
// match for the bound identity. Rejections come back as a result, not an
// error; errors are reserved for infrastructure and pipeline faults.
func (s *AuthService) CompleteBiometric(ctx context.Context, token string, images [][]byte) (*BiometricResult, error) {
	claims, err := s.jwtMgr.ParseAssertion(token)
	if err != nil {
		reason := ReasonAssertionInvalid
		if errors.Is(err, security.ErrAssertionExpired) {
			reason = ReasonAssertionExpired
		}
		observability.RecordAuthLogin(ctx, "biometric", "assertion_rejected")
		return &BiometricResult{Reason: reason, RestartRequired: true}, nil
	}

	result := &BiometricResult{UUID: claims.Subject, Username: claims.Username}
	match, err := s.faceSvc.Verify(ctx, claims.Subject, images)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoReference):
			result.Reason = ReasonNoReference
		case errors.Is(err, ErrEmbeddingFailed), errors.Is(err, ErrNoImages):
			result.Reason = ReasonEmbeddingFailed
		default:
			return nil, err
		}
		observability.RecordAuthLogin(ctx, "biometric", "failure")
		return result, nil
	}

	result.Score = match.Score
	if match.Matched {
		result.Authenticated = true
		result.Reason = ReasonMatched
		observability.RecordAuthLogin(ctx, "biometric", "success")
	} else {
		result.Reason = ReasonNotMatched
		observability.RecordAuthLogin(ctx, "biometric", "failure")
	}
	return result, nil
}
