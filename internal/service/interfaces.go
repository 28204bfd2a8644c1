package service

import "context"

type AuthServiceInterface interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	LoginWithCredentials(ctx context.Context, identifier, secret string) (*LoginResult, error)
	CompleteBiometric(ctx context.Context, token string, images [][]byte) (*BiometricResult, error)
}

type BiometricEnroller interface {
	Enroll(ctx context.Context, uuid string, images [][]byte) error
}

type BiometricVerifier interface {
	Verify(ctx context.Context, uuid string, images [][]byte) (*MatchResult, error)
}
