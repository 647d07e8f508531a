package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// TokenVerifier is the credential-verification collaborator consumed by the
// connection gateway. Token issuance is out of scope; only verification is
// used here.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken validates the bearer credential and returns the user id it was
// issued for.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}

	return result.UID, nil
}
