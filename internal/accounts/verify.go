package accounts

import (
	"context"

	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

// Identity is what an external sign-in provider vouches for.
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Picture  string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// googleIssuers are the iss values Google signs ID tokens with.
var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

type payloadValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// GoogleVerifier checks Google ID tokens issued to this app's OAuth client.
type GoogleVerifier struct {
	clientID  string
	validator payloadValidator
}

func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("google client id is required")
	}
	v, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create google token validator")
	}
	return &GoogleVerifier{clientID: clientID, validator: v}, nil
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	p, err := g.validator.Validate(ctx, token, g.clientID)
	if err != nil {
		return nil, errors.Wrap(apperr.ErrUnauthenticated, "invalid google token: "+err.Error())
	}
	if p.Audience != g.clientID {
		return nil, errors.Wrap(apperr.ErrUnauthenticated, "google token issued to another client")
	}
	if !googleIssuers[p.Issuer] {
		return nil, errors.Wrapf(apperr.ErrUnauthenticated, "unexpected google token issuer %q", p.Issuer)
	}

	claim := func(name string) string {
		v, _ := p.Claims[name].(string)
		return v
	}
	email := claim("email")
	if email == "" || !emailVerified(p.Claims["email_verified"]) {
		return nil, errors.Wrap(apperr.ErrUnauthenticated, "google email not verified")
	}

	return &Identity{
		Provider: models.ProviderGoogle,
		Subject:  p.Subject,
		Email:    email,
		Name:     claim("name"),
		Picture:  claim("picture"),
	}, nil
}

// emailVerified accepts the claim as a JSON bool or the string "true".
func emailVerified(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	}
	return false
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier checks Firebase Auth ID tokens.
type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (f *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	tok, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, errors.Wrap(apperr.ErrUnauthenticated, err.Error())
	}

	claim := func(name string) string {
		v, _ := tok.Claims[name].(string)
		return v
	}
	email := claim("email")
	if email == "" {
		return nil, errors.Wrap(apperr.ErrUnauthenticated, "firebase token has no email")
	}

	return &Identity{
		Provider: models.ProviderFirebase,
		Subject:  tok.UID,
		Email:    email,
		Name:     claim("name"),
		Picture:  claim("picture"),
	}, nil
}
