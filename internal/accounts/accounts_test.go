package accounts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/config"
	"github.com/emilythestrangee/ballotbox/backend/internal/database"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
	"github.com/emilythestrangee/ballotbox/backend/internal/session"
)

type staticVerifier struct {
	id  *Identity
	err error
}

func (v staticVerifier) Verify(context.Context, string) (*Identity, error) {
	return v.id, v.err
}

func setup(t *testing.T, opts Options) (*Service, *session.Issuer) {
	t.Helper()

	db, err := database.Open(config.Config{
		DatabaseURL: "sqlite://" + filepath.Join(t.TempDir(), "accounts.db"),
		DBSlowQuery: time.Second,
	}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	issuer := session.NewIssuer("0123456789abcdef0123", time.Hour)
	if opts.IsAdminEmail == nil {
		cfg := config.Config{AdminEmails: []string{"boss@example.com"}}
		opts.IsAdminEmail = cfg.IsAdminEmail
	}
	return NewService(db, issuer, opts, logging.Discard()), issuer
}

func TestRegisterAndLogin(t *testing.T) {
	svc, issuer := setup(t, Options{})
	ctx := context.Background()

	res, err := svc.Register(ctx, models.RegisterRequest{Email: "Voter@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "voter@example.com", res.User.Email)
	assert.Equal(t, "voter", res.User.DisplayName)
	assert.Equal(t, models.DefaultRole, res.User.Role)

	claims, err := issuer.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.Subject)

	_, err = svc.Register(ctx, models.RegisterRequest{Email: "voter@example.com", Password: "another"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	login, err := svc.Login(ctx, models.LoginRequest{Email: "VOTER@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "voter@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := setup(t, Options{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: " ", Password: "123"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Len(t, apperr.FieldErrors(err), 2)
}

func TestRegisterAdminEmail(t *testing.T) {
	svc, _ := setup(t, Options{})

	res, err := svc.Register(context.Background(), models.RegisterRequest{Email: "boss@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.Role{IsAdmin: true, IsVoter: true}, res.User.Role)
}

func TestExternalSignIn(t *testing.T) {
	google := staticVerifier{id: &Identity{
		Provider: models.ProviderGoogle,
		Subject:  "g-123",
		Email:    "pat@example.com",
		Name:     "Pat",
		Picture:  "https://img.example.com/pat.png",
	}}
	svc, _ := setup(t, Options{Google: google})
	ctx := context.Background()

	first, err := svc.GoogleLogin(ctx, models.TokenRequest{Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, "Pat", first.User.DisplayName)
	assert.Equal(t, "g-123", first.User.GoogleID)
	assert.Equal(t, models.ProviderGoogle, first.User.AuthProvider)
	assert.True(t, first.User.Role.IsVoter)

	second, err := svc.GoogleLogin(ctx, models.TokenRequest{Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	_, err = svc.FirebaseLogin(ctx, models.TokenRequest{Token: "t"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExternalLinksExistingAccount(t *testing.T) {
	fb := staticVerifier{id: &Identity{Provider: models.ProviderFirebase, Subject: "fb-1", Email: "sam@example.com"}}
	svc, _ := setup(t, Options{Firebase: fb})
	ctx := context.Background()

	reg, err := svc.Register(ctx, models.RegisterRequest{Email: "sam@example.com", Password: "secret1"})
	require.NoError(t, err)

	res, err := svc.FirebaseLogin(ctx, models.TokenRequest{Token: "t", Avatar: "https://img.example.com/sam.png"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.Equal(t, "fb-1", res.User.FirebaseUID)
	assert.Equal(t, "https://img.example.com/sam.png", res.User.Avatar)
}

func TestExternalRejected(t *testing.T) {
	bad := staticVerifier{err: errors.Wrap(apperr.ErrUnauthenticated, "expired")}
	svc, _ := setup(t, Options{Google: bad})

	_, err := svc.GoogleLogin(context.Background(), models.TokenRequest{Token: "t"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestSetRole(t *testing.T) {
	svc, _ := setup(t, Options{})
	ctx := context.Background()

	boss, err := svc.Register(ctx, models.RegisterRequest{Email: "boss@example.com", Password: "secret1"})
	require.NoError(t, err)
	voter, err := svc.Register(ctx, models.RegisterRequest{Email: "v@example.com", Password: "secret1"})
	require.NoError(t, err)

	admin := &session.Session{UserID: boss.User.ID, Role: boss.User.Role}
	yes, no := true, false

	updated, err := svc.SetRole(ctx, admin, voter.User.ID, models.RoleRequest{IsAdmin: &yes, IsVoter: &no})
	require.NoError(t, err)
	assert.Equal(t, models.Role{IsAdmin: true, IsVoter: false}, updated.Role)

	me, err := svc.Me(ctx, &session.Session{UserID: voter.User.ID})
	require.NoError(t, err)
	assert.Equal(t, models.Role{IsAdmin: true, IsVoter: false}, me.Role)

	_, err = svc.SetRole(ctx, admin, boss.User.ID, models.RoleRequest{IsAdmin: &no})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	plain := &session.Session{UserID: "x", Role: models.DefaultRole}
	_, err = svc.SetRole(ctx, plain, voter.User.ID, models.RoleRequest{IsAdmin: &yes})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.SetRole(ctx, admin, "missing", models.RoleRequest{IsAdmin: &yes})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Me(ctx, nil)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := setup(t, Options{})
	ctx := context.Background()

	res, err := svc.Register(ctx, models.RegisterRequest{Email: "v@example.com", Password: "secret1"})
	require.NoError(t, err)
	sess := &session.Session{UserID: res.User.ID, Role: res.User.Role}

	name := "  Vera  "
	updated, err := svc.UpdateProfile(ctx, sess, models.ProfileRequest{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Vera", updated.DisplayName)
	assert.Equal(t, "v@example.com", updated.Email)

	blank, bad := " ", "ftp://example.com/a.png"
	_, err = svc.UpdateProfile(ctx, sess, models.ProfileRequest{DisplayName: &blank, Avatar: &bad})
	require.ErrorIs(t, err, apperr.ErrValidation)
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "display_name")
	assert.Contains(t, verr.Fields, "avatar")

	_, err = svc.UpdateProfile(ctx, nil, models.ProfileRequest{DisplayName: &name})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.User(ctx, sess, res.User.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

type fakePayloads map[string]*idtoken.Payload

func (f fakePayloads) Validate(_ context.Context, token, audience string) (*idtoken.Payload, error) {
	p, ok := f[token]
	if !ok {
		return nil, errors.New("idtoken: invalid token")
	}
	return p, nil
}

func TestGoogleVerifier(t *testing.T) {
	const clientID = "ballotbox.apps.googleusercontent.com"
	payload := func(aud, iss string, claims map[string]interface{}) *idtoken.Payload {
		return &idtoken.Payload{Issuer: iss, Audience: aud, Subject: "g-1", Claims: claims}
	}
	verified := map[string]interface{}{"email": "a@example.com", "email_verified": true, "name": "A"}

	g := &GoogleVerifier{clientID: clientID, validator: fakePayloads{
		"good":       payload(clientID, "https://accounts.google.com", verified),
		"string":     payload(clientID, "accounts.google.com", map[string]interface{}{"email": "a@example.com", "email_verified": "true"}),
		"foreign":    payload("someone-elses-client.apps.googleusercontent.com", "https://accounts.google.com", verified),
		"issuer":     payload(clientID, "https://evil.example.com", verified),
		"unverified": payload(clientID, "https://accounts.google.com", map[string]interface{}{"email": "b@example.com", "email_verified": false}),
		"no-email":   payload(clientID, "https://accounts.google.com", map[string]interface{}{"email_verified": true}),
	}}

	id, err := g.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, &Identity{Provider: models.ProviderGoogle, Subject: "g-1", Email: "a@example.com", Name: "A"}, id)

	_, err = g.Verify(context.Background(), "string")
	require.NoError(t, err)

	for _, token := range []string{"foreign", "issuer", "unverified", "no-email", "bogus"} {
		t.Run(token, func(t *testing.T) {
			id, err := g.Verify(context.Background(), token)
			assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
			assert.Nil(t, id)
		})
	}
}

func TestNewGoogleVerifierRequiresClientID(t *testing.T) {
	_, err := NewGoogleVerifier(context.Background(), "")
	assert.Error(t, err)
}

type fakeIDTokens struct {
	token *auth.Token
	err   error
}

func (f fakeIDTokens) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return f.token, f.err
}

func TestFirebaseVerifier(t *testing.T) {
	v := &FirebaseVerifier{client: fakeIDTokens{token: &auth.Token{
		UID:    "fb-1",
		Claims: map[string]interface{}{"email": "c@example.com", "name": "C"},
	}}}
	id, err := v.Verify(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "fb-1", id.Subject)
	assert.Equal(t, "C", id.Name)

	v = &FirebaseVerifier{client: fakeIDTokens{token: &auth.Token{UID: "fb-2", Claims: map[string]interface{}{}}}}
	_, err = v.Verify(context.Background(), "t")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	v = &FirebaseVerifier{client: fakeIDTokens{err: errors.New("expired")}}
	_, err = v.Verify(context.Background(), "t")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
