package docstore

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/emilythestrangee/ballotbox/backend/internal/config"
)

// NewApp initialises the Firebase app shared by the document store and the
// Firebase sign-in verifier.
func NewApp(ctx context.Context, cfg config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	switch {
	case cfg.FirebaseCredentials != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentials)))
	case cfg.FirebaseCredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}

	var fbCfg *firebase.Config
	if cfg.FirebaseProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initialize firebase app")
	}
	return app, nil
}
