package server

import (
	"context"
	"net/http"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/ballotbox/backend/internal/accounts"
	"github.com/emilythestrangee/ballotbox/backend/internal/config"
	"github.com/emilythestrangee/ballotbox/backend/internal/database"
	"github.com/emilythestrangee/ballotbox/backend/internal/docstore"
	"github.com/emilythestrangee/ballotbox/backend/internal/handlers"
	"github.com/emilythestrangee/ballotbox/backend/internal/ledger"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
	"github.com/emilythestrangee/ballotbox/backend/internal/middleware"
	"github.com/emilythestrangee/ballotbox/backend/internal/notify"
	"github.com/emilythestrangee/ballotbox/backend/internal/photos"
	"github.com/emilythestrangee/ballotbox/backend/internal/polls"
	"github.com/emilythestrangee/ballotbox/backend/internal/session"
	"github.com/emilythestrangee/ballotbox/backend/internal/store"
)

type Server struct {
	cfg     config.Config
	store   store.Store
	handler *handlers.Handler
	issuer  *session.Issuer
	limiter *middleware.IPRateLimiter
	log     logrus.FieldLogger
}

// Deps are the collaborators a Server is assembled from.
type Deps struct {
	Store    store.Store
	Photos   *photos.Uploader
	Notifier notify.Notifier
	Google   accounts.Verifier
	Firebase accounts.Verifier
}

// NewServer opens the configured backends and assembles the server.
func NewServer(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	var (
		deps Deps
		app  *firebase.App
		err  error
	)

	if cfg.FirebaseEnabled() {
		app, err = docstore.NewApp(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "initialize firebase auth")
		}
		deps.Firebase = accounts.NewFirebaseVerifier(client)
	}

	uploader, err := photos.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	deps.Photos = uploader
	if cfg.GoogleClientID != "" {
		google, err := accounts.NewGoogleVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			return nil, err
		}
		deps.Google = google
	}
	deps.Notifier = notify.New(cfg, log)

	switch cfg.StoreBackend {
	case config.BackendFirestore:
		deps.Store, err = docstore.Open(ctx, app, log)
	default:
		deps.Store, err = database.Open(cfg, log)
	}
	if err != nil {
		return nil, err
	}

	return New(cfg, deps, log), nil
}

// New wires services and handlers around already opened backends.
func New(cfg config.Config, deps Deps, log logrus.FieldLogger) *Server {
	issuer := session.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	l := ledger.New(deps.Store, log)
	pollSvc := polls.NewService(deps.Store, l, deps.Notifier, log)
	accountSvc := accounts.NewService(deps.Store, issuer, accounts.Options{
		Google:       deps.Google,
		Firebase:     deps.Firebase,
		IsAdminEmail: cfg.IsAdminEmail,
	}, log)

	return &Server{
		cfg:   cfg,
		store: deps.Store,
		handler: handlers.NewHandler(handlers.Deps{
			Store:         deps.Store,
			Accounts:      accountSvc,
			Polls:         pollSvc,
			Ledger:        l,
			Photos:        deps.Photos,
			PhotoMaxBytes: cfg.PhotoMaxBytes,
		}),
		issuer:  issuer,
		limiter: middleware.NewIPRateLimiter(cfg.VoteRateLimit, cfg.VoteRateBurst),
		log:     log,
	}
}

// HTTPServer wraps the router in an http.Server with the usual timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RunLimiterEviction drops idle rate-limit buckets until ctx is done.
func (s *Server) RunLimiterEviction(ctx context.Context) {
	s.limiter.Run(ctx, 10*time.Minute)
}

func (s *Server) Close() error {
	return s.store.Close()
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Requests(s.log), middleware.SecurityHeaders())
	r.Use(cors.New(corsConfig(s.cfg.CORSOrigins)))
	r.MaxMultipartMemory = s.cfg.PhotoMaxBytes + 1<<20

	if s.cfg.PhotoBackend != config.PhotosMinio && s.cfg.PhotoDir != "" {
		r.Static(photos.MediaRoute, s.cfg.PhotoDir)
	}

	r.GET("/health", s.handler.Health)

	api := r.Group("/api")
	api.Use(middleware.Authenticate(s.issuer, s.store))
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)
		api.POST("/auth/google", s.handler.Auth.GoogleLogin)
		api.POST("/auth/firebase", s.handler.Auth.FirebaseLogin)

		// Poll and candidate routes (public reads)
		api.GET("/polls", s.handler.Poll.GetPolls)
		api.GET("/polls/:id", s.handler.Poll.GetPoll)
		api.GET("/polls/:id/candidates", s.handler.Poll.GetPollCandidates)
		api.GET("/polls/:id/results", s.handler.Poll.GetResults)
		api.GET("/candidates/:id", s.handler.Candidate.GetCandidate)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.RequireSession())
		{
			protected.GET("/me", s.handler.Auth.GetMe)
			protected.PUT("/me", s.handler.User.UpdateProfile)
			protected.POST("/polls/:id/vote", middleware.RateLimit(s.limiter), s.handler.Vote.CastVote)
			protected.GET("/polls/:id/vote", s.handler.Vote.GetVoteStatus)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/stats", s.handler.Poll.GetStats)

			admin.POST("/polls", s.handler.Poll.CreatePoll)
			admin.PUT("/polls/:id", s.handler.Poll.UpdatePoll)
			admin.DELETE("/polls/:id", s.handler.Poll.DeletePoll)
			admin.GET("/polls/:id/votes", s.handler.Poll.GetVotes)

			admin.GET("/candidates", s.handler.Candidate.GetCandidates)
			admin.POST("/candidates", s.handler.Candidate.CreateCandidate)
			admin.PUT("/candidates/:id", s.handler.Candidate.UpdateCandidate)
			admin.DELETE("/candidates/:id", s.handler.Candidate.DeleteCandidate)
			admin.POST("/candidates/:id/photo", s.handler.Candidate.UploadPhoto)

			admin.GET("/users/:id", s.handler.User.GetUser)
			admin.PUT("/users/:id/role", s.handler.Auth.SetRole)
		}
	}

	return r
}
