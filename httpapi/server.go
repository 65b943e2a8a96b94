package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/sessioncore"
	"github.com/MrEthical07/sessioncore/middleware"
	"go.uber.org/zap"
)

// Engine is the subset of *sessioncore.Engine the handlers use.
type Engine interface {
	middleware.Authenticator
	Login(ctx context.Context, email, password string) (*sessioncore.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string) sessioncore.RotationResult
	Logout(ctx context.Context, accessToken string) (int, error)
	ListActiveSessions(ctx context.Context, subject string) ([]sessioncore.SessionInfo, error)
	Health(ctx context.Context) sessioncore.HealthStatus
}

const defaultMaxBodyBytes = 64 << 10

type Opts struct {
	Logger *zap.Logger
	// Now stamps health responses. Defaults to time.Now.
	Now func() time.Time
	// MaxBodyBytes caps request bodies. Defaults to 64 KiB.
	MaxBodyBytes int64
	// TrustForwardedFor takes the client IP from the first X-Forwarded-For
	// hop. Enable only behind a proxy that overwrites the header.
	TrustForwardedFor bool
}

type Server struct {
	engine   Engine
	log      *zap.Logger
	now      func() time.Time
	maxBody  int64
	trustXFF bool
}

func NewServer(engine Engine, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := o.Now
	if now == nil {
		now = time.Now
	}
	maxBody := o.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Server{
		engine:   engine,
		log:      log,
		now:      now,
		maxBody:  maxBody,
		trustXFF: o.TrustForwardedFor,
	}
}

// Routes returns the auth routes wrapped in request context, recovery and
// access logging middleware.
func (s *Server) Routes() http.Handler {
	authn := middleware.Authenticate(s.engine)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /auth/refresh", s.refresh)
	mux.Handle("POST /auth/logout", authn(http.HandlerFunc(s.logout)))
	mux.Handle("GET /auth/sessions", authn(http.HandlerFunc(s.sessions)))
	mux.HandleFunc("GET /auth/health", s.health)

	return s.withRequestContext(s.withAccessLog(s.withRecover(mux)))
}
