package router

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-debts-go/internal/avatar"
	"github.com/ovaphlow/pitchfork/service-debts-go/internal/debt"
	"github.com/ovaphlow/pitchfork/service-debts-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

const requestIDHeader = "X-Request-ID"

// Config groups what RegisterRoutes needs besides the database.
type Config struct {
	Auth        auth.Config
	Avatar      avatar.Config
	CORSOrigins []string
	// BcryptCost overrides the password hashing cost; zero keeps the default.
	BcryptCost int
}

func ConfigFromEnv() (Config, error) {
	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Auth:        authCfg,
		Avatar:      avatar.ConfigFromEnv(),
		CORSOrigins: utilities.GetEnvList("CORS_ORIGINS", []string{"*"}),
		BcryptCost:  utilities.GetEnvInt("BCRYPT_COST", 0),
	}, nil
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware tags every request with an X-Request-ID (kept from the
// client when present) and logs it once served.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = utilities.NewKSUID()
			}
			w.Header().Set(requestIDHeader, reqID)
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			log := logger.Debugw
			if status >= http.StatusInternalServerError {
				log = logger.Warnw
			}
			log("http request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// HSTS only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes builds every service on top of db and mounts the HTTP
// handlers on a standard library http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB, cfg Config) (http.Handler, error) {
	validate, err := utilities.NewValidator()
	if err != nil {
		return nil, err
	}
	avatars, err := avatar.NewStore(cfg.Avatar, logger)
	if err != nil {
		return nil, err
	}
	tokens := auth.NewTokenService(db, cfg.Auth)
	users := user.NewUserService(db, user.BcryptHasher{Cost: cfg.BcryptCost}, avatars, logger)
	debts := debt.NewService(db, avatars, logger)

	authHandler := auth.NewHandler(tokens, users, validate, logger)
	userHandler := user.NewHandler(users, logger)
	debtHandler := debt.NewHandler(debts, validate, logger)

	mux := http.NewServeMux()
	protect := auth.RequireUser(tokens)
	private := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protect(fn))
	}

	// health
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			logger.Warnw("health check failed", "err", err)
			utilities.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("GET "+avatar.ImagesPath, http.StripPrefix(avatar.ImagesPath, http.FileServer(http.Dir(avatars.Dir()))))

	// auth
	mux.HandleFunc("POST /auth/sign-up", authHandler.SignUp)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /auth/token", authHandler.Token)
	mux.HandleFunc("POST /auth/revoke", authHandler.Revoke)

	// users
	private("GET /users/me", userHandler.Me)
	private("GET /users", userHandler.Search)

	// debts
	private("GET /debts", debtHandler.List)
	private("PUT /debts", debtHandler.CreateMultiple)
	private("GET /debts/{id}", debtHandler.Get)
	private("DELETE /debts/{id}", debtHandler.Delete)
	private("POST /debts/multiple/{id}/creation", debtHandler.AcceptCreation)
	private("DELETE /debts/multiple/{id}/creation", debtHandler.DeclineCreation)
	private("PUT /debts/single", debtHandler.CreateSingle)
	private("POST /debts/single/{id}/i_love_lsd", debtHandler.AcceptUserDeleted)
	private("PUT /debts/single/{id}/connect_user", debtHandler.ConnectUser)
	private("POST /debts/single/{id}/connect_user", debtHandler.AcceptConnection)
	private("DELETE /debts/single/{id}/connect_user", debtHandler.DeclineConnection)

	// operations
	private("PUT /operation", debtHandler.CreateOperation)
	private("POST /operation/{id}/creation", debtHandler.AcceptOperation)
	private("DELETE /operation/{id}/creation", debtHandler.DeclineOperation)
	private("DELETE /operation/{id}", debtHandler.DeleteOperation)

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	})

	// cors first so preflight requests never reach the mux
	handler := LoggingMiddleware(logger)(corsMiddleware(SecurityHeadersMiddleware()(mux)))
	return handler, nil
}
