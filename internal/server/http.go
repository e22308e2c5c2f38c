package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/trivialabs/trivia-platform/internal/auth"
	"github.com/trivialabs/trivia-platform/internal/config"
	"github.com/trivialabs/trivia-platform/internal/leaderboard"
	"github.com/trivialabs/trivia-platform/internal/logging"
	"github.com/trivialabs/trivia-platform/internal/question"
	"github.com/trivialabs/trivia-platform/internal/subject"
	"github.com/trivialabs/trivia-platform/internal/translation"
	ws "github.com/trivialabs/trivia-platform/pkg/http/ws"
)

// newWSUpgrader builds the WebSocket upgrader for leaderboard watchers.
// Browser connections must come from a configured CORS origin; requests
// without an Origin header (CLI tools, server-side clients) are allowed.
func newWSUpgrader(cfg config.CORS) websocket.Upgrader {
	origins := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[o] = true
	}
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origins[origin]
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Handlers carries every HTTP handler the server mounts.
type Handlers struct {
	Auth        *auth.HTTPHandler
	Question    *question.HTTPHandler
	Subject     *subject.HTTPHandler
	Leaderboard *leaderboard.HTTPHandler
	Translation *translation.HTTPHandler
}

// NewHTTPServer wires all routes for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redisClient *redis.Client, authSvc *auth.Service, h Handlers, hub *ws.Hub) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if err := pingDependencies(ctx, pool, redisClient); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	// Auth + accounts
	mux.HandleFunc("/v1/auth/register", h.Auth.HandleRegister)
	mux.HandleFunc("/v1/auth/admin/login", h.Auth.HandleAdminLogin)
	mux.HandleFunc("/v1/auth/admin/setup", h.Auth.HandleAdminSetup)
	mux.Handle("/v1/users/me", auth.RequireAuth(http.HandlerFunc(h.Auth.HandleMe)))
	mux.Handle("/v1/users/me/preferences", auth.RequireAuth(http.HandlerFunc(h.Auth.HandlePreferences)))
	mux.Handle("/v1/users/search", auth.RequireAuth(http.HandlerFunc(h.Auth.HandleSearch)))

	// Subjects, questions and translations: reads are public, writes are
	// admin backoffice operations.
	mux.Handle("/v1/subjects", adminWrites(http.HandlerFunc(h.Subject.HandleSubjects)))
	mux.Handle("/v1/subjects/{id}", adminWrites(http.HandlerFunc(h.Subject.HandleSubjectByID)))
	mux.Handle("/v1/questions", adminWrites(http.HandlerFunc(h.Question.HandleQuestions)))
	mux.Handle("/v1/questions/{id}", adminWrites(http.HandlerFunc(h.Question.HandleQuestionByID)))
	mux.Handle("/v1/translations", adminWrites(http.HandlerFunc(h.Translation.HandleTranslations)))
	mux.Handle("/v1/translations/{id}", adminWrites(http.HandlerFunc(h.Translation.HandleTranslationByID)))

	// Leaderboard: GET is public, POST requires a player token and is
	// enforced inside the handler.
	mux.HandleFunc("/v1/leaderboard", h.Leaderboard.Handle)

	mux.HandleFunc("/ws/leaderboard", leaderboardWSHandler(newWSUpgrader(cfg.CORS), hub, logger))

	handler := auth.Middleware(authSvc, logger)(mux)
	handler = corsMiddleware(cfg.CORS)(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

// adminWrites passes GET through and requires an admin token for everything else.
func adminWrites(next http.Handler) http.Handler {
	protected := auth.RequireAdmin(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})
}

func leaderboardWSHandler(upgrader websocket.Upgrader, hub *ws.Hub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		wsConn := ws.NewConnection(conn, logger)
		id := hub.Register(wsConn)

		go wsConn.WritePump()
		wsConn.ReadPump(nil)
		hub.Unregister(id)
	}
}

func corsMiddleware(cfg config.CORS) func(http.Handler) http.Handler {
	origins := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[o] = true
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && origins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redisClient *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
