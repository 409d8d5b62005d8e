package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/observability/tracing"
	"github.com/rtpcraft/randomtp/internal/services"
	"github.com/rtpcraft/randomtp/internal/types"
)

// TeleportService is the part of the orchestrator exposed over http.
type TeleportService interface {
	RequestTeleport(ctx context.Context, participantID string, opts services.RequestOptions) (*services.Ticket, error)
	RequestStatus(participantID string) (services.RequestStatus, bool)
	CancelRequest(ctx context.Context, participantID string, refundEligible bool) bool
	HandleMove(ctx context.Context, participantID string, from, to types.Location) bool
	HandleActivity(ctx context.Context, participantID string, activity types.Activity) bool
	ResetCooldown(ctx context.Context, participantID string) error
	ParticipantInfo(ctx context.Context, participantID string) (*services.ParticipantInfo, error)
	EconomyStatus(ctx context.Context) services.EconomyStatus
	SwitchProvider(ctx context.Context, name string) error
}

// Roster is the host side state the participant endpoints update.
type Roster interface {
	Join(id string, pos types.Location)
	Quit(id string)
	SetPosition(id string, pos types.Location) (types.Location, error)
	SetAlive(id string, alive bool) error
	Grant(id string, privileges ...string)
}

type Server struct {
	cfg     *config.ServerConfig
	svc     TeleportService
	roster  Roster
	httpSrv *http.Server
}

func New(cfg *config.ServerConfig, svc TeleportService, roster Roster) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		roster: roster,
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware)

	r.Get("/healthcheck", s.healthCheck)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/teleports", s.requestTeleport)
		r.Get("/teleports/{participantID}", s.teleportStatus)
		r.Delete("/teleports/{participantID}", s.cancelTeleport)

		r.Route("/participants/{participantID}", func(r chi.Router) {
			r.Get("/", s.participantInfo)
			r.Post("/join", s.join)
			r.Post("/quit", s.quit)
			r.Post("/move", s.move)
			r.Post("/activity", s.activity)
			r.Post("/cooldown/reset", s.resetCooldown)
		})

		r.Get("/economy/status", s.economyStatus)
		r.Post("/economy/switch", s.switchProvider)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, types.NotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, types.BadRequest, "method not allowed")
	})

	return r
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpSrv.Addr).Msg("Starting api server")
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
