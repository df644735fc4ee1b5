package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"referral-service/internal/usecase"
)

// Server wires the referral endpoints and the admin code surface onto one
// chi router. The public routes carry the optional session middleware so an
// authenticated caller's identity reaches the self-referral check; the admin
// routes sit behind the static API key.
type Server struct {
	validationUC usecase.ValidationUseCase
	submissionUC usecase.SubmissionUseCase
	deviceUC     usecase.DeviceUseCase
	adminUC      usecase.CodeAdminUseCase
	adminKey     string
	jwtSecret    string
	log          *zerolog.Logger
}

func NewServer(
	validationUC usecase.ValidationUseCase,
	submissionUC usecase.SubmissionUseCase,
	deviceUC usecase.DeviceUseCase,
	adminUC usecase.CodeAdminUseCase,
	adminKey string,
	jwtSecret string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		validationUC: validationUC,
		submissionUC: submissionUC,
		deviceUC:     deviceUC,
		adminUC:      adminUC,
		adminKey:     adminKey,
		jwtSecret:    jwtSecret,
		log:          logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/referral", func(r chi.Router) {
		r.Use(Session(s.jwtSecret))
		r.Post("/validate", validateHandler(s.validationUC))
		r.Post("/submit", submitHandler(s.submissionUC))
		r.Post("/device-status", deviceStatusHandler(s.deviceUC))
	})

	r.Route("/api/v1/admin/codes", func(r chi.Router) {
		r.Use(AdminAuth(s.adminKey))
		r.Post("/", codeCreateHandler(s.adminUC, s.log))
		r.Get("/", codeListHandler(s.adminUC))
		r.Put("/{id}", codeUpdateHandler(s.adminUC))
		r.Delete("/{id}", codeDeleteHandler(s.adminUC))
		r.Get("/{id}/submissions", codeSubmissionsHandler(s.adminUC))
	})

	return r
}
