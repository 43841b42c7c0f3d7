package wire

import (
	"net/http"

	"lesson-enrollment/internal/adaptor"
	"lesson-enrollment/internal/data/repository"
	"lesson-enrollment/internal/usecase"
	"lesson-enrollment/pkg/broadcast"
	"lesson-enrollment/pkg/gateway"
	"lesson-enrollment/pkg/locker"
	"lesson-enrollment/pkg/middleware"
	"lesson-enrollment/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds the wired application.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring initializes all dependencies.
func Wiring(repo *repository.Repository, tx *repository.TxManager, gw *gateway.Client, inventory locker.Inventory, broadcaster broadcast.Broadcaster, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, tx, gw, inventory, broadcaster, config, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS)

	// Apply routes
	wireEnrollment(r, handler.Enrollment)
	wireLesson(r, handler.Lesson)
	wireWebhook(r, handler.Webhook)
	wireAdmin(r, handler.Admin)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
