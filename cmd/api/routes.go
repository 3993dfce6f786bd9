// cmd/api/routes.go
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"libralend/internal/auth"
	"libralend/internal/fines"
	"libralend/internal/httpx"
	"libralend/internal/inventory"
	"libralend/internal/lending"
	"libralend/internal/notifications"
	"libralend/internal/policy"
	"libralend/internal/users"
)

type routerDeps struct {
	log           zerolog.Logger
	policies      policy.Service
	users         users.Service
	inventory     inventory.Service
	lending       lending.Service
	fines         fines.Service
	notifications notifications.Service
}

func newRouter(deps routerDeps) http.Handler {
	policyHandler := policy.NewHandler(deps.policies)
	userHandler := users.NewHandler(deps.users)
	bookHandler := inventory.NewHandler(deps.inventory)
	issueHandler := lending.NewHandler(deps.lending)
	fineHandler := fines.NewHandler(deps.fines)
	notificationHandler := notifications.NewHandler(deps.notifications)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", bookHandler.HandleList)
			r.Post("/", bookHandler.HandleAdd)
			r.Get("/{bookID}", bookHandler.HandleGet)
			r.Patch("/{bookID}", bookHandler.HandleUpdate)
			r.Delete("/{bookID}", bookHandler.HandleRemove)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.HandleList)
			r.Post("/", userHandler.HandleRegister)
			r.Get("/{userID}", userHandler.HandleGet)
			r.Patch("/{userID}/role", userHandler.HandleUpdateRole)
			r.Get("/{userID}/issues", issueHandler.HandleListUserIssues)
			r.Get("/{userID}/fines", fineHandler.HandleListUserFines)
			r.Get("/{userID}/notifications", notificationHandler.HandleList)
		})

		r.Route("/issues", func(r chi.Router) {
			r.Post("/", issueHandler.HandleRequestIssue)
			r.Get("/overdue", issueHandler.HandleListOverdue)
			r.Get("/{issueID}", issueHandler.HandleGet)
			r.Get("/{issueID}/actions", issueHandler.HandleActions)
			r.Post("/{issueID}/approve", issueHandler.HandleTransition(lending.ActionApprove))
			r.Post("/{issueID}/reject", issueHandler.HandleTransition(lending.ActionReject))
			r.Post("/{issueID}/request-return", issueHandler.HandleTransition(lending.ActionRequestReturn))
			r.Post("/{issueID}/cancel-return", issueHandler.HandleTransition(lending.ActionCancelReturn))
			r.Post("/{issueID}/confirm-return", issueHandler.HandleTransition(lending.ActionConfirmReturn))
			r.Post("/{issueID}/renew", issueHandler.HandleTransition(lending.ActionRenew))
			r.Post("/{issueID}/lost", fineHandler.HandleDeclareLost)
		})

		r.Route("/policy", func(r chi.Router) {
			r.Get("/", policyHandler.HandleGet)
			r.Put("/", policyHandler.HandleSet)
		})

		r.Route("/fines", func(r chi.Router) {
			r.Get("/unpaid", fineHandler.HandleListUnpaid)
			r.Post("/{fineID}/pay", fineHandler.HandleMarkPaid)
			r.Post("/sweep", fineHandler.HandleSweep)
		})

		r.Get("/admin/stats", handleStats(deps))
	})

	return r
}

// handleStats aggregates counters across the services for the admin
// dashboard.
func handleStats(deps routerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := auth.FromContext(r.Context())
		if err := auth.RequireLibrarian(actor); err != nil {
			httpx.WriteError(w, err)
			return
		}

		books, err := deps.inventory.ListBooks(r.Context())
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		allUsers, err := deps.users.List(r.Context())
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		overdue, err := deps.lending.ListOverdue(r.Context(), time.Now().UTC())
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		unpaid, err := deps.fines.ListUnpaid(r.Context(), actor)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var totalCopies, availableCopies int
		for _, b := range books {
			totalCopies += b.TotalCopies
			availableCopies += b.AvailableCopies
		}
		var unpaidAmount float64
		for _, f := range unpaid {
			unpaidAmount += f.Amount
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"total_books":         len(books),
			"total_copies":        totalCopies,
			"available_copies":    availableCopies,
			"total_users":         len(allUsers),
			"overdue_issues":      len(overdue),
			"unpaid_fines":        len(unpaid),
			"unpaid_fines_amount": unpaidAmount,
		})
	}
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
