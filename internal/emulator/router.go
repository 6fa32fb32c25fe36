package emulator

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Base paths of the emulated APIs, matching the production URL layout.
const (
	SplitwiseBasePath = "/api/v3.0"
	YNABBasePath      = "/v1"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	SplitwiseToken string
	YNABToken      string
	// Middlewares run before routing, e.g. middleware.Logger.
	Middlewares []func(http.Handler) http.Handler
}

// NewRouter mounts both emulated APIs on a chi router.
func NewRouter(st *Store, cfg RouterConfig) chi.Router {
	splitwiseHandler := NewSplitwiseHandler(st)
	ynabHandler := NewYNABHandler(st)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cfg.Middlewares...)

	r.Route(SplitwiseBasePath, func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.SplitwiseToken, writeSplitwiseError))

		r.Get("/get_current_user", splitwiseHandler.CurrentUser)
		r.Get("/get_expenses", splitwiseHandler.ListExpenses)
		r.Get("/get_friends", splitwiseHandler.ListFriends)
		r.Post("/create_expense", splitwiseHandler.CreateExpense)
	})

	r.Route(YNABBasePath+"/budgets/{budgetID}", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.YNABToken, writeYNABError))
		r.Use(ynabHandler.BudgetCtx)

		r.Get("/accounts", ynabHandler.ListAccounts)
		r.Get("/accounts/{accountID}/transactions", ynabHandler.ListTransactions)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", ynabHandler.ListTransactions)
			r.Post("/", ynabHandler.CreateTransactions)
			r.Patch("/{transactionID}", ynabHandler.UpdateTransaction)
		})
	})

	// Health check endpoint.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
