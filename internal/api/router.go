// Package api assembles the operator HTTP API.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/household-budget/internal/api/handlers"
	"github.com/dvloznov/household-budget/internal/api/middleware"
	"github.com/dvloznov/household-budget/internal/budget"
	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/jobs"
	"github.com/dvloznov/household-budget/internal/session"
	"github.com/rs/zerolog"
)

// Deps is everything the router needs. Publisher and JobStore may be nil.
type Deps struct {
	Service   *budget.Service
	Sessions  *session.Manager
	Publisher jobs.Publisher
	JobStore  jobs.JobStore
	Suggest   config.SuggestConfig
	Password  string
	Logger    zerolog.Logger
}

// NewRouter registers every endpoint and wraps the mux in the middleware chain.
func NewRouter(d Deps) http.Handler {
	transactions := handlers.NewTransactionsHandler(d.Service, d.Sessions)
	imports := handlers.NewImportsHandler(d.Service, d.Sessions)
	rules := handlers.NewRulesHandler(d.Service)
	reports := handlers.NewReportsHandler(d.Service, d.Publisher, d.JobStore, d.Suggest)

	mux := http.NewServeMux()

	// Transactions
	mux.HandleFunc("GET /api/transactions", transactions.ListTransactions)
	mux.HandleFunc("POST /api/transactions", transactions.AddTransaction)
	mux.HandleFunc("POST /api/transactions/split", transactions.SplitTransaction)
	mux.HandleFunc("POST /api/transactions/delete", transactions.DeleteTransactions)
	mux.HandleFunc("POST /api/transactions/rename", transactions.RenameCategory)
	mux.HandleFunc("GET /api/review", transactions.ReviewQueue)
	mux.HandleFunc("POST /api/edits", transactions.OpenEdit)
	mux.HandleFunc("PUT /api/edits/{id}", transactions.SaveEdits)
	mux.HandleFunc("POST /api/flush", transactions.Flush)

	// Imports
	mux.HandleFunc("POST /api/imports", imports.CreateImport)
	mux.HandleFunc("GET /api/imports/{id}", imports.GetImport)
	mux.HandleFunc("POST /api/imports/{id}/resolve", imports.ResolveConflict)
	mux.HandleFunc("POST /api/imports/{id}/commit", imports.CommitImport)
	mux.HandleFunc("DELETE /api/imports/{id}", imports.DiscardImport)

	// Rules, categories and income
	mux.HandleFunc("GET /api/rules", rules.ListRules)
	mux.HandleFunc("PUT /api/rules", rules.ReplaceRules)
	mux.HandleFunc("POST /api/rules/teach", rules.Teach)
	mux.HandleFunc("GET /api/categories", rules.ListCategories)
	mux.HandleFunc("GET /api/income", rules.GetIncome)
	mux.HandleFunc("PUT /api/income", rules.ReplaceIncome)

	// Reporting and delivery
	mux.HandleFunc("GET /api/summary", reports.GetSummary)
	mux.HandleFunc("GET /api/summary/{category}", reports.GetCategoryStatus)
	mux.HandleFunc("POST /api/reports", reports.SendReport)
	mux.HandleFunc("POST /api/exports/notion", reports.ExportNotion)
	mux.HandleFunc("GET /api/jobs", reports.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", reports.GetJob)
	mux.HandleFunc("POST /api/suggestions", reports.Suggest)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(d.Logger)(
		middleware.Logger(d.Logger)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(d.Password)(mux),
				),
			),
		),
	)
}
