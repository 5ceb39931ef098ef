// Package budget is the household budget service: it owns the loaded
// ledger, the rule book and the income sources, and runs every operator
// operation against them one at a time.
package budget

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/household-budget/internal/categorize"
	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/ledger"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/notify"
	"github.com/dvloznov/household-budget/internal/pipeline"
	"github.com/dvloznov/household-budget/internal/reconcile"
	"github.com/dvloznov/household-budget/internal/rules"
	"github.com/dvloznov/household-budget/internal/store"
)

// Archiver stores rendered reports. gcsuploader.StorageService satisfies it.
type Archiver interface {
	UploadBytes(ctx context.Context, uri string, data []byte, contentType string) error
}

// Options wires a Service.
type Options struct {
	// WindowDays is the fuzzy-duplicate window. Nil means
	// reconcile.DefaultWindowDays; zero means same day only.
	WindowDays      *int
	DefaultKeywords []categorize.Rule
	ReviewMarkers   []string
	DefaultRules    []domain.CategoryRule

	// Importer parses exports by URI; optional when files arrive pre-parsed.
	Importer pipeline.FileImporter
	// Sink receives rendered reports. Defaults to notify.LogSink.
	Sink notify.Sink

	// Archive and ArchiveBucket keep a copy of every report sent. Both optional.
	Archive       Archiver
	ArchiveBucket string
}

// OptionsFromConfig fills Options from the application configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	window := cfg.Import.FuzzyWindowDays
	return Options{
		WindowDays:      &window,
		DefaultKeywords: rules.KeywordsFromConfig(cfg.Import.DefaultKeywords),
		ReviewMarkers:   cfg.Import.ReviewMarkers,
		DefaultRules:    rules.DefaultsFromConfig(cfg.Budget.Defaults),
		Sink:            notify.FromConfig(cfg.Notify.SMTP),
		ArchiveBucket:   cfg.API.ArchiveBucket,
	}
}

// Service serialises every operation behind one mutex. Each mutation is
// applied in memory first and then the affected table is written in full.
// A failed write is returned to the caller and the in-memory change stays;
// the operator can retry it with Flush.
type Service struct {
	mu sync.Mutex

	store      store.Store
	book       *rules.Book
	ledger     *ledger.Ledger
	income     []domain.IncomeSource
	reconciler *reconcile.Reconciler

	defaultKeywords []categorize.Rule
	markers         []string
	importer        pipeline.FileImporter
	sink            notify.Sink
	archive         Archiver
	archiveBucket   string

	loaded bool
}

// New creates a Service over st. Call Load before anything else.
func New(st store.Store, opts Options) *Service {
	if opts.DefaultKeywords == nil {
		opts.DefaultKeywords = categorize.DefaultKeywords()
	}
	if opts.ReviewMarkers == nil {
		opts.ReviewMarkers = categorize.DefaultReviewMarkers()
	}
	if opts.Sink == nil {
		opts.Sink = notify.LogSink{}
	}
	window := reconcile.DefaultWindowDays
	if opts.WindowDays != nil {
		window = *opts.WindowDays
	}
	return &Service{
		store:           st,
		book:            rules.NewBook(st, opts.DefaultRules),
		ledger:          ledger.New(nil),
		reconciler:      reconcile.New(window),
		defaultKeywords: opts.DefaultKeywords,
		markers:         opts.ReviewMarkers,
		importer:        opts.Importer,
		sink:            opts.Sink,
		archive:         opts.Archive,
		archiveBucket:   opts.ArchiveBucket,
	}
}

// Load reads all three tables. An empty rules table is seeded with the
// defaults; any read failure aborts and leaves the service unloaded.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.book.Load(ctx); err != nil {
		return fmt.Errorf("Load: %w", err)
	}
	txs, err := s.store.ReadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("Load: reading transactions: %w", err)
	}
	income, err := s.store.ReadIncome(ctx)
	if err != nil {
		return fmt.Errorf("Load: reading income: %w", err)
	}

	s.ledger.Reset(txs)
	s.income = income
	s.loaded = true

	log := logger.FromContext(ctx)
	log.Info().
		Int("transactions", len(txs)).
		Int("categories", len(s.book.Categories())).
		Int("income_sources", len(income)).
		Msg("Budget loaded")
	return nil
}

// Flush writes every table from memory, e.g. after a failed write.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeLedger(ctx); err != nil {
		return fmt.Errorf("Flush: %w", err)
	}
	if err := s.store.WriteRules(ctx, s.book.Rules()); err != nil {
		return fmt.Errorf("Flush: writing rules: %w", err)
	}
	if err := s.store.WriteIncome(ctx, s.income); err != nil {
		return fmt.Errorf("Flush: writing income: %w", err)
	}
	return nil
}

func (s *Service) writeLedger(ctx context.Context) error {
	if err := s.store.WriteTransactions(ctx, s.ledger.Rows()); err != nil {
		return fmt.Errorf("writing transactions: %w", err)
	}
	return nil
}

// engine builds the categorization engine from the current learned rules.
func (s *Service) engine() *categorize.Engine {
	return categorize.NewEngine(s.book.Learned(), s.defaultKeywords, s.markers)
}

func (s *Service) validator() *pipeline.CategoryValidator {
	return pipeline.NewCategoryValidator(s.book.Categories())
}

func (s *Service) requireLoaded(op string) error {
	if !s.loaded {
		return fmt.Errorf("%s: budget not loaded", op)
	}
	return nil
}
