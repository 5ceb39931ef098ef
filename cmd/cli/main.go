package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/household-budget/internal/bootstrap"
	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/gcsuploader"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/normalize"
	"github.com/dvloznov/household-budget/internal/report"
	"github.com/dvloznov/household-budget/internal/session"
	"github.com/dvloznov/household-budget/internal/suggest"
	"github.com/rs/zerolog"
)

type command struct {
	name string
	help string
	run  func(ctx context.Context, app *bootstrap.App, args []string) error
}

var commands = []command{
	{"import", "Import bank CSV exports and resolve duplicates", runImport},
	{"review", "Categorize rows that need attention", runReview},
	{"add", "Record a manual expense", runAdd},
	{"teach", "Map a keyword to a category", runTeach},
	{"split", "Split one transaction across categories", runSplit},
	{"rename", "Move every row of one category to another", runRename},
	{"summary", "Show budget health for a window", runSummary},
	{"status", "Show what is left in one category", runStatus},
	{"report", "Render and send the budget report", runReport},
	{"suggest", "Suggest categories for uncategorized rows", runSuggest},
	{"categories", "List budget categories", runCategories},
	{"upload", "Upload an export to GCS for later import", runUpload},
}

func main() {
	global := flag.NewFlagSet("cli", flag.ExitOnError)
	configPath := global.String("config", config.DefaultPath(), "Path to config.yaml")
	global.Usage = printUsage
	global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		return
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log := bootstrap.Logger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	app, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open budget")
	}
	defer app.Close()

	if err := cmd.run(ctx, app, args[1:]); err != nil {
		fail(log, cmd.name, err)
	}
}

func fail(log zerolog.Logger, name string, err error) {
	log.Error().Err(err).Str("command", name).Msg("Command failed")
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Household Budget CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli [-config PATH] <command> [options]")
	fmt.Println("\nCommands:")
	for _, c := range commands {
		fmt.Printf("  %-11s %s\n", c.name, c.help)
	}
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// windowFlags registers -start and -end on fs.
func windowFlags(fs *flag.FlagSet) func() (domain.DateRange, error) {
	start := fs.String("start", "", "Window start (YYYY-MM-DD, inclusive)")
	end := fs.String("end", "", "Window end (YYYY-MM-DD, inclusive)")
	return func() (domain.DateRange, error) {
		return parseWindow(*start, *end)
	}
}

func parseWindow(start, end string) (domain.DateRange, error) {
	var w domain.DateRange
	var err error
	if start != "" {
		if w.Start, err = normalize.ParseDate(start); err != nil {
			return w, fmt.Errorf("start: %w", err)
		}
	}
	if end != "" {
		if w.End, err = normalize.ParseDate(end); err != nil {
			return w, fmt.Errorf("end: %w", err)
		}
	}
	if w.Start.IsValid() && w.End.IsValid() && w.End.Before(w.Start) {
		return w, fmt.Errorf("end %s is before start %s", w.End, w.Start)
	}
	return w, nil
}

// partsFlag collects repeated -part AMOUNT:CATEGORY values.
type partsFlag []domain.SplitPart

func (p *partsFlag) String() string {
	var out []string
	for _, part := range *p {
		out = append(out, part.Amount.StringFixed(2)+":"+part.Category)
	}
	return strings.Join(out, ",")
}

func (p *partsFlag) Set(v string) error {
	amount, category, ok := strings.Cut(v, ":")
	if !ok || strings.TrimSpace(category) == "" {
		return fmt.Errorf("part %q: want AMOUNT:CATEGORY", v)
	}
	d, err := normalize.ParseAmount(amount)
	if err != nil {
		return fmt.Errorf("part %q: %w", v, err)
	}
	*p = append(*p, domain.SplitPart{Amount: d, Category: strings.TrimSpace(category)})
	return nil
}

func runAdd(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	date := fs.String("date", time.Now().Format("2006-01-02"), "Date of the expense")
	desc := fs.String("desc", "", "Description")
	amount := fs.String("amount", "", "Amount spent")
	category := fs.String("category", "", "Budget category")
	reimbursable := fs.Bool("reimbursable", false, "Mark as reimbursable")
	fs.Parse(args)

	d, err := normalize.ParseDate(*date)
	if err != nil {
		return err
	}
	amt, err := normalize.ParseAmount(*amount)
	if err != nil {
		return err
	}
	st, err := app.Service.AddManual(ctx, domain.Transaction{
		Date:           d,
		Description:    *desc,
		Amount:         amt,
		Category:       *category,
		IsReimbursable: *reimbursable,
	})
	if err != nil {
		return err
	}
	printStatus(st)
	return nil
}

func runTeach(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("teach", flag.ExitOnError)
	keyword := fs.String("keyword", "", "Keyword to match in descriptions")
	category := fs.String("category", "", "Category the keyword maps to")
	recategorize := fs.Bool("recategorize", false, "Re-run categorization over the whole ledger")
	fs.Parse(args)

	added, err := app.Service.Teach(ctx, *keyword, *category)
	if err != nil {
		return err
	}
	if added {
		fmt.Printf("Learned %q -> %s\n", *keyword, *category)
	} else {
		fmt.Printf("%s already has %q\n", *category, *keyword)
	}
	if *recategorize {
		n, err := app.Service.Recategorize(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Recategorized %d rows\n", n)
	}
	return nil
}

func runSplit(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	date := fs.String("date", "", "Date of the row to split")
	desc := fs.String("desc", "", "Exact description of the row")
	amount := fs.String("amount", "", "Amount of the row")
	var parts partsFlag
	fs.Var(&parts, "part", "AMOUNT:CATEGORY, repeat once per part")
	fs.Parse(args)

	d, err := normalize.ParseDate(*date)
	if err != nil {
		return err
	}
	amt, err := normalize.ParseAmount(*amount)
	if err != nil {
		return err
	}
	key := domain.Transaction{Date: d, Description: *desc, Amount: amt}.Key()
	out, err := app.Service.Split(ctx, key, parts)
	if err != nil {
		return err
	}
	for _, tx := range out {
		printTransaction(tx)
	}
	return nil
}

func runRename(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("rename", flag.ExitOnError)
	from := fs.String("from", "", "Current category label")
	to := fs.String("to", "", "New category label (must exist)")
	fs.Parse(args)

	n, err := app.Service.Rename(ctx, *from, *to)
	if err != nil {
		return err
	}
	fmt.Printf("Renamed %d rows from %s to %s\n", n, *from, *to)
	return nil
}

func runSummary(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	window := windowFlags(fs)
	fs.Parse(args)

	w, err := window()
	if err != nil {
		return err
	}
	printSummary(app.Service.Summary(w))
	return nil
}

func runStatus(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	category := fs.String("category", "", "Budget category")
	window := windowFlags(fs)
	fs.Parse(args)

	w, err := window()
	if err != nil {
		return err
	}
	st, err := app.Service.CategoryStatus(*category, w)
	if err != nil {
		return err
	}
	printStatus(st)
	return nil
}

func runReport(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	window := windowFlags(fs)
	fs.Parse(args)

	w, err := window()
	if err != nil {
		return err
	}
	sum, err := app.Service.SendReport(ctx, w)
	if err != nil {
		return err
	}
	fmt.Printf("Sent: %s\n", report.Subject(sum))
	return nil
}

func runSuggest(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	fs.Parse(args)

	sg, err := suggest.New(ctx, app.Config.Suggest, app.Service.TrainingSet())
	if err != nil {
		return err
	}
	out, err := app.Service.Suggest(ctx, sg)
	if err != nil {
		return err
	}
	if len(out) == 0 {
		fmt.Println("Nothing to suggest.")
		return nil
	}
	for _, s := range out {
		printSuggestion(s)
	}
	return nil
}

func runCategories(ctx context.Context, app *bootstrap.App, args []string) error {
	for _, r := range app.Service.Rules() {
		fmt.Printf("%-16s %-20s %10s  %s\n", r.Group, r.Category, report.Money(r.BudgetAmount), strings.Join(r.Keywords, ", "))
	}
	return nil
}

func runUpload(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucket := fs.String("bucket", app.Config.API.ArchiveBucket, "GCS bucket name")
	filePath := fs.String("file", "", "Path to local CSV export")
	objectName := fs.String("object", "", "GCS object name (defaults to imports/<filename>)")
	fs.Parse(args)

	if *bucket == "" || *filePath == "" {
		return fmt.Errorf("usage: cli upload -bucket NAME -file PATH")
	}
	if *objectName == "" {
		*objectName = "imports/" + filepath.Base(*filePath)
	}

	svc, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	uri := gcsuploader.URI(*bucket, *objectName)
	if err := svc.UploadFile(ctx, uri, *filePath); err != nil {
		return err
	}
	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
	fmt.Printf("Import it with: cli import %s\n", uri)
	return nil
}

// newSession is a throwaway session for one CLI invocation.
func newSession() *session.Session {
	return session.NewManager().Create()
}
