package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/dvloznov/household-budget/internal/bootstrap"
	"github.com/dvloznov/household-budget/internal/budget"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/reconcile"
	"github.com/dvloznov/household-budget/internal/report"
	"github.com/dvloznov/household-budget/internal/session"
	"github.com/dvloznov/household-budget/internal/suggest"
	"github.com/fatih/color"
	"github.com/manishrjain/keys"
)

const descLength = 40

const (
	optSkip = ".skip"
	optQuit = ".quit"
)

var errc = color.New(color.BgRed, color.FgWhite).PrintfFunc()

func singleCharMode() {
	// disable input buffering
	exec.Command("stty", "-F", "/dev/tty", "cbreak", "min", "1").Run()
	// do not display entered characters on the screen
	exec.Command("stty", "-F", "/dev/tty", "-echo").Run()
}

func saneMode() {
	exec.Command("stty", "-F", "/dev/tty", "sane").Run()
}

func readKey() rune {
	r := make([]byte, 1)
	if _, err := os.Stdin.Read(r); err != nil {
		return 'q'
	}
	return rune(r[0])
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func printTransaction(tx domain.Transaction) {
	color.New(color.BgYellow, color.FgBlack).Printf(" %10s ", tx.Date)
	color.New(color.BgWhite, color.FgBlack).Printf(" %-*s", descLength, truncate(tx.Description, descLength))
	color.New(color.BgRed, color.FgWhite).Printf(" %10s ", report.Money(tx.Amount))
	switch {
	case tx.Category == "":
		color.New(color.BgMagenta, color.FgWhite).Printf(" %-20s ", "uncategorized")
	default:
		color.New(color.BgGreen, color.FgBlack).Printf(" %-20s ", tx.Category)
	}
	if tx.NeedsReview {
		color.New(color.BgBlue, color.FgWhite).Printf(" REVIEW ")
	}
	if tx.IsReimbursable {
		color.New(color.BgCyan, color.FgBlack).Printf(" R ")
	}
	fmt.Println()
}

func printStatus(st report.Status) {
	c := color.New(color.FgGreen)
	if st.Remaining.IsNegative() {
		c = color.New(color.FgRed, color.Bold)
	}
	fmt.Printf("%-20s budget %10s  spent %10s  ", st.Category, report.Money(st.Budget), report.Money(st.Spent))
	c.Printf("left %10s\n", report.Money(st.Remaining))
}

func printSummary(s report.Summary) {
	color.New(color.Bold).Printf("Budget %s\n\n", report.PeriodLabel(s))
	for _, g := range s.Groups {
		color.New(color.FgCyan, color.Bold).Printf("%s\n", g.Name)
		for _, l := range g.Lines {
			c := color.New(color.FgGreen)
			if l.OverBudget() {
				c = color.New(color.FgRed)
			}
			fmt.Printf("  %-20s %10s %10s ", l.Category, report.Money(l.Budget), report.Money(l.Spent))
			c.Printf("%10s\n", report.Money(l.Remaining))
		}
	}
	fmt.Println()
	fmt.Printf("Income    %12s\n", report.Money(s.Income))
	fmt.Printf("Planned   %12s\n", report.Money(s.Planned))
	fmt.Printf("Spent     %12s\n", report.Money(s.Spent))
	fmt.Printf("Remaining %12s\n", report.Money(s.Remaining))
	if s.HasSavingsRate {
		fmt.Printf("Savings   %11s%%\n", s.SavingsRate.StringFixed(1))
	}
	if s.NeedsAttention > 0 {
		color.New(color.FgYellow).Printf("\n%d rows need attention, run 'cli review'\n", s.NeedsAttention)
	}
}

func printSuggestion(s suggest.Suggestion) {
	color.New(color.BgWhite, color.FgBlack).Printf(" %-*s", descLength, truncate(s.Description, descLength))
	if s.Category == "" {
		color.New(color.FgYellow).Printf("  no confident guess\n")
		return
	}
	color.New(color.FgYellow).Printf("  %-20s", s.Category)
	color.New(color.FgGreen).Printf(" (%.0f%% %s)\n", s.Confidence*100, s.Source)
}

func printFiles(sum session.ImportSummary) {
	for _, f := range sum.Files {
		if f.Error != "" {
			errc(" %s: %s ", f.Name, f.Error)
			fmt.Println()
			continue
		}
		fmt.Printf("%-30s %-10s %4d rows, %4d accepted, %4d rejected\n", f.Name, f.Layout, f.Rows, f.Accepted, f.Rejected)
	}
	fmt.Printf("\n%d parsed, %d categorized, %d clean, %d duplicates dropped, %d conflicts\n\n",
		sum.Parsed, sum.Categorized, sum.Clean, sum.Discarded, sum.Conflicts)
}

func conflictShortcuts() *keys.Shortcuts {
	var ks keys.Shortcuts
	ks.BestEffortAssign('k', reconcile.KeepBoth.String(), "default")
	ks.BestEffortAssign('r', reconcile.Replace.String(), "default")
	ks.BestEffortAssign('d', reconcile.DiscardNew.String(), "default")
	ks.BestEffortAssign('q', optQuit, "default")
	return &ks
}

func runImport(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	onConflict := fs.String("on-conflict", "", "Resolve every conflict the same way (keep-both, replace, discard-new) instead of prompting")
	fs.Parse(args)

	uris := fs.Args()
	if len(uris) == 0 {
		return fmt.Errorf("usage: cli import [-on-conflict D] FILE|gs://URI ...")
	}

	var fixed *reconcile.Disposition
	if *onConflict != "" {
		d, err := reconcile.ParseDisposition(*onConflict)
		if err != nil {
			return err
		}
		fixed = &d
	}

	sess := newSession()
	sum, err := app.Service.ImportURIs(ctx, sess, uris)
	if err != nil {
		return err
	}
	printFiles(sum)

	if sum.Conflicts > 0 && fixed == nil {
		singleCharMode()
		defer saneMode()
	}

	ks := conflictShortcuts()
	for i := 1; sess.Queue.Pending() > 0; i++ {
		c, err := app.Service.CurrentConflict(sess)
		if err != nil {
			return err
		}

		d := reconcile.KeepBoth
		if fixed != nil {
			d = *fixed
		} else {
			color.New(color.BgBlue, color.FgWhite).Printf(" [%d of %d] possible duplicate ", i, sum.Conflicts)
			fmt.Println()
			fmt.Print("  new      ")
			printTransaction(c.New)
			fmt.Print("  existing ")
			printTransaction(c.Existing)
			fmt.Println()

			ks.Print("default", false)
			opt, ok := ks.MapsTo(readKey(), "default")
			if !ok {
				i--
				continue
			}
			if opt == optQuit {
				app.Service.DiscardImport(ctx, sess)
				fmt.Println("Import discarded, ledger unchanged.")
				return nil
			}
			if d, err = reconcile.ParseDisposition(opt); err != nil {
				return err
			}
		}

		if _, err := app.Service.Resolve(ctx, sess, d); err != nil {
			return err
		}
	}

	res, err := app.Service.Commit(ctx, sess)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Printf("Committed: %d added, %d replaced\n", res.Added, res.Removed)
	return nil
}

func runReview(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	window := windowFlags(fs)
	fs.Parse(args)

	w, err := window()
	if err != nil {
		return err
	}

	sess := newSession()
	rows := app.Service.OpenEdit(sess, budget.Filter{Range: w, NeedsAttention: true})
	if len(rows) == 0 {
		fmt.Println("Nothing needs attention.")
		return nil
	}

	var sg suggest.Suggester
	if s, err := suggest.New(ctx, app.Config.Suggest, app.Service.TrainingSet()); err == nil {
		sg = s
	}
	categories := app.Service.Categories()

	singleCharMode()
	defer saneMode()

	changed := 0
LOOP:
	for i := range rows {
		tx := &rows[i]
		color.New(color.BgBlue, color.FgWhite).Printf(" [%d of %d] ", i+1, len(rows))
		printTransaction(*tx)

		var ks keys.Shortcuts
		ks.BestEffortAssign('s', optSkip, "default")
		ks.BestEffortAssign('q', optQuit, "default")

		// Suggested and current categories get the first shortcuts.
		var offer []string
		if sg != nil {
			if s, err := sg.Suggest(ctx, tx.Description, categories); err == nil && s.Category != "" {
				color.New(color.BgCyan, color.FgBlack).Printf("[SUGGESTED] %s (%.0f%%)", s.Category, s.Confidence*100)
				fmt.Println()
				offer = append(offer, s.Category)
			}
		}
		if tx.Category != "" {
			offer = append(offer, tx.Category)
		}
		assigned := make(map[string]bool)
		for _, c := range append(offer, categories...) {
			if !assigned[c] {
				ks.AutoAssign(c, "default")
				assigned[c] = true
			}
		}

		ks.Print("default", false)
		opt, ok := ks.MapsTo(readKey(), "default")
		fmt.Println()
		switch {
		case !ok, opt == optSkip:
			continue
		case opt == optQuit:
			break LOOP
		}
		tx.Category = opt
		tx.NeedsReview = false
		changed++
	}
	saneMode()

	if changed == 0 {
		fmt.Println("No changes.")
		return nil
	}
	if !confirm(fmt.Sprintf("Save %d changes?", changed)) {
		fmt.Println("Discarded.")
		return nil
	}
	if _, _, err := app.Service.SaveEdits(ctx, sess, rows); err != nil {
		return err
	}
	color.New(color.FgGreen).Printf("Saved %d changes\n", changed)
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s (Y/n) ", prompt)
	var answer string
	fmt.Scanln(&answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "" || answer == "y" || answer == "yes"
}
