package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/txmatch/internal/model"
)

// ReviewAction is what the user decided for one transaction.
type ReviewAction string

// Review actions.
const (
	ActionAccepted    ReviewAction = "accepted"
	ActionAlternative ReviewAction = "alternative"
	ActionCustom      ReviewAction = "custom"
	ActionSkipped     ReviewAction = "skipped"
)

// Decision is the outcome of reviewing one transaction. Account is nil when skipped.
type Decision struct {
	Transaction *model.Transaction
	Account     *model.Account
	Action      ReviewAction
}

// Confirmed reports whether the user picked an account.
func (d Decision) Confirmed() bool {
	return d.Account != nil && d.Action != ActionSkipped
}

// ReviewStats counts review outcomes.
type ReviewStats struct {
	Duration time.Duration
	Reviewed int
	Accepted int
	Changed  int
	Skipped  int
}

// Reviewer walks low-confidence matches and asks the user to confirm or correct them.
type Reviewer struct {
	startTime   time.Time
	writer      io.Writer
	reader      *LineReader
	chart       *model.ChartOfAccounts
	progressBar *progressbar.ProgressBar
	logger      *slog.Logger
	stats       ReviewStats
}

// NewReviewer creates a reviewer reading answers from in. Nil streams default
// to stdin and stdout.
func NewReviewer(in io.Reader, out io.Writer, chart *model.ChartOfAccounts, logger *slog.Logger) *Reviewer {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{
		reader: NewLineReader(in),
		writer: out,
		chart:  chart,
		logger: logger,
	}
}

// Pending returns the transactions that need review, in input order.
func Pending(transactions []*model.Transaction) []*model.Transaction {
	var pending []*model.Transaction
	for _, txn := range transactions {
		if txn != nil && txn.NeedsReview() {
			pending = append(pending, txn)
		}
	}
	return pending
}

// Review asks about every transaction that needs review. It stops early when
// the user quits or input ends, returning the decisions made so far.
// Transactions are not modified.
func (r *Reviewer) Review(ctx context.Context, transactions []*model.Transaction) ([]Decision, error) {
	pending := Pending(transactions)
	r.startTime = time.Now()
	r.stats = ReviewStats{}
	if len(pending) == 0 {
		return nil, nil
	}

	r.progressBar = newBar(r.writer, len(pending), "Reviewing matches...")
	decisions := make([]Decision, 0, len(pending))

	for _, txn := range pending {
		d, quit, err := r.reviewOne(ctx, txn)
		if err != nil {
			r.stats.Duration = time.Since(r.startTime)
			if errors.Is(err, io.EOF) {
				return decisions, nil
			}
			return decisions, err
		}
		if quit {
			break
		}
		decisions = append(decisions, d)
		r.record(d)
		if err := r.progressBar.Add(1); err != nil {
			r.logger.Warn("failed to update progress bar", "error", err)
		}
	}

	r.stats.Duration = time.Since(r.startTime)
	return decisions, nil
}

// Stats returns the counts from the last Review.
func (r *Reviewer) Stats() ReviewStats {
	return r.stats
}

func (r *Reviewer) record(d Decision) {
	r.stats.Reviewed++
	switch d.Action {
	case ActionAccepted:
		r.stats.Accepted++
	case ActionAlternative, ActionCustom:
		r.stats.Changed++
	case ActionSkipped:
		r.stats.Skipped++
	}
}

func (r *Reviewer) reviewOne(ctx context.Context, txn *model.Transaction) (Decision, bool, error) {
	alternatives := distinctAlternatives(txn)

	if _, err := fmt.Fprintln(r.writer, RenderBox("Match Review", formatTransaction(txn, alternatives))); err != nil {
		return Decision{}, false, fmt.Errorf("failed to write transaction box: %w", err)
	}

	var options []string
	valid := map[string]bool{"c": true, "s": true, "q": true}
	current := txn.Account()
	if current != nil {
		options = append(options, fmt.Sprintf("  [A] Accept %s", SuccessStyle.Render(accountLabel(current))))
		valid["a"] = true
	}
	for i, m := range alternatives {
		key := strconv.Itoa(i + 1)
		options = append(options, fmt.Sprintf("  [%s] Use %s", key, accountLabel(m.Account)))
		valid[key] = true
	}
	options = append(options,
		"  [C] Enter an account number",
		"  [S] Skip",
		"  [Q] Quit review",
	)
	if _, err := fmt.Fprintln(r.writer, strings.Join(options, "\n")+"\n"); err != nil {
		return Decision{}, false, fmt.Errorf("failed to write options: %w", err)
	}

	choice, err := r.promptChoice(ctx, "Choice", valid)
	if err != nil {
		return Decision{}, false, err
	}

	d := Decision{Transaction: txn}
	switch choice {
	case "a":
		d.Account = current
		d.Action = ActionAccepted
	case "c":
		acct, err := r.promptAccount(ctx)
		if err != nil {
			return Decision{}, false, err
		}
		d.Account = acct
		d.Action = ActionCustom
	case "s":
		d.Action = ActionSkipped
	case "q":
		return Decision{}, true, nil
	default:
		n, _ := strconv.Atoi(choice)
		d.Account = alternatives[n-1].Account
		d.Action = ActionAlternative
	}

	if d.Confirmed() {
		r.printf("%s\n", FormatSuccess("Matched to "+accountLabel(d.Account)))
	}
	return d, false, nil
}

func (r *Reviewer) promptChoice(ctx context.Context, prompt string, valid map[string]bool) (string, error) {
	for {
		if _, err := fmt.Fprint(r.writer, FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}
		input, err := r.reader.ReadLine(ctx)
		if err != nil {
			return "", err
		}
		choice := strings.ToLower(input)
		if valid[choice] {
			return choice, nil
		}
		r.printf("%s\n", FormatError("Invalid choice. Please try again."))
	}
}

func (r *Reviewer) promptAccount(ctx context.Context) (*model.Account, error) {
	for {
		if _, err := fmt.Fprint(r.writer, FormatPrompt("Account number")); err != nil {
			return nil, fmt.Errorf("failed to write prompt: %w", err)
		}
		input, err := r.reader.ReadLine(ctx)
		if err != nil {
			return nil, err
		}
		if input == "" {
			r.printf("%s\n", FormatError("Account number cannot be empty."))
			continue
		}
		acct, ok := r.chart.Lookup(input)
		if !ok {
			r.printf("%s\n", FormatError(fmt.Sprintf("Account %s is not in the chart of accounts.", input)))
			continue
		}
		return acct, nil
	}
}

func (r *Reviewer) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(r.writer, format, args...); err != nil {
		r.logger.Warn("failed to write review output", "error", err)
	}
}

// distinctAlternatives returns the best candidate per account other than the
// current one, in the order first considered.
func distinctAlternatives(txn *model.Transaction) []model.Match {
	current := txn.Account()
	best := make(map[string]int)
	var result []model.Match
	for _, m := range txn.OtherMatches() {
		if current != nil && m.Account.Number == current.Number {
			continue
		}
		if i, ok := best[m.Account.Number]; ok {
			if m.Confidence > result[i].Confidence {
				result[i] = m
			}
			continue
		}
		best[m.Account.Number] = len(result)
		result = append(result, m)
	}
	return result
}

func formatTransaction(txn *model.Transaction, alternatives []model.Match) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(txn.Description))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s Details:\n", InfoIcon)
	if !txn.Date.IsZero() {
		fmt.Fprintf(&b, "  Date: %s\n", txn.Date.Format("Jan 2, 2006"))
	}
	fmt.Fprintf(&b, "  Amount: %s\n", txn.Amount.StringFixed(2))
	if txn.Memo != "" {
		fmt.Fprintf(&b, "  Memo: %s\n", txn.Memo)
	}

	if m, ok := txn.CurrentMatch(); ok {
		icon := RuleIcon
		if m.Source == model.SourceLLM {
			icon = RobotIcon
		}
		fmt.Fprintf(&b, "\n%s Current match: %s (%.0f%% confidence, %s)",
			icon, WarningStyle.Render(m.Account.FullName()), m.Confidence*100, m.Source)
	} else {
		fmt.Fprintf(&b, "\n%s No match found", WarningIcon)
	}

	for i, m := range alternatives {
		fmt.Fprintf(&b, "\n  %d. %s (%.0f%%, %s)", i+1, m.Account.FullName(), m.Confidence*100, m.Source)
	}
	return b.String()
}

func accountLabel(acct *model.Account) string {
	return acct.Number + " " + acct.FullName()
}
