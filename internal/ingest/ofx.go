package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/txmatch/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line with no closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

var descriptionPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// preprocessOFX fixes common formatting issues in bank-produced OFX files.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ReadOFX reads bank and credit card statements from an OFX or QFX file.
func ReadOFX(ctx context.Context, reader io.Reader, logger *slog.Logger) ([]*model.Transaction, error) {
	if logger == nil {
		logger = slog.Default()
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []*model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			bankStmts++
			transactions = appendStatement(transactions, stmt.BankTranList.Transactions, logger)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			ccStmts++
			transactions = appendStatement(transactions, stmt.BankTranList.Transactions, logger)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

func appendStatement(dst []*model.Transaction, src []ofxgo.Transaction, logger *slog.Logger) []*model.Transaction {
	for _, ofxTx := range src {
		txn, err := convertOFXTransaction(ofxTx)
		if err != nil {
			logger.Warn("skipping OFX transaction", "fitid", string(ofxTx.FiTID), "error", err)
			continue
		}
		dst = append(dst, txn)
	}
	return dst
}

// convertOFXTransaction keeps the statement sign: debits are negative.
func convertOFXTransaction(ofxTx ofxgo.Transaction) (*model.Transaction, error) {
	description := ofxDescription(ofxTx)
	if description == "" {
		return nil, fmt.Errorf("%w: missing description", ErrInvalidRow)
	}

	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(4))
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %w", ErrInvalidRow, err)
	}

	id := string(ofxTx.FiTID)
	if id == "" {
		id = uuid.NewString()
	}

	txn := model.NewTransaction(id, description, amount, ofxTx.DtPosted.Time)
	txn.Type = fmt.Sprintf("%v", ofxTx.TrnType)
	txn.Memo = strings.TrimSpace(string(ofxTx.Memo))
	if ofxTx.DtAvail != nil {
		txn.PostDate = ofxTx.DtAvail.Time
	}
	if ofxTx.CheckNum != "" && txn.Memo == "" {
		txn.Memo = "Check " + string(ofxTx.CheckNum)
	}
	return txn, nil
}

// ofxDescription prefers the payee name, falls back to NAME, and uses MEMO when
// NAME is generic. Card processor prefixes and leading MM/DD are removed.
func ofxDescription(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && isGenericDescription(name) {
		name = strings.TrimSpace(string(tx.Memo))
	}

	for _, prefix := range descriptionPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "", "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
