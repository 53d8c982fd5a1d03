package llm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/txmatch/internal/model"
)

// Reply is the validated outcome of parsing a model reply. A reply is either
// accepted, with Account and Confidence set, or rejected with a Reason.
type Reply struct {
	Account    *model.Account
	Reasoning  string
	Reason     string
	Confidence float64
}

// OK reports whether the reply was accepted.
func (r Reply) OK() bool {
	return r.Account != nil && r.Reason == ""
}

func rejected(reason string) Reply {
	return Reply{Reason: reason}
}

// accountToken finds a bare account number when the reply has no labels.
var accountToken = regexp.MustCompile(`\b\d{3,}\b`)

// ParseReply validates a raw model reply against the chart. It never fails:
// malformed replies, missing fields, confidences outside [0,1] and unknown
// accounts all produce a rejected Reply. When leafOnly is set, accounts with
// children are rejected too.
func ParseReply(text string, chart *model.ChartOfAccounts, leafOnly bool) Reply {
	content := cleanMarkdownWrapper(text)
	if content == "" {
		return rejected("empty reply")
	}

	number, confidence, reasoning, ok := parseJSONReply(content)
	if !ok {
		number, confidence, reasoning = parseLineReply(content)
	}

	if number == "" {
		return rejected("missing account number")
	}
	if confidence == "" {
		return rejected("missing confidence")
	}

	conf, err := parseConfidence(confidence)
	if err != nil {
		return rejected("unparseable confidence " + strconv.Quote(confidence))
	}
	if !model.ValidConfidence(conf) {
		return rejected("confidence " + strconv.FormatFloat(conf, 'f', -1, 64) + " outside [0,1]")
	}

	acct, found := chart.Lookup(number)
	if !found {
		return rejected("unknown account " + number)
	}
	if leafOnly && !chart.IsLeaf(acct.Number) {
		return rejected("account " + number + " is not a leaf account")
	}

	return Reply{Account: acct, Confidence: conf, Reasoning: reasoning}
}

// parseJSONReply reads the first JSON object in content. Account numbers and
// confidences are accepted as strings or numbers.
func parseJSONReply(content string) (number, confidence, reasoning string, ok bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", "", "", false
	}

	var raw struct {
		AccountNumber json.RawMessage `json:"account_number"`
		Account       json.RawMessage `json:"account"`
		Confidence    json.RawMessage `json:"confidence"`
		Reasoning     string          `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return "", "", "", false
	}

	accountField := raw.AccountNumber
	if len(accountField) == 0 {
		accountField = raw.Account
	}
	return rawScalar(accountField), rawScalar(raw.Confidence), strings.TrimSpace(raw.Reasoning), true
}

// rawScalar returns a JSON string's contents or a number's literal text.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

// parseLineReply reads "ACCOUNT: 6100" / "CONFIDENCE: 0.9" style replies. A
// bare account-number token is used when no label is present.
func parseLineReply(content string) (number, confidence, reasoning string) {
	for _, line := range strings.Split(content, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "ACCOUNT", "ACCOUNT_NUMBER", "ACCOUNT NUMBER":
			if fields := strings.Fields(value); len(fields) > 0 {
				number = strings.Trim(fields[0], `"',.`)
			}
		case "CONFIDENCE":
			confidence = value
		case "REASONING", "REASON":
			reasoning = value
		}
	}

	if number == "" {
		number = accountToken.FindString(content)
	}
	return number, confidence, reasoning
}

// parseConfidence accepts "0.85", "85%" and "0.85," forms.
func parseConfidence(s string) (float64, error) {
	s = strings.TrimRight(strings.TrimSpace(s), ",.")
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return 0, err
		}
		return v / 100.0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// cleanMarkdownWrapper strips a surrounding ``` or ```json fence.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if nl := strings.Index(content, "\n"); nl >= 0 {
		content = content[nl+1:]
	} else {
		content = strings.TrimPrefix(content, "json")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
