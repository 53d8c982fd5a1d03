package storage

import (
	"fmt"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/model"
)

// chartNode is one account in either chart layout. Nested documents carry
// children; flat documents carry parent numbers.
type chartNode struct {
	Number       identifier  `json:"number" yaml:"number"`
	Name         string      `json:"name" yaml:"name"`
	Parent       identifier  `json:"parent" yaml:"parent"`
	ParentNumber identifier  `json:"parent_number" yaml:"parent_number"`
	Children     []chartNode `json:"children" yaml:"children"`
}

type chartDocument struct {
	ChartOfAccounts []chartNode `json:"chartOfAccounts" yaml:"chartOfAccounts"`
	Accounts        []chartNode `json:"accounts" yaml:"accounts"`
}

// LoadChartFile reads a chart of accounts from a JSON or YAML file. A missing
// or malformed chart is a configuration error.
func LoadChartFile(path string) (*model.ChartOfAccounts, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: chart of accounts %s is missing or empty", common.ErrMissingConfig, path)
	}
	chart, err := ParseChart(data, format)
	if err != nil {
		return nil, fmt.Errorf("chart of accounts %s: %w", path, err)
	}
	return chart, nil
}

// ParseChart decodes a chart document. Both the nested chartOfAccounts layout
// and the flat accounts layout are accepted, and may be mixed.
func ParseChart(data []byte, format Format) (*model.ChartOfAccounts, error) {
	var doc chartDocument
	if err := decode(data, format, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if len(doc.ChartOfAccounts) == 0 && len(doc.Accounts) == 0 {
		return nil, fmt.Errorf("%w: document defines no accounts", common.ErrInvalidConfig)
	}

	var accounts []model.Account
	for _, node := range doc.ChartOfAccounts {
		accounts = flatten(accounts, node, "")
	}
	for _, node := range doc.Accounts {
		accounts = flatten(accounts, node, "")
	}

	return model.NewChartOfAccounts(accounts)
}

// flatten appends node and its descendants depth first. An explicit parent on
// a node wins over the enclosing one.
func flatten(accounts []model.Account, node chartNode, parent string) []model.Account {
	if explicit := node.parent(); explicit != "" {
		parent = explicit
	}
	accounts = append(accounts, model.Account{
		Number:       string(node.Number),
		Name:         node.Name,
		ParentNumber: parent,
	})
	for _, child := range node.Children {
		accounts = flatten(accounts, child, string(node.Number))
	}
	return accounts
}

func (n chartNode) parent() string {
	if n.Parent != "" {
		return string(n.Parent)
	}
	return string(n.ParentNumber)
}
