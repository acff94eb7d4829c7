package report

import (
	"encoding/json"
	"fmt"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

// OutputFormatter defines the interface for formatting reconciliation results
type OutputFormatter interface {
	Format(result *domain.ReconciliationResult) ([]byte, error)
	FileExtension() string
}

// NewFormatter returns the formatter registered under name ("json" or "text")
func NewFormatter(name string, prettyPrint bool) (OutputFormatter, error) {
	switch name {
	case "", "json":
		return NewJSONFormatter(prettyPrint), nil
	case "text":
		return NewTextFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}

// JSONFormatter formats reconciliation results as JSON
type JSONFormatter struct {
	PrettyPrint bool
}

func NewJSONFormatter(prettyPrint bool) *JSONFormatter {
	return &JSONFormatter{
		PrettyPrint: prettyPrint,
	}
}

// Format implements the OutputFormatter interface for JSON
func (f *JSONFormatter) Format(result *domain.ReconciliationResult) ([]byte, error) {
	doc := NewDocument(result)
	if f.PrettyPrint {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}

func (f *JSONFormatter) FileExtension() string {
	return "json"
}
