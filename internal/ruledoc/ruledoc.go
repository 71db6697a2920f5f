// Package ruledoc reads and writes rule sets as YAML or JSON documents.
//
// A document is a versioned list of rules:
//
//	version: 1
//	rules:
//	  - id: 0190...
//	    name: Large meal
//	    countries: [All]
//	    rootCondition:
//	      id: root
//	      logicalOperator: AND
//	      children:
//	        - kind: leaf
//	          leaf: {id: c1, conditionType: amount, field: amount, operator: ">", value: "500"}
//	    actions:
//	      - {id: a1, actionType: requireApproval}
//	    isActive: true
//
// Unknown keys are rejected so a misspelled field does not silently turn
// into a rule that never matches.
package ruledoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/solatis/expenserules/internal/types"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the document version written by this package.
const CurrentVersion = 1

// Format selects the document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedVersion indicates a document written by a newer release.
var ErrUnsupportedVersion = errors.New("unsupported rule document version")

// Document is a rule set.
type Document struct {
	Version int           `json:"version" yaml:"version"`
	Rules   []*types.Rule `json:"rules" yaml:"rules"`
}

// New returns a current-version document holding rules.
func New(rules ...*types.Rule) *Document {
	if rules == nil {
		rules = []*types.Rule{}
	}
	return &Document{Version: CurrentVersion, Rules: rules}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("cannot infer rule document format from %q (use .yaml, .yml or .json)", path)
	}
}

// ParseFormat accepts "yaml", "yml" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown rule document format %q (expected yaml or json)", s)
	}
}

// Read decodes one document from r.
func Read(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return New(), nil
			}
			return nil, fmt.Errorf("decode yaml rule document: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json rule document: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown rule document format %q", format)
	}

	if doc.Version == 0 {
		doc.Version = CurrentVersion
	}
	if doc.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d (this build reads up to %d)", ErrUnsupportedVersion, doc.Version, CurrentVersion)
	}
	for i, r := range doc.Rules {
		if r == nil {
			return nil, fmt.Errorf("rule document entry %d is empty", i)
		}
	}
	return &doc, nil
}

// ReadFile decodes the document at path, choosing the format by extension.
func ReadFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, format)
}

// Write encodes doc to w.
func Write(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml rule document: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json rule document: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown rule document format %q", format)
	}
}

// WriteFile encodes doc to path, choosing the format by extension.
func WriteFile(path string, doc *Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Write(&buf, doc, format); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
