package research

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ParseError reports model output that does not satisfy the result contract.
// Raw is the exact text that was rejected.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return "parse research result: " + e.Reason
}

// Parser validates raw model output against the result schema. It is safe for
// concurrent use.
type Parser struct {
	schema *gojsonschema.Schema
}

// NewParser compiles the result schema.
func NewParser() (*Parser, error) {
	m, err := SchemaMap()
	if err != nil {
		return nil, err
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(m))
	if err != nil {
		return nil, fmt.Errorf("compile result schema: %w", err)
	}
	return &Parser{schema: schema}, nil
}

// Parse turns raw into a Result. The text must be exactly one JSON object with
// nothing around it, whitespace included. Any failure is a *ParseError.
func (p *Parser) Parse(raw string) (*Result, error) {
	fail := func(format string, args ...any) (*Result, error) {
		return nil, &ParseError{Reason: fmt.Sprintf(format, args...), Raw: raw}
	}

	if raw == "" {
		return fail("empty output")
	}
	if strings.TrimSpace(raw) != raw {
		return fail("output has surrounding whitespace")
	}
	if raw[0] != '{' || raw[len(raw)-1] != '}' {
		return fail("output is not a single JSON object")
	}
	if !json.Valid([]byte(raw)) {
		return fail("output is not valid JSON")
	}

	res, err := p.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fail("validate: %v", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fail("%s", strings.Join(msgs, "; "))
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	var out Result
	if err := dec.Decode(&out); err != nil {
		return fail("decode: %v", err)
	}
	return &out, nil
}

var defaultParser = sync.OnceValues(NewParser)

// Parse validates raw with a shared Parser.
func Parse(raw string) (*Result, error) {
	p, err := defaultParser()
	if err != nil {
		return nil, &ParseError{Reason: err.Error(), Raw: raw}
	}
	return p.Parse(raw)
}

// IsParseError reports whether err carries a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
