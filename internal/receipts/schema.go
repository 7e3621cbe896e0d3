package receipts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
)

// RequiredFields must be present and non-blank in a create payload.
var RequiredFields = []string{"uid", "price", "productName", "category", "date", "storeName", "currency"}

// dateFields are converted to ISO-8601 before forwarding.
var dateFields = []string{"date", "validUptoDate", "refundableUptoDate"}

// BuildCreateSchema returns the JSON Schema (draft 2020-12 subset) of a
// receipt create payload. Unknown properties pass through untouched.
func BuildCreateSchema() map[string]any {
	nonEmpty := map[string]any{"type": "string", "minLength": 1}
	optional := map[string]any{"type": "string"}
	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"properties": map[string]any{
			"uid":                nonEmpty,
			"price":              map[string]any{"type": "number", "minimum": 0},
			"productName":        nonEmpty,
			"category":           nonEmpty,
			"date":               nonEmpty,
			"storeName":          nonEmpty,
			"currency":           nonEmpty,
			"storeLocation":      optional,
			"validUptoDate":      optional,
			"refundableUptoDate": optional,
			"image":              optional,
		},
		"required": RequiredFields,
	}
}

var (
	createSchemaOnce sync.Once
	createSchema     *jsonschema.Schema
	createSchemaErr  error
)

func compiledCreateSchema() (*jsonschema.Schema, error) {
	createSchemaOnce.Do(func() {
		b, err := json.Marshal(BuildCreateSchema())
		if err != nil {
			createSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("receipt-create.json", bytes.NewReader(b)); err != nil {
			createSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		createSchema, createSchemaErr = compiler.Compile("receipt-create.json")
	})
	return createSchema, createSchemaErr
}

// InvalidReceiptError lists the fields that made a create payload invalid.
type InvalidReceiptError struct {
	Fields  []string
	Message string
}

func (e *InvalidReceiptError) Error() string { return e.Message }

func (e *InvalidReceiptError) Unwrap() error { return common.ErrValidation }

// PrepareCreate validates a decoded create payload and returns a copy with
// price coerced to a number and dates converted to ISO-8601.
func PrepareCreate(doc map[string]any) (map[string]any, error) {
	if doc == nil {
		return nil, &InvalidReceiptError{Fields: RequiredFields, Message: "receipt payload is required"}
	}

	v := common.NewValidator()
	for _, f := range RequiredFields {
		v.Field(f, doc[f], common.Required)
	}
	if v.HasErrors() {
		return nil, &InvalidReceiptError{
			Fields:  v.Fields(),
			Message: "missing required fields: " + strings.Join(v.Fields(), ", "),
		}
	}

	out := make(map[string]any, len(doc))
	for k, val := range doc {
		out[k] = val
	}

	price, err := ParsePrice(doc["price"])
	if err != nil {
		return nil, &InvalidReceiptError{Fields: []string{"price"}, Message: "price must be a non-negative number"}
	}
	out["price"] = price

	for _, f := range dateFields {
		s, ok := out[f].(string)
		if !ok {
			continue
		}
		iso, err := NormalizeDate(s)
		if err != nil {
			return nil, &InvalidReceiptError{Fields: []string{f}, Message: err.Error()}
		}
		if iso == "" {
			delete(out, f)
			continue
		}
		out[f] = iso
	}

	if err := validateAgainstSchema(out); err != nil {
		return nil, err
	}
	return out, nil
}

func validateAgainstSchema(doc map[string]any) error {
	schema, err := compiledCreateSchema()
	if err != nil {
		return fmt.Errorf("receipt schema: %w", err)
	}
	// round-trip so the validator sees plain JSON types
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode receipt: %w", err)
	}
	err = schema.Validate(v)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate receipt: %w", err)
	}
	fields := map[string]struct{}{}
	collectFields(ve, fields)
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return &InvalidReceiptError{
		Fields:  names,
		Message: "invalid fields: " + strings.Join(names, ", "),
	}
}

func collectFields(ve *jsonschema.ValidationError, acc map[string]struct{}) {
	if len(ve.Causes) == 0 {
		loc := strings.TrimPrefix(ve.InstanceLocation, "/")
		if loc != "" {
			acc[strings.SplitN(loc, "/", 2)[0]] = struct{}{}
		}
		return
	}
	for _, c := range ve.Causes {
		collectFields(c, acc)
	}
}
