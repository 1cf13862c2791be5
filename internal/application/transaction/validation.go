package transaction

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// inlined names embedded structs, whose fields sit at the parent's level in JSON.
const inlined = "~"

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch {
		case fld.Anonymous && name == "":
			return inlined
		case name == "" || name == "-":
			return fld.Name
		}
		return name
	})
	return v
}

// ValidationError lists request fields that failed validation, keyed by
// their JSON path.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "invalid transaction request: " + strings.Join(e.Messages(), "; ")
}

// Messages returns one "field: rule" entry per failed field, sorted by field.
func (e *ValidationError) Messages() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return msgs
}

// Validate checks a request against its struct tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe.Namespace())] = rule(fe)
	}
	return &ValidationError{Fields: fields}
}

// fieldPath turns a validator namespace into a JSON path: the root struct
// name and embedded struct segments are dropped.
func fieldPath(ns string) string {
	segs := strings.Split(ns, ".")
	path := segs[:0]
	for _, seg := range segs[1:] {
		if seg != inlined {
			path = append(path, seg)
		}
	}
	if len(path) == 0 {
		return ns
	}
	return strings.Join(path, ".")
}

func rule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
