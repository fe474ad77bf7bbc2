package handler

import (
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/footwear-cart/internal/domain/money"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("json"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// badRequestError marks a malformed or invalid request body.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// decoder is implemented by request DTOs.
type decoder interface {
	decode(d *jx.Decoder) error
}

// readBody decodes the JSON body into dst and runs struct validation on it.
// An empty body is accepted for requests whose fields are all optional.
func readBody(r *http.Request, dst decoder) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("read body: %s", err)
	}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := dst.decode(jx.DecodeBytes(raw)); err != nil {
			return badRequest("invalid request body: %s", err)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return validationFailed(err)
	}
	return nil
}

func validationFailed(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return badRequest("validation failed: %s", err)
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return badRequest("%s is required", fe.Field())
	case "min", "gte":
		return badRequest("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return badRequest("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return badRequest("%s is invalid", fe.Field())
	}
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(string(n))
	default:
		return decimal.Zero, errors.New("expected number")
	}
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func fieldStr(e *jx.Encoder, name, v string) {
	e.FieldStart(name)
	e.Str(v)
}

func fieldInt(e *jx.Encoder, name string, v int) {
	e.FieldStart(name)
	e.Int(v)
}

func fieldBool(e *jx.Encoder, name string, v bool) {
	e.FieldStart(name)
	e.Bool(v)
}

// fieldAmount writes a money amount as a fixed-point string in the
// currency's minor unit.
func fieldAmount(e *jx.Encoder, name string, v decimal.Decimal, currency string) {
	e.FieldStart(name)
	e.Str(v.StringFixed(money.MinorUnits(currency)))
}
