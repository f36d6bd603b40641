package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

var payerValidator = newJSONValidator()

// newJSONValidator reports field errors under their JSON names.
func newJSONValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParsePayerDetails decodes requisites supplied by a caller. Unknown keys and
// malformed values are rejected.
func ParsePayerDetails(raw json.RawMessage) (domain.PayerDetails, error) {
	var details domain.PayerDetails
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return details, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&details); err != nil {
		return details, apperrors.NewValidationError("invalid payer details", map[string]any{"reason": err.Error()})
	}
	if dec.More() {
		return details, apperrors.NewValidationError("invalid payer details", map[string]any{"reason": "trailing data"})
	}
	if err := payerValidator.Struct(details); err != nil {
		return details, apperrors.NewValidationError("invalid payer details", validationDetails(err))
	}
	return details, nil
}

// validationDetails maps validator errors to {json_field: tag}.
func validationDetails(err error) map[string]any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]any{"reason": err.Error()}
	}
	out := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// RenderInvoiceTemplate substitutes {track_number}, {client_name} and {amount}.
func RenderInvoiceTemplate(tpl string, req *domain.Request, amount domain.Money) string {
	return strings.NewReplacer(
		"{track_number}", req.TrackNumber,
		"{client_name}", req.ClientName,
		"{amount}", amount.String(),
	).Replace(tpl)
}
