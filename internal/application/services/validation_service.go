package services

import (
	"fmt"
	"log"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
	"github.com/openforce/backend/pkg/formula"
)

// ValidationService evaluates an object's validation rules against a record.
// A rule formula expresses the error condition: true means the write is
// rejected with the rule's message.
type ValidationService struct {
	engine *formula.Engine
}

// NewValidationService creates a new ValidationService
func NewValidationService(engine *formula.Engine) *ValidationService {
	return &ValidationService{engine: engine}
}

// ValidateRecord runs every active rule against the full record shape. For
// updates the caller merges the patch onto the stored record first, so rules
// see post-update values. All failing rules are collected into one error.
func (s *ValidationService) ValidateRecord(object *models.ObjectDef, record models.SObject) error {
	var failures []string
	for _, rule := range object.ValidationRules {
		if !rule.Active {
			continue
		}
		failed, err := s.engine.EvaluateBool(rule.Formula, record)
		if err != nil {
			// A rule that cannot be evaluated must not block writes. Log and
			// move on; RegisterObject already rejects unparseable formulas,
			// so this covers runtime type problems only.
			log.Printf("validation rule '%s' on %s skipped: %v", rule.Name, object.APIName, err)
			continue
		}
		if failed {
			msg := rule.ErrorMessage
			if msg == "" {
				msg = "validation rule '" + rule.Name + "' failed"
			}
			failures = append(failures, msg)
		}
	}
	if len(failures) > 0 {
		return apperrors.NewValidationErrors(failures)
	}
	return nil
}

// ValidateRequired checks required fields are present and non-empty on create
func (s *ValidationService) ValidateRequired(object *models.ObjectDef, record models.SObject) error {
	for _, field := range object.Fields {
		if !field.Required {
			continue
		}
		value, ok := record[field.APIName]
		if !ok || value == nil || value == "" {
			return apperrors.NewValidationError(field.APIName, "required field is missing")
		}
	}
	return nil
}

// ValidateFieldTypes checks set values against the field's declared type:
// picklist values must come from the value set, numeric fields must carry
// numbers (numeric strings coerce) and checkboxes booleans
func (s *ValidationService) ValidateFieldTypes(object *models.ObjectDef, record models.SObject) error {
	for _, field := range object.Fields {
		raw, ok := record[field.APIName]
		if !ok || raw == nil || raw == "" {
			continue
		}
		switch {
		case field.Type == constants.FieldTypePicklist && len(field.Values) > 0:
			text, isText := raw.(string)
			if !isText || !picklistContains(field.Values, text) {
				return apperrors.NewValidationError(field.APIName,
					fmt.Sprintf("'%v' is not a valid value for picklist %s", raw, field.APIName))
			}
		case field.Type.IsNumeric():
			if _, numeric := toFloat(raw); !numeric {
				return apperrors.NewValidationError(field.APIName, "value must be a number")
			}
		case field.Type == constants.FieldTypeCheckbox:
			if _, isBool := raw.(bool); !isBool {
				return apperrors.NewValidationError(field.APIName, "value must be true or false")
			}
		}
	}
	return nil
}

func picklistContains(values []string, candidate string) bool {
	for _, v := range values {
		if v == candidate {
			return true
		}
	}
	return false
}
