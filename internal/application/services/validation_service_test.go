package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
	"github.com/openforce/backend/pkg/formula"
)

func opportunityDef() *models.ObjectDef {
	schema := testSchema()
	def, _ := schema.Object("Opportunity")
	return def
}

func TestValidateRecordCollectsAllFailures(t *testing.T) {
	svc := NewValidationService(formula.NewEngine())
	def := &models.ObjectDef{
		APIName: "Opportunity",
		ValidationRules: []models.ValidationRule{
			{Name: "needs_amount", Active: true, Formula: "ISBLANK(Amount)", ErrorMessage: "amount required"},
			{Name: "needs_stage", Active: true, Formula: "ISBLANK(Stage)", ErrorMessage: "stage required"},
		},
	}

	err := svc.ValidateRecord(def, models.SObject{"Name": "Deal"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "amount required")
	assert.Contains(t, err.Error(), "stage required")
}

func TestValidateRecordInactiveRuleSkipped(t *testing.T) {
	svc := NewValidationService(formula.NewEngine())
	def := &models.ObjectDef{
		APIName: "Opportunity",
		ValidationRules: []models.ValidationRule{
			{Name: "dormant", Active: false, Formula: "true", ErrorMessage: "never fires"},
		},
	}

	assert.NoError(t, svc.ValidateRecord(def, models.SObject{}))
}

func TestValidateRecordEvaluationErrorDoesNotBlock(t *testing.T) {
	svc := NewValidationService(formula.NewEngine())
	def := &models.ObjectDef{
		APIName: "Opportunity",
		ValidationRules: []models.ValidationRule{
			// Arithmetic on a text field fails at evaluation time; the rule is
			// skipped rather than blocking the write
			{Name: "broken", Active: true, Formula: "Name + 1 > 0", ErrorMessage: "unreachable"},
		},
	}

	assert.NoError(t, svc.ValidateRecord(def, models.SObject{"Name": "Deal"}))
}

func TestValidateRecordAgainstSchemaRule(t *testing.T) {
	svc := NewValidationService(formula.NewEngine())
	def := opportunityDef()

	err := svc.ValidateRecord(def, models.SObject{"Stage": "Closed Won"})
	require.Error(t, err)

	assert.NoError(t, svc.ValidateRecord(def, models.SObject{"Stage": "Closed Won", "Amount": 100.0}))
	assert.NoError(t, svc.ValidateRecord(def, models.SObject{"Stage": "Prospecting"}))
}

func TestValidateRequired(t *testing.T) {
	svc := NewValidationService(formula.NewEngine())
	schema := testSchema()
	def, _ := schema.Object("Account")

	err := svc.ValidateRequired(def, models.SObject{"Industry": "Tech"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), constants.FieldName)

	err = svc.ValidateRequired(def, models.SObject{"Name": ""})
	require.Error(t, err)

	assert.NoError(t, svc.ValidateRequired(def, models.SObject{"Name": "Acme"}))
}

func TestValidateFieldTypes(t *testing.T) {
	svc := NewValidationService(formula.NewEngine())
	schema := testSchema()
	def, _ := schema.Object("Account")

	tests := []struct {
		name   string
		record models.SObject
		ok     bool
	}{
		{"valid picklist value", models.SObject{"Industry": "Tech"}, true},
		{"unknown picklist value", models.SObject{"Industry": "Piracy"}, false},
		{"non-string picklist value", models.SObject{"Industry": 7.0}, false},
		{"numeric currency", models.SObject{"AnnualRevenue": 5000.0}, true},
		{"numeric string coerces", models.SObject{"AnnualRevenue": "5000"}, true},
		{"non-numeric currency", models.SObject{"AnnualRevenue": "lots"}, false},
		{"unset fields pass", models.SObject{}, true},
		{"empty string passes", models.SObject{"Industry": ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ValidateFieldTypes(def, tt.record)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
			}
		})
	}
}
