package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/openforce/backend/internal/application/services"
	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
)

// TableEnsurer creates the storage table backing an object
type TableEnsurer interface {
	EnsureTable(ctx context.Context, object string) error
}

// StandardObjects returns the object definitions every instance starts with
func StandardObjects() []models.ObjectDef {
	return []models.ObjectDef{
		{
			APIName:   "Account",
			Label:     "Account",
			KeyPrefix: "001",
			Fields: []models.FieldDef{
				{APIName: "Name", Label: "Account Name", Type: constants.FieldTypeText, Required: true},
				{APIName: "Industry", Label: "Industry", Type: constants.FieldTypePicklist,
					Values: []string{"Agriculture", "Banking", "Consulting", "Education", "Energy", "Finance", "Healthcare", "Manufacturing", "Media", "Retail", "Technology", "Other"}},
				{APIName: "AnnualRevenue", Label: "Annual Revenue", Type: constants.FieldTypeCurrency},
				{APIName: "Website", Label: "Website", Type: constants.FieldTypeUrl},
				{APIName: "Phone", Label: "Phone", Type: constants.FieldTypePhone},
				{APIName: "NumberOfEmployees", Label: "Employees", Type: constants.FieldTypeNumber},
				{APIName: "BillingCity", Label: "Billing City", Type: constants.FieldTypeText},
				{APIName: "BillingCountry", Label: "Billing Country", Type: constants.FieldTypeText},
			},
		},
		{
			APIName:   "Contact",
			Label:     "Contact",
			KeyPrefix: "003",
			Fields: []models.FieldDef{
				{APIName: "FirstName", Label: "First Name", Type: constants.FieldTypeText},
				{APIName: "LastName", Label: "Last Name", Type: constants.FieldTypeText, Required: true},
				{APIName: "Email", Label: "Email", Type: constants.FieldTypeEmail},
				{APIName: "Phone", Label: "Phone", Type: constants.FieldTypePhone},
				{APIName: "Title", Label: "Title", Type: constants.FieldTypeText},
				{APIName: "AccountId", Label: "Account", Type: constants.FieldTypeLookup,
					ReferenceTo: "Account", RelationshipName: "Account"},
			},
		},
		{
			APIName:   "Opportunity",
			Label:     "Opportunity",
			KeyPrefix: "006",
			Fields: []models.FieldDef{
				{APIName: "Name", Label: "Opportunity Name", Type: constants.FieldTypeText, Required: true},
				{APIName: "Amount", Label: "Amount", Type: constants.FieldTypeCurrency},
				{APIName: "StageName", Label: "Stage", Type: constants.FieldTypePicklist, Required: true,
					Values: []string{"Prospecting", "Qualification", "Proposal", "Negotiation", "Closed Won", "Closed Lost"}},
				{APIName: "CloseDate", Label: "Close Date", Type: constants.FieldTypeDate, Required: true},
				{APIName: "Probability", Label: "Probability (%)", Type: constants.FieldTypeNumber},
				{APIName: "AccountId", Label: "Account", Type: constants.FieldTypeLookup,
					ReferenceTo: "Account", RelationshipName: "Account"},
			},
			ValidationRules: []models.ValidationRule{
				{
					Name:         "closed_won_requires_amount",
					Active:       true,
					Formula:      "ISPICKVAL(StageName, 'Closed Won') && ISBLANK(Amount)",
					ErrorMessage: "A closed-won opportunity must have an amount",
				},
				{
					Name:         "probability_range",
					Active:       true,
					Formula:      "NOT(ISBLANK(Probability)) && ((Probability < 0) || (Probability > 100))",
					ErrorMessage: "Probability must be between 0 and 100",
				},
			},
		},
		{
			APIName:   "Lead",
			Label:     "Lead",
			KeyPrefix: "00Q",
			Fields: []models.FieldDef{
				{APIName: "FirstName", Label: "First Name", Type: constants.FieldTypeText},
				{APIName: "LastName", Label: "Last Name", Type: constants.FieldTypeText, Required: true},
				{APIName: "Company", Label: "Company", Type: constants.FieldTypeText, Required: true},
				{APIName: "Email", Label: "Email", Type: constants.FieldTypeEmail},
				{APIName: "Phone", Label: "Phone", Type: constants.FieldTypePhone},
				{APIName: "Status", Label: "Lead Status", Type: constants.FieldTypePicklist,
					Values: []string{"Open", "Working", "Qualified", "Unqualified"}},
			},
		},
	}
}

// InitializeSchema registers the standard objects and creates their tables
func InitializeSchema(ctx context.Context, metadata *services.MetadataService, tables TableEnsurer) error {
	log.Println("Initializing standard objects...")
	for _, def := range StandardObjects() {
		if err := metadata.RegisterObject(def); err != nil {
			return fmt.Errorf("register %s: %w", def.APIName, err)
		}
		if err := tables.EnsureTable(ctx, def.APIName); err != nil {
			return fmt.Errorf("ensure table for %s: %w", def.APIName, err)
		}
	}
	log.Printf("Registered %d standard objects", len(StandardObjects()))
	return nil
}
