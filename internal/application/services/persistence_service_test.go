package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
	"github.com/openforce/backend/pkg/formula"
	"github.com/openforce/backend/pkg/ids"
)

func newPersistenceFixture() (*PersistenceService, *fakeStore) {
	schema := testSchema()
	store := newFakeStore()
	gen := ids.NewGenerator()
	gen.Register("Account", "001")
	gen.Register("Contact", "003")
	gen.Register("Opportunity", "006")
	engine := formula.NewEngine()
	svc := NewPersistenceService(schema, store, NewPermissionService(testPolicies()), NewValidationService(engine), gen)
	return svc, store
}

func TestCreateStampsSystemFields(t *testing.T) {
	svc, store := newPersistenceFixture()
	ctx := context.Background()

	id, err := svc.Create(ctx, adminUser(), "Account", models.SObject{"Name": "Acme"})
	require.NoError(t, err)
	assert.Len(t, id, 18)
	assert.Equal(t, "001", id[:3])

	stored, err := store.GetByID(ctx, "Account", id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Acme", stored.GetString("Name"))
	assert.NotEmpty(t, stored.GetString(constants.FieldCreatedDate))
	assert.Equal(t, "admin@example.com", stored.GetString(constants.FieldCreatedByID))
}

func TestCreateRequiresRequiredFields(t *testing.T) {
	svc, _ := newPersistenceFixture()

	_, err := svc.Create(context.Background(), adminUser(), "Account", models.SObject{"Industry": "Tech"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateRejectsClientSystemFields(t *testing.T) {
	svc, _ := newPersistenceFixture()

	_, err := svc.Create(context.Background(), adminUser(), "Account",
		models.SObject{"Name": "Acme", constants.FieldCreatedDate: "2020-01-01"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreatePermissionGate(t *testing.T) {
	svc, _ := newPersistenceFixture()

	// The rep profile grants read on Contact but not create
	_, err := svc.Create(context.Background(), repUser(), "Contact", models.SObject{"LastName": "Reed"})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestCreateVerifiesLookupTarget(t *testing.T) {
	svc, _ := newPersistenceFixture()

	_, err := svc.Create(context.Background(), adminUser(), "Contact",
		models.SObject{"LastName": "Reed", "AccountId": "001DOESNOTEXIST00"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateRejectsBadPicklistValue(t *testing.T) {
	svc, _ := newPersistenceFixture()

	_, err := svc.Create(context.Background(), adminUser(), "Account",
		models.SObject{"Name": "Acme", "Industry": "Piracy"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestValidationRulePolarity(t *testing.T) {
	svc, _ := newPersistenceFixture()
	ctx := context.Background()

	// A rule formula that evaluates true rejects the write
	_, err := svc.Create(ctx, adminUser(), "Opportunity",
		models.SObject{"Name": "Big Deal", "Stage": "Closed Won"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "closed-won opportunity needs an amount")

	// With the amount set the same rule evaluates false and the write lands
	_, err = svc.Create(ctx, adminUser(), "Opportunity",
		models.SObject{"Name": "Big Deal", "Stage": "Closed Won", "Amount": 50000.0})
	require.NoError(t, err)
}

func TestUpdateValidatesMergedShape(t *testing.T) {
	svc, _ := newPersistenceFixture()
	ctx := context.Background()

	id, err := svc.Create(ctx, adminUser(), "Opportunity",
		models.SObject{"Name": "Deal", "Stage": "Prospecting", "Amount": 100.0})
	require.NoError(t, err)

	// The patch alone would pass; merged with the stored record the rule
	// still sees Amount, so closing without clearing it is fine
	require.NoError(t, svc.Update(ctx, adminUser(), "Opportunity", id, models.SObject{"Stage": "Closed Won"}))

	// Clearing Amount while closing trips the rule on the merged shape
	err = svc.Update(ctx, adminUser(), "Opportunity", id, models.SObject{"Amount": nil})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateMissingRecord(t *testing.T) {
	svc, _ := newPersistenceFixture()

	err := svc.Update(context.Background(), adminUser(), "Account", "001MISSING0000000", models.SObject{"Name": "X"})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteDetachesLookupChildren(t *testing.T) {
	svc, store := newPersistenceFixture()
	ctx := context.Background()

	accountID, err := svc.Create(ctx, adminUser(), "Account", models.SObject{"Name": "Acme"})
	require.NoError(t, err)
	contactID, err := svc.Create(ctx, adminUser(), "Contact",
		models.SObject{"LastName": "Reed", "AccountId": accountID})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, adminUser(), "Account", accountID))

	gone, err := store.GetByID(ctx, "Account", accountID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// The plain lookup was nulled out, not cascaded
	contact, err := store.GetByID(ctx, "Contact", contactID)
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Nil(t, contact["AccountId"])
}

func TestDeleteRestrictedByChildren(t *testing.T) {
	schema := testSchema()
	restrict := models.DeleteConstraint(constants.DeleteRestrict)
	require.NoError(t, schema.RegisterObject(models.ObjectDef{
		APIName:   "Invoice",
		KeyPrefix: "inv",
		Fields: []models.FieldDef{
			{APIName: "AccountId", Type: constants.FieldTypeLookup, ReferenceTo: "Account", DeleteConstraint: &restrict},
		},
	}))
	store := newFakeStore()
	gen := ids.NewGenerator()
	svc := NewPersistenceService(schema, store, NewPermissionService(testPolicies()), NewValidationService(formula.NewEngine()), gen)
	ctx := context.Background()

	accountID, err := svc.Create(ctx, adminUser(), "Account", models.SObject{"Name": "Acme"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, adminUser(), "Invoice", models.SObject{"AccountId": accountID})
	require.NoError(t, err)

	err = svc.Delete(ctx, adminUser(), "Account", accountID)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	still, err := store.GetByID(ctx, "Account", accountID)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestDeleteCascadesMasterDetail(t *testing.T) {
	schema := testSchema()
	require.NoError(t, schema.RegisterObject(models.ObjectDef{
		APIName:   "LineItem",
		KeyPrefix: "li0",
		Fields: []models.FieldDef{
			{APIName: "AccountId", Type: constants.FieldTypeMasterDetail, ReferenceTo: "Account"},
		},
	}))
	store := newFakeStore()
	gen := ids.NewGenerator()
	svc := NewPersistenceService(schema, store, NewPermissionService(testPolicies()), NewValidationService(formula.NewEngine()), gen)
	ctx := context.Background()

	accountID, err := svc.Create(ctx, adminUser(), "Account", models.SObject{"Name": "Acme"})
	require.NoError(t, err)
	itemID, err := svc.Create(ctx, adminUser(), "LineItem", models.SObject{"AccountId": accountID})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, adminUser(), "Account", accountID))

	item, err := store.GetByID(ctx, "LineItem", itemID)
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestGetFiltersFLS(t *testing.T) {
	svc, store := newPersistenceFixture()
	ctx := context.Background()
	store.seed("Contact", models.SObject{"Id": "003AAA", "LastName": "Reed", "Email": "reed@acme.test"})

	record, err := svc.Get(ctx, repUser(), "Contact", "003AAA")
	require.NoError(t, err)
	assert.Equal(t, "Reed", record.GetString("LastName"))
	_, hasEmail := record["Email"]
	assert.False(t, hasEmail)
}
