package services

import (
	"context"
	"sync"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
	"github.com/openforce/backend/pkg/formula"
	"github.com/openforce/backend/pkg/ids"
	"github.com/openforce/backend/pkg/query"
)

// fakeStore is an in-memory RecordStore for service tests. Select ignores the
// SQL filter and returns every record of the object, which suits tests that
// exercise the in-memory post-processing paths or only count calls.
type fakeStore struct {
	mu          sync.Mutex
	records     map[string]map[string]models.SObject
	selectCalls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:     make(map[string]map[string]models.SObject),
		selectCalls: make(map[string]int),
	}
}

func (f *fakeStore) seed(object string, record models.SObject) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records[object] == nil {
		f.records[object] = make(map[string]models.SObject)
	}
	f.records[object][record.GetString(constants.FieldID)] = record.Clone()
}

func (f *fakeStore) selectCount(object string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selectCalls[object]
}

func (f *fakeStore) GetByID(ctx context.Context, object, id string) (models.SObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[object][id]
	if !ok {
		return nil, nil
	}
	return record.Clone(), nil
}

func (f *fakeStore) GetAll(ctx context.Context, object string) ([]models.SObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allLocked(object), nil
}

func (f *fakeStore) Create(ctx context.Context, object string, record models.SObject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records[object] == nil {
		f.records[object] = make(map[string]models.SObject)
	}
	f.records[object][record.GetString(constants.FieldID)] = record.Clone()
	return nil
}

func (f *fakeStore) Update(ctx context.Context, object, id string, record models.SObject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[object][id] = record.Clone()
	return nil
}

func (f *fakeStore) Remove(ctx context.Context, object, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records[object], id)
	return nil
}

func (f *fakeStore) Select(ctx context.Context, object string, q query.QueryResult) ([]models.SObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectCalls[object]++
	return f.allLocked(object), nil
}

func (f *fakeStore) SelectRows(ctx context.Context, q query.QueryResult) ([]models.SObject, error) {
	return nil, nil
}

func (f *fakeStore) Count(ctx context.Context, q query.QueryResult) (int, error) {
	return 0, nil
}

func (f *fakeStore) allLocked(object string) []models.SObject {
	out := make([]models.SObject, 0, len(f.records[object]))
	for _, record := range f.records[object] {
		out = append(out, record.Clone())
	}
	return out
}

// testSchema registers the standard test objects: Account with a Contacts
// child relationship and an Opportunity with validation rules
func testSchema() *MetadataService {
	metadata := NewMetadataService(ids.NewGenerator(), formula.NewEngine())

	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(metadata.RegisterObject(models.ObjectDef{
		APIName:   "Account",
		Label:     "Account",
		KeyPrefix: "001",
		Fields: []models.FieldDef{
			{APIName: "Name", Label: "Name", Type: constants.FieldTypeText, Required: true},
			{APIName: "Industry", Label: "Industry", Type: constants.FieldTypePicklist, Values: []string{"Tech", "Finance", "Retail"}},
			{APIName: "AnnualRevenue", Label: "Annual Revenue", Type: constants.FieldTypeCurrency},
		},
	}))

	must(metadata.RegisterObject(models.ObjectDef{
		APIName:   "Contact",
		Label:     "Contact",
		KeyPrefix: "003",
		Fields: []models.FieldDef{
			{APIName: "LastName", Label: "Last Name", Type: constants.FieldTypeText, Required: true},
			{APIName: "Email", Label: "Email", Type: constants.FieldTypeEmail},
			{APIName: "AccountId", Label: "Account", Type: constants.FieldTypeLookup, ReferenceTo: "Account", RelationshipName: "Account"},
		},
	}))

	must(metadata.RegisterObject(models.ObjectDef{
		APIName:   "Opportunity",
		Label:     "Opportunity",
		KeyPrefix: "006",
		Fields: []models.FieldDef{
			{APIName: "Name", Label: "Name", Type: constants.FieldTypeText, Required: true},
			{APIName: "Amount", Label: "Amount", Type: constants.FieldTypeCurrency},
			{APIName: "Stage", Label: "Stage", Type: constants.FieldTypePicklist, Values: []string{"Prospecting", "Negotiation", "Closed Won", "Closed Lost"}},
			{APIName: "CloseDate", Label: "Close Date", Type: constants.FieldTypeDate},
			{APIName: "AccountId", Label: "Account", Type: constants.FieldTypeLookup, ReferenceTo: "Account", RelationshipName: "Account"},
		},
		ValidationRules: []models.ValidationRule{
			{
				Name:         "closed_won_needs_amount",
				Active:       true,
				Formula:      "ISPICKVAL(Stage, 'Closed Won') && ISBLANK(Amount)",
				ErrorMessage: "A closed-won opportunity needs an amount",
			},
		},
	}))

	return metadata
}

// testPolicies seeds an admin with full access and a restricted user whose
// profile denies Opportunity reads and hides Contact.Email
func testPolicies() *PolicyStore {
	policies := NewPolicyStore()

	policies.PutProfile(models.Profile{
		APIName: constants.ProfileSystemAdmin,
		ObjectPermissions: []models.ObjectPermission{
			{Object: constants.WildcardObject, AllowCreate: true, AllowRead: true, AllowEdit: true, AllowDelete: true},
		},
	})

	policies.PutProfile(models.Profile{
		APIName: "Sales Rep",
		ObjectPermissions: []models.ObjectPermission{
			{Object: "Account", AllowCreate: true, AllowRead: true, AllowEdit: true},
			{Object: "Contact", AllowRead: true},
		},
		FieldLevelSecurity: []models.FieldLevelSecurity{
			{
				Object: "Contact",
				Fields: []models.FieldPermission{
					{Field: "Email", Visible: false, ReadOnly: true},
				},
			},
		},
	})

	policies.PutUser(models.User{Email: "admin@example.com", Name: "Admin", Profile: constants.ProfileSystemAdmin})
	policies.PutUser(models.User{Email: "rep@example.com", Name: "Rep", Profile: "Sales Rep"})
	return policies
}

func adminUser() *models.User {
	return &models.User{Email: "admin@example.com", Profile: constants.ProfileSystemAdmin}
}

func repUser() *models.User {
	return &models.User{Email: "rep@example.com", Profile: "Sales Rep"}
}
