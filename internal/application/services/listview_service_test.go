package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openforce/backend/internal/domain/models"
	apperrors "github.com/openforce/backend/pkg/errors"
)

func newListViewFixture() (*ListViewService, *fakeStore) {
	schema := testSchema()
	store := newFakeStore()
	svc := NewListViewService(schema, store, NewPermissionService(testPolicies()))
	return svc, store
}

func seedListViewAccounts(store *fakeStore) {
	store.seed("Account", models.SObject{"Id": "001AAA", "Name": "Acme", "Industry": "Tech"})
	store.seed("Account", models.SObject{"Id": "001BBB", "Name": "Globex", "Industry": "Finance"})
	store.seed("Account", models.SObject{"Id": "001CCC", "Name": "Initech", "Industry": "Tech"})
}

func TestListViewPushDownFilter(t *testing.T) {
	svc, store := newListViewFixture()
	seedListViewAccounts(store)

	// A walker-expressible filter goes to SQL; the fake store returns
	// everything, so only absence of error is asserted here
	records, err := svc.Run(context.Background(), adminUser(), "Account", `Industry == "Tech"`, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestListViewInMemoryFallback(t *testing.T) {
	svc, store := newListViewFixture()
	seedListViewAccounts(store)

	// The walker cannot express membership tests, so the filter runs in memory
	records, err := svc.Run(context.Background(), adminUser(), "Account", `Industry in ["Tech"]`, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, "Tech", record.GetString("Industry"))
	}
}

func TestListViewInMemoryLimit(t *testing.T) {
	svc, store := newListViewFixture()
	seedListViewAccounts(store)

	records, err := svc.Run(context.Background(), adminUser(), "Account", `Industry in ["Tech", "Finance"]`, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestListViewUnknownField(t *testing.T) {
	svc, store := newListViewFixture()
	seedListViewAccounts(store)

	_, err := svc.Run(context.Background(), adminUser(), "Account", `Bogus == "x"`, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsParse(err))
}

func TestListViewUnknownObject(t *testing.T) {
	svc, _ := newListViewFixture()

	_, err := svc.Run(context.Background(), adminUser(), "Widget", "", 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListViewPermissionGate(t *testing.T) {
	svc, _ := newListViewFixture()

	_, err := svc.Run(context.Background(), repUser(), "Opportunity", "", 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestListViewAppliesFLS(t *testing.T) {
	svc, store := newListViewFixture()
	store.seed("Contact", models.SObject{"Id": "003AAA", "LastName": "Reed", "Email": "reed@acme.test"})

	records, err := svc.Run(context.Background(), repUser(), "Contact", "", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	_, hasEmail := records[0]["Email"]
	assert.False(t, hasEmail)
}
