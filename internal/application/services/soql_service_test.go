package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openforce/backend/internal/domain/models"
	apperrors "github.com/openforce/backend/pkg/errors"
)

func newSOQLFixture() (*SOQLService, *fakeStore, *QueryLocatorService) {
	schema := testSchema()
	store := newFakeStore()
	permissions := NewPermissionService(testPolicies())
	locators := NewQueryLocatorService()
	return NewSOQLService(schema, store, permissions, locators), store, locators
}

func seedAccountsAndContacts(store *fakeStore) {
	store.seed("Account", models.SObject{"Id": "001AAA", "Name": "Acme", "Industry": "Tech", "AnnualRevenue": 5000.0})
	store.seed("Account", models.SObject{"Id": "001BBB", "Name": "Globex", "Industry": "Finance", "AnnualRevenue": 900.0})
	store.seed("Contact", models.SObject{"Id": "003AAA", "LastName": "Reed", "Email": "reed@acme.test", "AccountId": "001AAA"})
	store.seed("Contact", models.SObject{"Id": "003BBB", "LastName": "Stone", "Email": "stone@globex.test", "AccountId": "001BBB"})
	store.seed("Contact", models.SObject{"Id": "003CCC", "LastName": "Orphan", "Email": "", "AccountId": ""})
}

func TestRunQueryMalformedSyntax(t *testing.T) {
	svc, _, _ := newSOQLFixture()

	_, err := svc.RunQuery(context.Background(), adminUser(), "SELECT FROM Account", models.QueryOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsParse(err))
	assert.Equal(t, "MALFORMED_QUERY", apperrors.GetErrorCode(err))
}

func TestRunQueryUnknownFieldIsMalformed(t *testing.T) {
	svc, _, _ := newSOQLFixture()

	_, err := svc.RunQuery(context.Background(), adminUser(), "SELECT Id, Bogus FROM Account", models.QueryOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsParse(err))
}

func TestRunQueryUnknownObjectIsMalformed(t *testing.T) {
	svc, _, _ := newSOQLFixture()

	_, err := svc.RunQuery(context.Background(), adminUser(), "SELECT Id FROM Widget", models.QueryOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsParse(err))
}

func TestRunQueryPermissionDenied(t *testing.T) {
	svc, _, _ := newSOQLFixture()

	// The rep profile has no Opportunity grant at all
	_, err := svc.RunQuery(context.Background(), repUser(), "SELECT Id FROM Opportunity", models.QueryOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
	assert.Equal(t, "INSUFFICIENT_ACCESS", apperrors.GetErrorCode(err))
}

func TestRunQueryDeniedParentBlocksRelationshipQuery(t *testing.T) {
	schema := testSchema()
	store := newFakeStore()
	policies := NewPolicyStore()
	policies.PutProfile(models.Profile{
		APIName: "Contacts Only",
		ObjectPermissions: []models.ObjectPermission{
			{Object: "Contact", AllowRead: true},
		},
	})
	svc := NewSOQLService(schema, store, NewPermissionService(policies), NewQueryLocatorService())

	user := &models.User{Email: "x@example.com", Profile: "Contacts Only"}
	_, err := svc.RunQuery(context.Background(), user, "SELECT Id, Account.Name FROM Contact", models.QueryOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestRunQueryRelationshipHydration(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	seedAccountsAndContacts(store)

	result, err := svc.RunQuery(context.Background(), adminUser(),
		"SELECT Id, LastName, Account.Name FROM Contact WHERE Account.Industry = 'Tech'", models.QueryOptions{})
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	record := result.Records[0]
	assert.Equal(t, "003AAA", record.GetString("Id"))
	assert.Equal(t, "Reed", record.GetString("LastName"))
	parent, ok := record["Account"].(models.SObject)
	require.True(t, ok)
	assert.Equal(t, "Acme", parent.GetString("Name"))
}

func TestRunQueryBrokenLookupDoesNotMatch(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	seedAccountsAndContacts(store)
	store.seed("Contact", models.SObject{"Id": "003DDD", "LastName": "Ghost", "AccountId": "001GONE"})

	result, err := svc.RunQuery(context.Background(), adminUser(),
		"SELECT Id FROM Contact WHERE Account.Industry != null", models.QueryOptions{})
	require.NoError(t, err)

	for _, record := range result.Records {
		assert.NotEqual(t, "003DDD", record.GetString("Id"))
		assert.NotEqual(t, "003CCC", record.GetString("Id"))
	}
	assert.Equal(t, 2, result.TotalSize)
}

func TestRunQueryChildSubquery(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	seedAccountsAndContacts(store)

	result, err := svc.RunQuery(context.Background(), adminUser(),
		"SELECT Id, Name, (SELECT Id, LastName FROM Account) FROM Account", models.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	for _, record := range result.Records {
		if record.GetString("Name") != "Acme" {
			continue
		}
		nested, ok := record["Account"].(*models.QueryResult)
		require.True(t, ok, "expected nested child result")
		assert.Equal(t, 1, nested.TotalSize)
		assert.Equal(t, "Reed", nested.Records[0].GetString("LastName"))
	}
}

func TestRunQueryChildSubqueryEmptyGroup(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	seedAccountsAndContacts(store)
	store.seed("Account", models.SObject{"Id": "001CCC", "Name": "Initech", "Industry": "Tech"})

	result, err := svc.RunQuery(context.Background(), adminUser(),
		"SELECT Id, Name, (SELECT Id FROM Account) FROM Account", models.QueryOptions{})
	require.NoError(t, err)

	// A parent with no children still carries an empty result, never null
	for _, record := range result.Records {
		if record.GetString("Name") != "Initech" {
			continue
		}
		nested, ok := record["Account"].(*models.QueryResult)
		require.True(t, ok, "childless parent must carry a nested result")
		assert.Equal(t, 0, nested.TotalSize)
		assert.True(t, nested.Done)
		assert.NotNil(t, nested.Records)
		assert.Empty(t, nested.Records)
	}
}

func TestRunQuerySubqueryExecutesOnce(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	seedAccountsAndContacts(store)

	_, err := svc.RunQuery(context.Background(), adminUser(),
		"SELECT Id FROM Account WHERE Id IN (SELECT AccountId FROM Contact) OR Id IN (SELECT AccountId FROM Contact)",
		models.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, store.selectCount("Contact"), "identical IN-subqueries must share one execution")
}

func TestRunQueryAggregateInSubqueryRejected(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	seedAccountsAndContacts(store)

	// An IN subquery must project a single plain field
	_, err := svc.RunQuery(context.Background(), adminUser(),
		"SELECT Id FROM Account WHERE Id IN (SELECT MAX(AccountId) FROM Contact)", models.QueryOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsParse(err))
}

func TestRunQueryAggregateHiddenFieldDenied(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	seedAccountsAndContacts(store)

	// Email is invisible to the rep profile; grouping on it would leak its
	// values through the aggregate rows
	_, err := svc.RunQuery(context.Background(), repUser(),
		"SELECT Email, COUNT(Id) FROM Contact GROUP BY Email", models.QueryOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))

	// Aggregating over the hidden field is denied the same way
	_, err = svc.RunQuery(context.Background(), repUser(),
		"SELECT LastName, COUNT(Email) FROM Contact GROUP BY LastName", models.QueryOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestRunQueryWhereRelationshipRequiresParentRead(t *testing.T) {
	schema := testSchema()
	store := newFakeStore()
	seedAccountsAndContacts(store)
	policies := NewPolicyStore()
	policies.PutProfile(models.Profile{
		APIName: "Contacts Only",
		ObjectPermissions: []models.ObjectPermission{
			{Object: "Contact", AllowRead: true},
		},
	})
	svc := NewSOQLService(schema, store, NewPermissionService(policies), NewQueryLocatorService())

	// Filtering on a parent field reads the parent object, so the grant
	// check covers the WHERE tree too
	user := &models.User{Email: "x@example.com", Profile: "Contacts Only"}
	_, err := svc.RunQuery(context.Background(), user,
		"SELECT Id FROM Contact WHERE Account.Industry = 'Tech'", models.QueryOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestRunQueryFLSStripsFields(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	seedAccountsAndContacts(store)

	result, err := svc.RunQuery(context.Background(), repUser(),
		"SELECT Id, LastName, Email FROM Contact", models.QueryOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Records)

	for _, record := range result.Records {
		_, hasEmail := record["Email"]
		assert.False(t, hasEmail, "Email is invisible to the rep profile")
		assert.NotEmpty(t, record.GetString("Id"))
	}
}

func TestRunQueryPagination(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	for i := 0; i < 450; i++ {
		store.seed("Account", models.SObject{"Id": fmt.Sprintf("001%06d", i), "Name": fmt.Sprintf("A%d", i)})
	}

	first, err := svc.RunQuery(context.Background(), adminUser(),
		"SELECT Id, Name FROM Account", models.QueryOptions{BatchSize: 200})
	require.NoError(t, err)
	assert.Equal(t, 450, first.TotalSize)
	assert.False(t, first.Done)
	assert.Len(t, first.Records, 200)
	require.NotEmpty(t, first.NextRecordsURL)

	locator := lastPathSegment(first.NextRecordsURL)
	second, err := svc.QueryMore(context.Background(), adminUser(), locator)
	require.NoError(t, err)
	assert.False(t, second.Done)
	assert.Len(t, second.Records, 200)

	// A consumed locator is gone
	_, err = svc.QueryMore(context.Background(), adminUser(), locator)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidLocator(err))

	third, err := svc.QueryMore(context.Background(), adminUser(), lastPathSegment(second.NextRecordsURL))
	require.NoError(t, err)
	assert.True(t, third.Done)
	assert.Len(t, third.Records, 50)
	assert.Empty(t, third.NextRecordsURL)
}

func TestRunQueryLocatorBoundToUser(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	for i := 0; i < 300; i++ {
		store.seed("Account", models.SObject{"Id": fmt.Sprintf("001%06d", i), "Name": "A"})
	}

	first, err := svc.RunQuery(context.Background(), adminUser(),
		"SELECT Id FROM Account", models.QueryOptions{BatchSize: 200})
	require.NoError(t, err)
	require.NotEmpty(t, first.NextRecordsURL)

	_, err = svc.QueryMore(context.Background(), repUser(), lastPathSegment(first.NextRecordsURL))
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidLocator(err))
}

func TestRunQueryBatchSizeClamped(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	for i := 0; i < 250; i++ {
		store.seed("Account", models.SObject{"Id": fmt.Sprintf("001%06d", i), "Name": "A"})
	}

	// Requested batch below the floor is raised to 200
	result, err := svc.RunQuery(context.Background(), adminUser(),
		"SELECT Id FROM Account", models.QueryOptions{BatchSize: 50})
	require.NoError(t, err)
	assert.Len(t, result.Records, 200)
}

func TestRunQueryOrderAndWindowInMemory(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	seedAccountsAndContacts(store)

	// The relationship filter forces the post-processing path, so ordering
	// and LIMIT apply after the in-memory filter
	result, err := svc.RunQuery(context.Background(), adminUser(),
		"SELECT Id, LastName FROM Contact WHERE Account.Name != null ORDER BY LastName DESC LIMIT 1",
		models.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Stone", result.Records[0].GetString("LastName"))
}

func TestRunQueryAggregateFallsBackInMemory(t *testing.T) {
	svc, store, _ := newSOQLFixture()
	seedAccountsAndContacts(store)
	store.seed("Opportunity", models.SObject{"Id": "006AAA", "Name": "Big", "Stage": "Negotiation", "Amount": 100.0, "AccountId": "001AAA"})
	store.seed("Opportunity", models.SObject{"Id": "006BBB", "Name": "Small", "Stage": "Negotiation", "Amount": 50.0, "AccountId": "001AAA"})
	store.seed("Opportunity", models.SObject{"Id": "006CCC", "Name": "Other", "Stage": "Closed Won", "Amount": 999.0, "AccountId": "001BBB"})

	// The relationship filter cannot be pushed down, so grouping and SUM run
	// in memory over the filtered rows
	result, err := svc.RunQuery(context.Background(), adminUser(),
		"SELECT Stage, SUM(Amount) FROM Opportunity WHERE Account.Industry = 'Tech' GROUP BY Stage",
		models.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Negotiation", result.Records[0].GetString("Stage"))
	assert.Equal(t, 150.0, result.Records[0]["sum_Amount"])
}

func lastPathSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
