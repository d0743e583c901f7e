package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
)

func TestCanAccessWildcardAndExactEntries(t *testing.T) {
	svc := NewPermissionService(testPolicies())

	tests := []struct {
		name      string
		user      *models.User
		object    string
		operation string
		want      bool
	}{
		{"admin wildcard read", adminUser(), "Opportunity", constants.PermRead, true},
		{"admin wildcard delete", adminUser(), "Contact", constants.PermDelete, true},
		{"rep exact account edit", repUser(), "Account", constants.PermEdit, true},
		{"rep account delete denied", repUser(), "Account", constants.PermDelete, false},
		{"rep contact read only", repUser(), "Contact", constants.PermRead, true},
		{"rep contact create denied", repUser(), "Contact", constants.PermCreate, false},
		{"rep no opportunity grant", repUser(), "Opportunity", constants.PermRead, false},
		{"nil user denied", nil, "Account", constants.PermRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.CanAccess(tt.user, tt.object, tt.operation))
		})
	}
}

func TestExactEntryBeatsWildcard(t *testing.T) {
	policies := NewPolicyStore()
	policies.PutProfile(models.Profile{
		APIName: "Mostly Open",
		ObjectPermissions: []models.ObjectPermission{
			{Object: constants.WildcardObject, AllowCreate: true, AllowRead: true, AllowEdit: true, AllowDelete: true},
			{Object: "Opportunity", AllowRead: true},
		},
	})
	svc := NewPermissionService(policies)
	user := &models.User{Email: "x@example.com", Profile: "Mostly Open"}

	// The narrower exact entry wins even though the wildcard grants everything
	assert.True(t, svc.CanAccess(user, "Opportunity", constants.PermRead))
	assert.False(t, svc.CanAccess(user, "Opportunity", constants.PermEdit))
	assert.True(t, svc.CanAccess(user, "Account", constants.PermEdit))
}

func TestUnknownProfileDenied(t *testing.T) {
	svc := NewPermissionService(testPolicies())
	user := &models.User{Email: "ghost@example.com", Profile: "No Such Profile"}

	assert.False(t, svc.CanAccess(user, "Account", constants.PermRead))

	err := svc.CheckAccess(user, "Account", constants.PermRead)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestFieldAccessDenylistOverlay(t *testing.T) {
	svc := NewPermissionService(testPolicies())

	// No FLS entry means fully visible and writable
	access := svc.FieldAccess(repUser(), "Contact", "LastName")
	assert.True(t, access.Visible)
	assert.False(t, access.ReadOnly)

	access = svc.FieldAccess(repUser(), "Contact", "Email")
	assert.False(t, access.Visible)

	// No profile means no field access at all
	access = svc.FieldAccess(nil, "Contact", "LastName")
	assert.False(t, access.Visible)
	assert.True(t, access.ReadOnly)
}

func TestFilterByFLSKeepsID(t *testing.T) {
	svc := NewPermissionService(testPolicies())

	out := svc.FilterByFLS(repUser(), "Contact", models.SObject{
		"Id": "003AAA", "LastName": "Reed", "Email": "reed@acme.test",
	})
	assert.Equal(t, "003AAA", out.GetString("Id"))
	assert.Equal(t, "Reed", out.GetString("LastName"))
	_, hasEmail := out["Email"]
	assert.False(t, hasEmail)
}

func TestRejectReadOnlyWrites(t *testing.T) {
	policies := testPolicies()
	policies.PutProfile(models.Profile{
		APIName: "Limited Editor",
		ObjectPermissions: []models.ObjectPermission{
			{Object: "Account", AllowRead: true, AllowEdit: true},
		},
		FieldLevelSecurity: []models.FieldLevelSecurity{
			{Object: "Account", Fields: []models.FieldPermission{
				{Field: "AnnualRevenue", Visible: true, ReadOnly: true},
			}},
		},
	})
	svc := NewPermissionService(policies)
	user := &models.User{Email: "limited@example.com", Profile: "Limited Editor"}

	require.NoError(t, svc.RejectReadOnlyWrites(user, "Account", models.SObject{"Name": "Acme"}))

	err := svc.RejectReadOnlyWrites(user, "Account", models.SObject{"AnnualRevenue": 100.0})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))

	// System fields fail as validation errors regardless of FLS
	err = svc.RejectReadOnlyWrites(user, "Account", models.SObject{constants.FieldCreatedDate: "2020-01-01"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAccessibleObjects(t *testing.T) {
	svc := NewPermissionService(testPolicies())
	schema := testSchema()

	names := func(defs []models.ObjectDef) []string {
		out := make([]string, 0, len(defs))
		for _, def := range defs {
			out = append(out, def.APIName)
		}
		return out
	}

	admin := names(svc.AccessibleObjects(adminUser(), schema.Objects()))
	assert.Len(t, admin, 3)

	rep := names(svc.AccessibleObjects(repUser(), schema.Objects()))
	assert.ElementsMatch(t, []string{"Account", "Contact"}, rep)
}
