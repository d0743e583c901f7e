package services

import (
	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/internal/domain/ports"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
)

// PermissionService resolves object permissions and field-level security from
// the user's profile. Deny is the default: a user without a profile, or a
// profile without a grant, has no access. Permission sets are carried on the
// user but not merged into the decision.
type PermissionService struct {
	policies ports.PolicyProvider
}

// NewPermissionService creates a new PermissionService
func NewPermissionService(policies ports.PolicyProvider) *PermissionService {
	return &PermissionService{policies: policies}
}

// CanAccess reports whether the user may perform the operation on the object.
// An exact object entry wins; otherwise the wildcard entry applies.
func (s *PermissionService) CanAccess(user *models.User, object, operation string) bool {
	perm := s.objectPermission(user, object)
	if perm == nil {
		return false
	}
	switch operation {
	case constants.PermCreate:
		return perm.AllowCreate
	case constants.PermRead:
		return perm.AllowRead
	case constants.PermEdit:
		return perm.AllowEdit
	case constants.PermDelete:
		return perm.AllowDelete
	}
	return false
}

// CheckAccess is CanAccess that fails with a PermissionError
func (s *PermissionService) CheckAccess(user *models.User, object, operation string) error {
	if !s.CanAccess(user, object, operation) {
		return apperrors.NewPermissionError(operation, object)
	}
	return nil
}

// FieldAccess resolves the FLS decision for one field. FLS is a denylist
// overlay: absence of an entry means fully visible and writable.
func (s *PermissionService) FieldAccess(user *models.User, object, field string) models.FieldAccess {
	profile := s.profileOf(user)
	if profile == nil {
		return models.FieldAccess{Visible: false, ReadOnly: true}
	}
	for _, fls := range profile.FieldLevelSecurity {
		if fls.Object != object {
			continue
		}
		for _, entry := range fls.Fields {
			if entry.Field == field {
				return models.FieldAccess{Visible: entry.Visible, ReadOnly: entry.ReadOnly}
			}
		}
	}
	return models.FieldAccess{Visible: true, ReadOnly: false}
}

// FilterByFLS strips invisible fields from a copy of the record. Id always
// survives; the caller already passed the object-level read gate.
func (s *PermissionService) FilterByFLS(user *models.User, object string, record models.SObject) models.SObject {
	out := make(models.SObject, len(record))
	for field, value := range record {
		if field == constants.FieldID || s.FieldAccess(user, object, field).Visible {
			out[field] = value
		}
	}
	return out
}

// RejectReadOnlyWrites fails when the update touches a read-only or invisible
// field. System fields are server-managed and rejected regardless of FLS.
func (s *PermissionService) RejectReadOnlyWrites(user *models.User, object string, updates models.SObject) error {
	for field := range updates {
		if field == constants.FieldID {
			continue
		}
		if constants.IsSystemField(field) {
			return apperrors.NewValidationError(field, "field is system-managed and not writable")
		}
		access := s.FieldAccess(user, object, field)
		if !access.Visible || access.ReadOnly {
			return apperrors.NewPermissionError("edit field "+field, object)
		}
	}
	return nil
}

// AccessibleObjects lists the objects the user can read, for the describe API
func (s *PermissionService) AccessibleObjects(user *models.User, objects []models.ObjectDef) []models.ObjectDef {
	var out []models.ObjectDef
	for _, def := range objects {
		if s.CanAccess(user, def.APIName, constants.PermRead) {
			out = append(out, def)
		}
	}
	return out
}

func (s *PermissionService) profileOf(user *models.User) *models.Profile {
	if user == nil || user.Profile == "" {
		return nil
	}
	profile, ok := s.policies.Profile(user.Profile)
	if !ok {
		return nil
	}
	return profile
}

func (s *PermissionService) objectPermission(user *models.User, object string) *models.ObjectPermission {
	profile := s.profileOf(user)
	if profile == nil {
		return nil
	}
	var wildcard *models.ObjectPermission
	for i := range profile.ObjectPermissions {
		perm := &profile.ObjectPermissions[i]
		if perm.Object == object {
			return perm
		}
		if perm.Object == constants.WildcardObject {
			wildcard = perm
		}
	}
	return wildcard
}
