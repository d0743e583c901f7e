package bootstrap

import (
	"fmt"
	"log"
	"os"

	"github.com/openforce/backend/internal/application/services"
	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
)

// StandardProfiles returns the built-in profiles. The wildcard entry grants
// System Administrator every permission on every object, current and future.
func StandardProfiles() []models.Profile {
	return []models.Profile{
		{
			APIName: constants.ProfileSystemAdmin,
			Label:   "System Administrator",
			ObjectPermissions: []models.ObjectPermission{
				{Object: constants.WildcardObject, AllowCreate: true, AllowRead: true, AllowEdit: true, AllowDelete: true},
			},
		},
		{
			APIName: constants.ProfileStandardUser,
			Label:   "Standard User",
			ObjectPermissions: []models.ObjectPermission{
				{Object: "Account", AllowCreate: true, AllowRead: true, AllowEdit: true},
				{Object: "Contact", AllowCreate: true, AllowRead: true, AllowEdit: true},
				{Object: "Opportunity", AllowCreate: true, AllowRead: true, AllowEdit: true},
				{Object: "Lead", AllowCreate: true, AllowRead: true, AllowEdit: true, AllowDelete: true},
			},
		},
		{
			APIName: constants.ProfileReadOnly,
			Label:   "Read Only",
			ObjectPermissions: []models.ObjectPermission{
				{Object: "Account", AllowRead: true},
				{Object: "Contact", AllowRead: true},
				{Object: "Opportunity", AllowRead: true},
				{Object: "Lead", AllowRead: true},
			},
		},
	}
}

// InitializeSystemData installs the standard profiles and the initial admin
// user. The admin password comes from ADMIN_PASSWORD; a default is used for
// local development only.
func InitializeSystemData(policies *services.PolicyStore, authSvc *services.AuthService) error {
	log.Println("Initializing profiles and users...")

	for _, profile := range StandardProfiles() {
		policies.PutProfile(profile)
	}

	adminEmail := envOr("ADMIN_EMAIL", "admin@openforce.local")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "ChangeMe123!"
		log.Println("WARNING: ADMIN_PASSWORD not set, using the default development password")
	}

	policies.PutUser(models.User{
		Email:   adminEmail,
		Name:    "System Administrator",
		Profile: constants.ProfileSystemAdmin,
	})
	if err := authSvc.SetPassword(adminEmail, adminPassword); err != nil {
		return fmt.Errorf("set admin password: %w", err)
	}

	log.Printf("Admin user ready: %s", adminEmail)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
