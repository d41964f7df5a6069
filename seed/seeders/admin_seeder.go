package seeders

import (
	"fmt"

	"github.com/ezfoia/foia_api/model"
	"github.com/ezfoia/foia_api/shared"
	log "github.com/sirupsen/logrus"
)

// AdminSeeder handles seeding admin users
type AdminSeeder struct {
	profiles ProfileStore
}

// NewAdminSeeder creates a new admin seeder
func NewAdminSeeder(profiles ProfileStore) *AdminSeeder {
	return &AdminSeeder{profiles: profiles}
}

// SeedAdmin gives the admin account a profile and the admin role. Granting
// an existing role is a no-op.
func (s *AdminSeeder) SeedAdmin(accounts Accounts) error {
	if accounts.AdminID == "" {
		log.Info("No admin account given, skipping admin seeding")
		return nil
	}

	profile := &model.Profile{
		UserID:             accounts.AdminID,
		FullName:           "EZFOIA Admin",
		Email:              accounts.AdminEmail,
		EmailNotifications: true,
	}
	if err := s.profiles.SaveProfile(profile); err != nil {
		return fmt.Errorf("save admin profile: %w", err)
	}

	if err := s.profiles.GrantRole(accounts.AdminID, shared.RoleAdmin); err != nil {
		return fmt.Errorf("grant admin role: %w", err)
	}

	log.WithField("user_id", accounts.AdminID).Info("Admin role granted")
	return nil
}
