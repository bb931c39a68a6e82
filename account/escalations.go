package account

import (
	"industrium/authority"

	"github.com/jinzhu/gorm"
)

// ListEscalationRecipientsFunc is the role-membership collaborator used by
// the task workflow to fan out confirmation requests. Kept as a package
// variable so the workflow stays testable with fakes.
var ListEscalationRecipientsFunc = ListEscalationRecipients

// ListEscalationRecipients all users holding the Manager role. Runs on the
// caller's transaction so the fan-out stays atomic with the status change.
func ListEscalationRecipients(tx *gorm.DB) ([]User, error) {
	var managers []User
	if err := tx.Where(&User{Role: authority.RoleManager}).Find(&managers).Error; err != nil {
		return nil, err
	}
	return managers, nil
}
