package services

import (
	"github.com/bytedance/sonic"
	"github.com/ezfoia/foia_api/model"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ActivityRecorder persists activity_logs rows.
type ActivityRecorder interface {
	CreateActivityLog(entry *model.ActivityLog) error
}

// recordActivity writes an audit row. Failures are logged and swallowed; the
// action being audited has already happened.
func recordActivity(store ActivityRecorder, userID, action, description string, metadata map[string]interface{}) {
	if store == nil {
		return
	}

	entry := &model.ActivityLog{
		UserID:      userID,
		Action:      action,
		Description: description,
	}
	if len(metadata) > 0 {
		raw, err := sonic.Marshal(metadata)
		if err != nil {
			log.WithError(err).WithField("action", action).Warn("Failed to encode activity metadata")
		} else {
			entry.Metadata = datatypes.JSON(raw)
		}
	}

	if err := store.CreateActivityLog(entry); err != nil {
		log.WithFields(log.Fields{
			"user_id": userID,
			"action":  action,
			"error":   err.Error(),
		}).Error("Failed to write activity log")
	}
}
