package worker

import (
	"github.com/TronoSfera/Law-sub001/internal/service"
)

// StartNotificationWorker subscribes alert delivery to the event bus.
func StartNotificationWorker(notificationService *service.NotificationService) error {
	if notificationService == nil {
		return nil
	}
	return notificationService.RegisterHandlers()
}
