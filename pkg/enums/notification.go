package enums

// NotificationType categorises in-app notifications.
type NotificationType string

const (
	NotificationTypeOrderPlaced    NotificationType = "order_placed"
	NotificationTypeOrderUpdated   NotificationType = "order_updated"
	NotificationTypePaymentPending NotificationType = "payment_pending"
	NotificationTypePaymentFailed  NotificationType = "payment_failed"
	NotificationTypeMessage        NotificationType = "message"
	NotificationTypeSystem         NotificationType = "system"
)

var notificationTypes = members[NotificationType]{
	NotificationTypeOrderPlaced,
	NotificationTypeOrderUpdated,
	NotificationTypePaymentPending,
	NotificationTypePaymentFailed,
	NotificationTypeMessage,
	NotificationTypeSystem,
}

func (n NotificationType) String() string { return string(n) }

func (n NotificationType) IsValid() bool { return notificationTypes.has(n) }

func ParseNotificationType(value string) (NotificationType, error) {
	return notificationTypes.parse("notification type", value, nil)
}
