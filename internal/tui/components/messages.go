package components

// NotificationExpiredMsg removes a notification once its lifetime ends.
type NotificationExpiredMsg struct {
	ID int
}
