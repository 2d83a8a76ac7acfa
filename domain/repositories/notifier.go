package repositories

// Notifier surfaces transient user-visible notices. It is the headless
// counterpart of the UI toast: errors here are informational, never fatal.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}
