package registry

// Service is the interface for all plug-in services. Start acquires the
// service's platform resources and Stop releases them.
type Service interface {
	Start() error
	Stop() error
}
