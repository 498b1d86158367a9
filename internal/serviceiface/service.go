package serviceiface

// Service is anything the app manager can start and stop in sequence.
type Service interface {
	Name() string
	Start() error
	Stop() error
}
