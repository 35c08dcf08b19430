package llmrt

// SetBackendFactory overrides the package's backend construction seam for
// tests that live outside this package (e.g. pkg/pipeline's driver tests,
// which need to drive a full stage sequence against a scripted Backend
// without constructing a real provider client). It returns a restore
// function the caller should defer.
func SetBackendFactory(factory func(Config) (Backend, error)) (restore func()) {
	previous := backendFactory
	backendFactory = factory
	return func() { backendFactory = previous }
}
