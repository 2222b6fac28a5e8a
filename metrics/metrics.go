// Package metrics defines the counters a scan reports. The Prometheus implementation lives in the
// prometheus sub package.
package metrics

type Counter interface {
	Inc()
	Add(delta float64)
}

type Factory interface {
	CreateCounter(name string, description string) (Counter, error)

	Start() error

	Stop() error
}

// NewNoopFactory returns a factory whose counters discard everything.
func NewNoopFactory() Factory {
	return noopFactory{}
}

type noopFactory struct{}

func (noopFactory) CreateCounter(string, string) (Counter, error) {
	return noopCounter{}, nil
}

func (noopFactory) Start() error {
	return nil
}

func (noopFactory) Stop() error {
	return nil
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func (noopCounter) Add(float64) {}
