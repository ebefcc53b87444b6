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

// NewNopFactory returns a Factory whose counters discard everything, for when metrics are disabled.
func NewNopFactory() Factory {
	return nopFactory{}
}

type nopFactory struct{}

func (nopFactory) CreateCounter(string, string) (Counter, error) {
	return nopCounter{}, nil
}

func (nopFactory) Start() error {
	return nil
}

func (nopFactory) Stop() error {
	return nil
}

type nopCounter struct{}

func (nopCounter) Inc() {}

func (nopCounter) Add(float64) {}
