//go:build !linux

package ble

// Peripheral is a placeholder Stack for platforms where tinygo-org/bluetooth
// has no GATT server. Init always completes with ErrUnsupported.
type Peripheral struct {
	events eventQueue
	conn   handlers
}

// NewPeripheral returns a stack whose initialization always fails.
func NewPeripheral() *Peripheral {
	return &Peripheral{}
}

var _ Stack = (*Peripheral)(nil)

func (p *Peripheral) Init(onComplete func(InitResult)) {
	go onComplete(InitResult{Instance: DefaultInstance, Err: ErrUnsupported})
}

func (p *Peripheral) OnEventsPending(fn func()) { p.events.setSignal(fn) }
func (p *Peripheral) ProcessEvents() { p.events.run() }
func (p *Peripheral) OnConnect(fn func()) { p.conn.setConnect(fn) }
func (p *Peripheral) OnDisconnect(fn func()) { p.conn.setDisconnect(fn) }
func (p *Peripheral) RegisterAttribute(AttributeConfig) (Handle, error) { return 0, ErrUnsupported }
func (p *Peripheral) Notify(Handle, []byte) error { return ErrUnsupported }
func (p *Peripheral) StartAdvertising(AdvertisingConfig) error { return ErrUnsupported }
func (p *Peripheral) Address() (string, error) { return "", ErrUnsupported }
