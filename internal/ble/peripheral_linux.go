package ble

import (
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"
)

// Peripheral implements Stack on top of tinygo-org/bluetooth (BlueZ on Linux).
type Peripheral struct {
	adapter *bluetooth.Adapter
	events  eventQueue
	conn    handlers

	// mu protects the attribute table and advertising state.
	mu          sync.Mutex
	chars       []*bluetooth.Characteristic
	adv         *bluetooth.Advertisement
	advertising bool
}

// NewPeripheral creates a Stack backed by the default Bluetooth adapter.
func NewPeripheral() *Peripheral {
	return &Peripheral{adapter: bluetooth.DefaultAdapter}
}

// Compile-time check that Peripheral implements Stack.
var _ Stack = (*Peripheral)(nil)

func (p *Peripheral) Init(onComplete func(InitResult)) {
	// BlueZ reports connection changes on its own goroutine. Queue them so
	// they run wherever ProcessEvents is called.
	p.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		p.events.push(func() { p.conn.fire(connected) })
	})

	go func() {
		err := p.adapter.Enable()
		if err != nil {
			err = fmt.Errorf("ble: enable adapter: %w", err)
		}
		onComplete(InitResult{Instance: DefaultInstance, Err: err})
	}()
}

func (p *Peripheral) OnEventsPending(fn func()) { p.events.setSignal(fn) }

func (p *Peripheral) ProcessEvents() { p.events.run() }

func (p *Peripheral) OnConnect(fn func()) { p.conn.setConnect(fn) }

func (p *Peripheral) OnDisconnect(fn func()) { p.conn.setDisconnect(fn) }

func (p *Peripheral) RegisterAttribute(cfg AttributeConfig) (Handle, error) {
	char := new(bluetooth.Characteristic)
	err := p.adapter.AddService(&bluetooth.Service{
		UUID: bluetooth.New16BitUUID(cfg.ServiceUUID),
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: char,
				UUID:   bluetooth.New16BitUUID(cfg.CharacteristicUUID),
				Value:  cfg.Initial,
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("ble: add service 0x%04X: %w", cfg.ServiceUUID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.chars = append(p.chars, char)
	return Handle(len(p.chars) - 1), nil
}

func (p *Peripheral) Notify(h Handle, value []byte) error {
	p.mu.Lock()
	if int(h) < 0 || int(h) >= len(p.chars) {
		p.mu.Unlock()
		return ErrUnknownHandle
	}
	char := p.chars[h]
	p.mu.Unlock()

	// Write updates the stored value and notifies subscribed centrals.
	if _, err := char.Write(value); err != nil {
		return fmt.Errorf("ble: notify handle %d: %w", h, err)
	}
	return nil
}

func (p *Peripheral) StartAdvertising(cfg AdvertisingConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// The BlueZ backend only accepts one Configure per advertisement, so
	// later calls restart the existing one.
	if p.adv == nil {
		uuids := make([]bluetooth.UUID, 0, len(cfg.ServiceUUIDs))
		for _, u := range cfg.ServiceUUIDs {
			uuids = append(uuids, bluetooth.New16BitUUID(u))
		}
		advType := bluetooth.AdvertisingTypeNonConnInd
		if cfg.Connectable {
			advType = bluetooth.AdvertisingTypeInd
		}

		adv := p.adapter.DefaultAdvertisement()
		if err := adv.Configure(bluetooth.AdvertisementOptions{
			AdvertisementType: advType,
			LocalName:         cfg.LocalName,
			ServiceUUIDs:      uuids,
			Interval:          bluetooth.NewDuration(cfg.Interval),
		}); err != nil {
			return fmt.Errorf("ble: configure advertisement: %w", err)
		}
		p.adv = adv
	}

	if p.advertising {
		if err := p.adv.Stop(); err != nil {
			slog.Debug("[BLE] stop advertising before restart", "error", err)
		}
	}
	if err := p.adv.Start(); err != nil {
		return fmt.Errorf("ble: start advertising: %w", err)
	}
	p.advertising = true
	return nil
}

func (p *Peripheral) Address() (string, error) {
	addr, err := p.adapter.Address()
	if err != nil {
		return "", fmt.Errorf("ble: read address: %w", err)
	}
	return addr.MAC.String(), nil
}
