package gatt

import (
	"github.com/pkg/errors"
	"tinygo.org/x/bluetooth"
)

// characteristicAdapter wraps a bluetooth.DeviceCharacteristic (the
// central-side handle DiscoverCharacteristics returns) so it satisfies
// Characteristic. WriteWithResponse maps onto the DeviceCharacteristic's
// Write method and EnableNotifications passes straight through; the adapter
// exists so the rest of the client depends only on the
// gatt.Characteristic interface and can be driven by a fake in tests.
type characteristicAdapter struct {
	c bluetooth.DeviceCharacteristic
}

func (a characteristicAdapter) WriteWithResponse(data []byte) (int, error) {
	return a.c.Write(data)
}

func (a characteristicAdapter) EnableNotifications(callback func(value []byte)) error {
	if callback == nil {
		return a.c.EnableNotifications(nil)
	}
	return a.c.EnableNotifications(func(buf []byte) {
		callback(buf)
	})
}

// DiscoverProfile discovers the OTA service on device and resolves its four
// characteristics, following the same DiscoverServices/DiscoverCharacteristics
// sequence as dfuclient's connection setup.
func DiscoverProfile(device bluetooth.Device) (Profile, error) {
	services, err := device.DiscoverServices([]bluetooth.UUID{ServiceUUID})
	if err != nil {
		return Profile{}, errors.Wrap(err, "failed to discover OTA service")
	}
	if len(services) == 0 {
		return Profile{}, errors.New("OTA service not advertised by device")
	}
	service := services[0]

	chars, err := service.DiscoverCharacteristics([]bluetooth.UUID{
		WriteUUID, ProgressUUID, CommandUUID, CustomerUUID,
	})
	if err != nil {
		return Profile{}, errors.Wrap(err, "failed to discover OTA characteristics")
	}

	var profile Profile
	for _, c := range chars {
		switch c.UUID() {
		case WriteUUID:
			profile.Write = characteristicAdapter{c}
		case ProgressUUID:
			profile.Notify = characteristicAdapter{c}
		case CommandUUID:
			profile.Command = characteristicAdapter{c}
		case CustomerUUID:
			profile.Customer = characteristicAdapter{c}
		}
	}
	return profile, nil
}

// deviceDisconnectObserver adapts a *bluetooth.Adapter + bluetooth.Device
// pair to DisconnectObserver by filtering the adapter-wide connect handler
// down to the one device the session cares about.
type deviceDisconnectObserver struct {
	adapter *bluetooth.Adapter
	device  bluetooth.Device
}

// NewDisconnectObserver returns a DisconnectObserver for device, scoped
// through adapter's connection-state callback.
func NewDisconnectObserver(adapter *bluetooth.Adapter, device bluetooth.Device) DisconnectObserver {
	return deviceDisconnectObserver{adapter: adapter, device: device}
}

func (o deviceDisconnectObserver) OnDisconnect(callback func()) {
	o.adapter.SetConnectHandler(func(dev bluetooth.Device, connected bool) {
		if connected || dev.Address != o.device.Address {
			return
		}
		callback()
	})
}
