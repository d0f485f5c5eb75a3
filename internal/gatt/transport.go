// Package gatt defines the narrow GATT surface the OTA client session needs,
// so that SessionController can run unmodified against a real
// *bluetooth.Adapter connection or against an in-memory fake in tests.
package gatt

// Characteristic is the subset of bluetooth.Characteristic the OTA client
// depends on: a write-with-response call and a notification subscription.
// It mirrors the shape rcaelers-nrf-dfu's BleCentral abstracts over, cut
// down to exactly what the protocol needs.
type Characteristic interface {
	// WriteWithResponse writes data and blocks until the peripheral
	// acknowledges the write at the link layer.
	WriteWithResponse(data []byte) (int, error)

	// EnableNotifications registers callback to be invoked with the value
	// of every notification received on this characteristic. Passing a
	// nil callback disables notifications.
	EnableNotifications(callback func(value []byte)) error
}

// Profile resolves the four characteristics an OTA session needs from spec
// §6. A nil entry means the characteristic was not found during service
// discovery.
type Profile struct {
	// Write is the recv-fw characteristic (0x8020): firmware data packets.
	Write Characteristic
	// Notify is the progress characteristic (0x8021): 1-byte percentage.
	Notify Characteristic
	// Command is the command characteristic (0x8022): start command /
	// start ack.
	Command Characteristic
	// Customer is the customer characteristic (0x8023): reserved,
	// error-only monitoring.
	Customer Characteristic
}

// Complete reports whether all four characteristics were resolved.
func (p Profile) Complete() bool {
	return p.Write != nil && p.Notify != nil && p.Command != nil && p.Customer != nil
}

// DisconnectObserver lets a session learn when the underlying connection
// drops, mirroring gostt-writer's Device.OnDisconnect callback shape.
type DisconnectObserver interface {
	OnDisconnect(callback func())
}

