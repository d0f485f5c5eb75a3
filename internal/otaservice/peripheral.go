package otaservice

import (
	"github.com/tinygo-org/bleota/internal/gatt"
	"github.com/tinygo-org/bleota/internal/partition"
	"tinygo.org/x/bluetooth"
)

// Peripheral registers the OTA GATT service from spec §6 on a real
// bluetooth.Adapter, wiring its four characteristics to an Engine the same
// way dfuservice.AddService wires its stub DFU characteristics onto a
// bluetooth.Service.
type Peripheral struct {
	engine *Engine

	writeChar    bluetooth.Characteristic
	progressChar bluetooth.Characteristic
	commandChar  bluetooth.Characteristic
	customerChar bluetooth.Characteristic
}

// NewPeripheral builds a Peripheral over table. reboot and log are passed
// through to the underlying Engine.
func NewPeripheral(table *partition.Table, reboot func(), log LogFunc) *Peripheral {
	p := &Peripheral{}
	p.engine = New(table, &p.commandChar, &p.progressChar, reboot, log)
	return p
}

// AddService registers the service on adapter and starts accepting
// writes.
func (p *Peripheral) AddService(adapter *bluetooth.Adapter) error {
	return adapter.AddService(&bluetooth.Service{
		UUID: gatt.ServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &p.writeChar,
				UUID:   gatt.WriteUUID,
				Flags:  bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicNotifyPermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					p.engine.OnDataWrite(value)
				},
			},
			{
				Handle: &p.progressChar,
				UUID:   gatt.ProgressUUID,
				Flags:  bluetooth.CharacteristicNotifyPermission,
			},
			{
				Handle: &p.commandChar,
				UUID:   gatt.CommandUUID,
				Flags:  bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicNotifyPermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					p.engine.OnCommandWrite(value)
				},
			},
			{
				Handle: &p.customerChar,
				UUID:   gatt.CustomerUUID,
				Flags:  bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
}
