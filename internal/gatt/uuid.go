package gatt

import "tinygo.org/x/bluetooth"

// Short UUIDs for the OTA service and its four characteristics, expanded
// against the Bluetooth SIG base UUID (0000XXXX-0000-1000-8000-00805f9b34fb)
// per spec §6.
const (
	ServiceShortUUID  = 0x8018
	WriteShortUUID    = 0x8020
	ProgressShortUUID = 0x8021
	CommandShortUUID  = 0x8022
	CustomerShortUUID = 0x8023
)

// ServiceUUID is the advertised OTA service UUID.
var ServiceUUID = bluetooth.New16BitUUID(ServiceShortUUID)

// WriteUUID is the recv-fw characteristic: client writes data packets,
// device may notify on it to surface subscription errors.
var WriteUUID = bluetooth.New16BitUUID(WriteShortUUID)

// ProgressUUID is the progress characteristic: device notifies 1-byte
// percentage values.
var ProgressUUID = bluetooth.New16BitUUID(ProgressShortUUID)

// CommandUUID is the command characteristic: client writes the start
// command, device notifies the start ack.
var CommandUUID = bluetooth.New16BitUUID(CommandShortUUID)

// CustomerUUID is the reserved customer characteristic, subscribed for
// error-only monitoring.
var CustomerUUID = bluetooth.New16BitUUID(CustomerShortUUID)
