// Command otadevice is the embedded-side reference wiring for the BLE OTA
// receiver: it advertises the OTA service from spec §6 and hands control
// to otaservice.Peripheral for the rest of the protocol. It is meant to
// run on the target hardware under TinyGo; chip init, LED/hello-world
// tasks and permission flows are out of scope per spec §1 and are not
// reproduced here.
package main

import (
	"fmt"
	"time"

	"github.com/tinygo-org/bleota/internal/gatt"
	"github.com/tinygo-org/bleota/internal/otaservice"
	"github.com/tinygo-org/bleota/internal/partition"
	"tinygo.org/x/bluetooth"
)

var adapter = bluetooth.DefaultAdapter

func main() {
	println("ota: starting")
	must("enable BLE stack", adapter.Enable())

	// The boot loader hands off the running slot in PENDING_VERIFY
	// immediately after a partition switch, or VALID on an ordinary boot
	// (spec §3). A real integration reads this from the boot loader;
	// OTA_0/VALID is the steady-state assumption for a cold start.
	table := partition.NewTable(partition.OTA0, partition.StateValid)

	peripheral := otaservice.NewPeripheral(table, reboot, devicePrintf)
	must("add OTA service", peripheral.AddService(adapter))

	adv := adapter.DefaultAdvertisement()
	must("configure advertisement", adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    "ota-device",
		ServiceUUIDs: []bluetooth.UUID{gatt.ServiceUUID},
	}))
	must("start advertisement", adv.Start())

	println("ota: advertising, waiting for a client")
	for {
		time.Sleep(time.Hour)
	}
}

func reboot() {
	println("ota: rebooting")
	// A real target calls its reset primitive here; there is none to call
	// on a host build.
}

func devicePrintf(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

func must(action string, err error) {
	if err != nil {
		panic("failed to " + action + ": " + err.Error())
	}
}
