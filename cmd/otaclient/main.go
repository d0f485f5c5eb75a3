// Command otaclient drives one BLE OTA firmware update session against a
// nearby device advertising the OTA service (spec §6), the host-side
// counterpart to dfuclient but speaking the sectored start/stream
// protocol from spec §4 instead of the stub DFU bootloader handshake.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tinygo-org/bleota/internal/gatt"
	"github.com/tinygo-org/bleota/internal/ota"
	"github.com/tinygo-org/bleota/internal/otaclient"
	"tinygo.org/x/bluetooth"
)

var adapter = bluetooth.DefaultAdapter

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <firmware-file>\n", os.Args[0])
	flag.PrintDefaults()
	os.Exit(1)
}

func main() {
	chunkSize := flag.Int("chunk-size", ota.DefaultChunkSize, "data packet payload size in bytes")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	image, err := readImage(flag.Arg(0))
	handleError(logger, "could not read firmware image", err)
	logger.Info("loaded firmware image", "bytes", len(image))

	handleError(logger, "could not enable BLE adapter", adapter.Enable())

	logger.Info("scanning for OTA-capable device")
	var found bluetooth.ScanResult
	err = adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		if !result.AdvertisementPayload.HasServiceUUID(gatt.ServiceUUID) {
			return
		}
		found = result
		handleError(logger, "could not stop the scan", adapter.StopScan())
	})
	handleError(logger, "could not start a scan", err)

	logger.Info("connecting", "address", found.Address.String())
	device, err := adapter.Connect(found.Address, bluetooth.ConnectionParams{})
	handleError(logger, "failed to connect", err)

	logger.Info("discovering OTA service")
	profile, err := gatt.DiscoverProfile(device)
	handleError(logger, "failed to discover OTA profile", err)

	observer := gatt.NewDisconnectObserver(adapter, device)

	controller := otaclient.New(
		otaclient.WithChunkSize(*chunkSize),
		otaclient.WithLogger(logger),
		otaclient.WithProgressCallback(func(percent uint8) {
			fmt.Printf("\rUploading... %3d%%", percent)
			if percent >= 100 {
				fmt.Println()
			}
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	err = controller.RunOTA(ctx, profile, observer, image)
	handleError(logger, "OTA session failed", err)

	logger.Info("OTA session completed", "elapsed", time.Since(start).Round(time.Millisecond))
}

func handleError(logger *slog.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, "error", err)
		os.Exit(1)
	}
}
