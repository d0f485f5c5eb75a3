package otaservice

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/tinygo-org/bleota/internal/ota"
)

// parseDataPacket strips the §4.1 wire framing off one recv-fw write: the
// 3-byte sector/seq header, and, for the final sequence of a sector, the
// trailing 2-byte CRC. It is the device-side counterpart of
// ota.Payload/ota.TrailerCRC, operating on the raw bytes a GATT write
// delivers rather than on a Framer-built ota.Packet.
func parseDataPacket(item []byte) (payload []byte, trailerCRC uint16, final bool, err error) {
	if len(item) < 3 {
		return nil, 0, false, errors.Errorf("data packet too short (%d bytes)", len(item))
	}
	seq := item[2]
	body := item[3:]
	if seq != ota.FinalSeq {
		return body, 0, false, nil
	}
	if len(body) < 2 {
		return nil, 0, false, errors.Errorf("final data packet too short for a crc trailer (%d bytes)", len(item))
	}
	payload = body[:len(body)-2]
	trailerCRC = binary.LittleEndian.Uint16(body[len(body)-2:])
	return payload, trailerCRC, true, nil
}
