package ota

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Packet is one on-wire data packet ready to be written to the recv-fw
// characteristic.
type Packet struct {
	Sector uint32
	Seq    byte
	Final  bool
	Bytes  []byte
}

// Framer splits a firmware image into sector/sequence packets and builds
// the start command. It holds no mutable state beyond its configured chunk
// size, so the same Framer can be reused across sessions.
type Framer struct {
	ChunkSize int
}

// NewFramer returns a Framer using chunkSize as the maximum payload per
// data packet. A chunkSize of zero falls back to DefaultChunkSize.
func NewFramer(chunkSize int) *Framer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Framer{ChunkSize: chunkSize}
}

// StartCommand builds the 20-byte start command for an image of the given
// length: u16 opcode | u32 length | 14 zero bytes | u16 crc16 of bytes 0..17.
func (f *Framer) StartCommand(length uint32) []byte {
	buf := make([]byte, StartCommandLen)
	binary.LittleEndian.PutUint16(buf[0:2], startOpcode)
	binary.LittleEndian.PutUint32(buf[2:6], length)
	// bytes 6..17 stay zero.
	crc := CRC16(buf[0:18])
	binary.LittleEndian.PutUint16(buf[18:20], crc)
	return buf
}

// NumSectors returns the number of sectors the image will be split into.
func (f *Framer) NumSectors(imageLen int) uint32 {
	return NumSectors(uint32(imageLen))
}

// Sector builds the ordered packets for one sector of image. sector must be
// less than NumSectors(len(image)).
func (f *Framer) Sector(image []byte, sector uint32) ([]Packet, error) {
	length := uint32(len(image))
	numSectors := NumSectors(length)
	if sector >= numSectors {
		return nil, errors.Errorf("sector %d out of range (have %d sectors)", sector, numSectors)
	}
	start, end := SectorBounds(sector, length)
	sectorBytes := image[start:end]

	chunkSize := f.ChunkSize
	numSeqs := 1
	if len(sectorBytes) > 0 {
		numSeqs = (len(sectorBytes) + chunkSize - 1) / chunkSize
	}

	sectorCRC := CRC16(sectorBytes)

	packets := make([]Packet, 0, numSeqs)
	for i := 0; i < numSeqs; i++ {
		off := i * chunkSize
		end := off + chunkSize
		if end > len(sectorBytes) {
			end = len(sectorBytes)
		}
		payload := sectorBytes[off:end]
		final := i == numSeqs-1

		var seq byte
		if final {
			seq = FinalSeq
		} else {
			seq = byte(i)
		}

		header := make([]byte, 3)
		binary.LittleEndian.PutUint16(header[0:2], uint16(sector))
		header[2] = seq

		var wire []byte
		if final {
			wire = make([]byte, 0, 3+len(payload)+2)
			wire = append(wire, header...)
			wire = append(wire, payload...)
			trailer := make([]byte, 2)
			binary.LittleEndian.PutUint16(trailer, sectorCRC)
			wire = append(wire, trailer...)
		} else {
			wire = make([]byte, 0, 3+len(payload))
			wire = append(wire, header...)
			wire = append(wire, payload...)
		}

		packets = append(packets, Packet{
			Sector: sector,
			Seq:    seq,
			Final:  final,
			Bytes:  wire,
		})
	}
	return packets, nil
}

// Payload extracts the payload slice from a data packet's wire bytes,
// stripping the 3-byte header and, for the final sequence of a sector, the
// trailing 2-byte CRC.
func Payload(pkt Packet) []byte {
	body := pkt.Bytes[3:]
	if pkt.Final {
		return body[:len(body)-2]
	}
	return body
}

// TrailerCRC extracts the sector CRC carried by the final packet of a
// sector. It panics if pkt is not final; callers are expected to check
// pkt.Final first.
func TrailerCRC(pkt Packet) uint16 {
	if !pkt.Final {
		panic("ota: TrailerCRC called on a non-final packet")
	}
	body := pkt.Bytes
	return binary.LittleEndian.Uint16(body[len(body)-2:])
}
