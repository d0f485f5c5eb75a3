package otaservice

import "sync"

// IngressPump decouples the BLE write callback from the flash writer by
// pushing every payload into a ring buffer, per spec §4.5. It is
// registered as the WriteEvent handler for the recv-fw characteristic.
type IngressPump struct {
	ring *ring
	log  LogFunc

	mu      sync.Mutex
	started bool
	spawn   func()
}

// newIngressPump returns a pump writing into ring. spawn is called exactly
// once, on the first write, and is expected to start the FlashWriter task.
func newIngressPump(ring *ring, spawn func(), log LogFunc) *IngressPump {
	return &IngressPump{ring: ring, spawn: spawn, log: log}
}

// OnWrite is the GATT write callback for the recv-fw characteristic. It
// never blocks the BLE stack: the ring push has a zero timeout, and a full
// ring silently drops the payload (spec §4.5 — the client will observe
// this as a progress stall and abort).
func (p *IngressPump) OnWrite(value []byte) {
	p.mu.Lock()
	first := !p.started
	p.started = true
	p.mu.Unlock()

	if first {
		p.spawn()
	}

	// value's backing array may be reused by the GATT stack once this
	// callback returns, so it must be copied before handing it to the
	// ring buffer for the asynchronous FlashWriter to read later.
	buf := make([]byte, len(value))
	copy(buf, value)

	if !p.ring.push(buf) {
		if p.log != nil {
			p.log("ota: ring buffer full, dropping %d byte write", len(buf))
		}
	}
}
