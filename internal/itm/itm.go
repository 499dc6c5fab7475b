// Package itm frames and decodes the ARMv7-M Instrumentation Trace
// Macrocell stream the firmware logs through (SWO, stimulus port 0).
package itm

import (
	"bufio"
	"errors"
	"io"
)

// Kind classifies a decoded packet.
type Kind uint8

const (
	KindSync Kind = iota
	KindOverflow
	KindSoftware  // stimulus port write
	KindHardware  // DWT source packet
	KindTimestamp // local timestamp
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindSync:
		return "sync"
	case KindOverflow:
		return "overflow"
	case KindSoftware:
		return "swit"
	case KindHardware:
		return "hw"
	case KindTimestamp:
		return "ts"
	case KindExtension:
		return "ext"
	}
	return "?"
}

type Packet struct {
	Kind Kind
	Port uint8
	Data []byte
}

var ErrMalformed = errors.New("itm: malformed packet")

const (
	hdrOverflow = 0x70
	syncByte    = 0x80
	maxCont     = 4 // continuation bytes in a timestamp or extension
)

// Decoder reads packets from an ITM byte stream.
type Decoder struct {
	r     *bufio.Reader
	zeros int
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next packet. Data aliases an internal buffer only until
// the next call.
func (d *Decoder) Next() (Packet, error) {
	for {
		h, err := d.r.ReadByte()
		if err != nil {
			return Packet{}, err
		}
		if h == 0 {
			d.zeros++
			continue
		}
		if d.zeros > 0 {
			zeros := d.zeros
			d.zeros = 0
			if h == syncByte && zeros >= 5 {
				return Packet{Kind: KindSync}, nil
			}
			if h == syncByte {
				return Packet{}, ErrMalformed
			}
		}
		return d.packet(h)
	}
}

func (d *Decoder) packet(h byte) (Packet, error) {
	switch {
	case h == hdrOverflow:
		return Packet{Kind: KindOverflow}, nil
	case h&0x03 != 0:
		n := 1 << ((h & 0x03) - 1) // 1, 2 or 4 bytes
		data := make([]byte, n)
		if _, err := io.ReadFull(d.r, data); err != nil {
			return Packet{}, err
		}
		k := KindSoftware
		if h&0x04 != 0 {
			k = KindHardware
		}
		return Packet{Kind: k, Port: h >> 3, Data: data}, nil
	case h&0x0F == 0:
		data, err := d.continuation(h)
		return Packet{Kind: KindTimestamp, Data: data}, err
	case h&0x0B == 0x08:
		data, err := d.continuation(h)
		return Packet{Kind: KindExtension, Data: data}, err
	}
	return Packet{}, ErrMalformed
}

func (d *Decoder) continuation(h byte) ([]byte, error) {
	var data []byte
	for c := h; c&0x80 != 0; {
		if len(data) == maxCont {
			return nil, ErrMalformed
		}
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		data = append(data, b)
		c = b
	}
	return data, nil
}

// Text copies the port's software payloads from the decoder to w,
// skipping everything else. It stops at the first read error; io.EOF is
// not reported.
func Text(w io.Writer, d *Decoder, port uint8) error {
	for {
		p, err := d.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, ErrMalformed) {
			continue
		}
		if err != nil {
			return err
		}
		if p.Kind == KindSoftware && p.Port == port {
			if _, err := w.Write(p.Data); err != nil {
				return err
			}
		}
	}
}

// Writer frames every byte written to it as a one-byte stimulus packet on
// Port, which is what an 8-bit store to the stimulus register produces.
type Writer struct {
	W    io.Writer
	Port uint8
}

func (w Writer) Write(p []byte) (int, error) {
	buf := make([]byte, 0, 2*len(p))
	h := w.Port<<3 | 0x01
	for _, b := range p {
		buf = append(buf, h, b)
	}
	if _, err := w.W.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Sync returns an ITM synchronisation packet.
func Sync() []byte { return []byte{0, 0, 0, 0, 0, syncByte} }
