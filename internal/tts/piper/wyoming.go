package piper

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Wyoming frames every event as a JSON header line, optionally followed by
// extra JSON data and a binary payload:
//
//	{"type": "...", "data_length": N, "payload_length": M}\n
//	<N bytes of JSON data><M bytes of payload>
//
// Older servers put "data" inline in the header instead.
type event struct {
	Type          string         `json:"type"`
	Version       string         `json:"version,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	DataLength    int            `json:"data_length,omitempty"`
	PayloadLength int            `json:"payload_length,omitempty"`
}

const protocolVersion = "1.0.0"

// maxPayload bounds a single audio chunk.
const maxPayload = 16 << 20

func writeEvent(w io.Writer, typ string, data map[string]any, payload []byte) error {
	var dataBytes []byte
	if len(data) > 0 {
		var err error
		if dataBytes, err = json.Marshal(data); err != nil {
			return fmt.Errorf("marshalling event data: %w", err)
		}
	}

	header, err := json.Marshal(event{
		Type:          typ,
		Version:       protocolVersion,
		DataLength:    len(dataBytes),
		PayloadLength: len(payload),
	})
	if err != nil {
		return fmt.Errorf("marshalling event header: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(header)
	buf.WriteByte('\n')
	buf.Write(dataBytes)
	buf.Write(payload)
	_, err = w.Write(buf.Bytes())
	return err
}

func readEvent(r *bufio.Reader) (*event, []byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	var evt event
	if err := json.Unmarshal(line, &evt); err != nil {
		return nil, nil, fmt.Errorf("decoding header %q: %w", bytes.TrimSpace(line), err)
	}
	if evt.DataLength < 0 || evt.PayloadLength < 0 || evt.DataLength > maxPayload || evt.PayloadLength > maxPayload {
		return nil, nil, fmt.Errorf("invalid lengths in %q event", evt.Type)
	}

	if evt.DataLength > 0 {
		dataBuf := make([]byte, evt.DataLength)
		if _, err := io.ReadFull(r, dataBuf); err != nil {
			return nil, nil, fmt.Errorf("reading event data: %w", err)
		}
		extra := map[string]any{}
		if err := json.Unmarshal(dataBuf, &extra); err != nil {
			return nil, nil, fmt.Errorf("decoding event data: %w", err)
		}
		if evt.Data == nil {
			evt.Data = extra
		} else {
			for k, v := range extra {
				evt.Data[k] = v
			}
		}
	}

	var payload []byte
	if evt.PayloadLength > 0 {
		payload = make([]byte, evt.PayloadLength)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return &evt, payload, nil
}

func intField(data map[string]any, key string, def int) int {
	if v, ok := data[key].(float64); ok && v > 0 {
		return int(v)
	}
	return def
}

// pcmToWAV wraps raw little-endian PCM in a 44-byte WAV header.
func pcmToWAV(pcm []byte, sampleRate, channels, bytesPerSample int) []byte {
	buf := &bytes.Buffer{}
	buf.Grow(44 + len(pcm))

	le := func(v any) { _ = binary.Write(buf, binary.LittleEndian, v) }

	buf.WriteString("RIFF")
	le(uint32(36 + len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	le(uint32(16))
	le(uint16(1)) // PCM
	le(uint16(channels))
	le(uint32(sampleRate))
	le(uint32(sampleRate * channels * bytesPerSample))
	le(uint16(channels * bytesPerSample))
	le(uint16(bytesPerSample * 8))

	buf.WriteString("data")
	le(uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
