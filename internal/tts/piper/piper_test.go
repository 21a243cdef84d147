package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/tts"
)

// fakePiper accepts one connection, records the synthesize event and
// replies with the given script.
func fakePiper(t *testing.T, reply func(conn net.Conn)) (string, <-chan *event) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan *event, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		evt, _, err := readEvent(bufio.NewReader(conn))
		if err != nil {
			close(got)
			return
		}
		got <- evt
		reply(conn)
	}()
	return ln.Addr().String(), got
}

func TestSynthesize(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	addr, got := fakePiper(t, func(conn net.Conn) {
		_ = writeEvent(conn, "audio-start", map[string]any{"rate": 16000, "width": 2, "channels": 1}, nil)
		_ = writeEvent(conn, "audio-chunk", map[string]any{"rate": 16000}, pcm[:4])
		_ = writeEvent(conn, "audio-chunk", nil, pcm[4:])
		_ = writeEvent(conn, "audio-stop", nil, nil)
	})

	s := New(config.PiperConfig{Endpoint: "tcp://" + addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := s.Synthesize(ctx, "नमस्ते किसान", tts.SynthesizeOpts{Language: "hi"})
	require.NoError(t, err)

	evt := <-got
	require.NotNil(t, evt)
	assert.Equal(t, "synthesize", evt.Type)
	assert.Equal(t, "नमस्ते किसान", evt.Data["text"])
	assert.Equal(t, map[string]any{"name": "hi_IN-pratham-medium"}, evt.Data["voice"])

	assert.Equal(t, "audio/wav", res.ContentType)
	assert.Equal(t, 16000, res.SampleRate)
	assert.Equal(t, 1, res.Channels)
	require.Len(t, res.Audio, 44+len(pcm))
	assert.Equal(t, "RIFF", string(res.Audio[:4]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(res.Audio[24:28]))
	assert.True(t, bytes.Equal(pcm, res.Audio[44:]))
}

func TestSynthesize_ServerError(t *testing.T) {
	addr, _ := fakePiper(t, func(conn net.Conn) {
		_ = writeEvent(conn, "error", map[string]any{"text": "voice not installed"}, nil)
	})

	s := New(config.PiperConfig{Endpoint: addr, Voices: map[string]string{"ta": "ta_IN-custom-medium"}})
	_, err := s.Synthesize(context.Background(), "வணக்கம்", tts.SynthesizeOpts{Language: "ta"})
	assert.ErrorContains(t, err, "voice not installed")
}

func TestSynthesize_NoVoice(t *testing.T) {
	s := New(config.PiperConfig{Endpoint: "127.0.0.1:1"})
	_, err := s.Synthesize(context.Background(), "வணக்கம்", tts.SynthesizeOpts{Language: "ta"})
	assert.ErrorIs(t, err, tts.ErrNoVoice)

	_, err = s.Synthesize(context.Background(), "  ", tts.SynthesizeOpts{Language: "en"})
	assert.Error(t, err)
}

func TestSynthesize_PerLanguageEndpoint(t *testing.T) {
	addr, got := fakePiper(t, func(conn net.Conn) {
		_ = writeEvent(conn, "audio-stop", nil, nil)
	})

	s := New(config.PiperConfig{Endpoints: map[string]string{"ml": addr}})
	_, err := s.Synthesize(context.Background(), "നമസ്കാരം", tts.SynthesizeOpts{Language: "ml"})
	require.NoError(t, err)
	assert.Equal(t, "synthesize", (<-got).Type)

	_, err = s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "en"})
	assert.ErrorContains(t, err, "no piper endpoint")
}

func TestReadEvent_InlineData(t *testing.T) {
	raw := "{\"type\":\"audio-start\",\"data\":{\"rate\":22050}}\n"
	evt, payload, err := readEvent(bufio.NewReader(bytes.NewBufferString(raw)))
	require.NoError(t, err)
	assert.Equal(t, "audio-start", evt.Type)
	assert.Equal(t, 22050, intField(evt.Data, "rate", 0))
	assert.Nil(t, payload)
}

func TestReadEvent_Invalid(t *testing.T) {
	_, _, err := readEvent(bufio.NewReader(bytes.NewBufferString("not json\n")))
	assert.Error(t, err)

	_, _, err = readEvent(bufio.NewReader(bytes.NewBufferString("{\"type\":\"audio-chunk\",\"payload_length\":10}\nshort")))
	assert.Error(t, err)
}
