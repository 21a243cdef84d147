package local

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/transcriber"
)

func TestTranscribe_OpenAIFlavor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "te", r.FormValue("language"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "audio.mp3", header.Filename)
		assert.Equal(t, "ID3", string(data))

		_, _ = w.Write([]byte(`{"text":"వరి పంట","language":"telugu"}`))
	}))
	defer srv.Close()

	tr := New(config.LocalTranscriberConfig{WhisperEndpoint: srv.URL + "/v1/audio/transcriptions"})
	assert.Equal(t, "local", tr.Name())

	res, err := tr.Transcribe(context.Background(), transcriber.Audio{Data: []byte("ID3"), ContentType: "audio/mpeg"}, transcriber.Opts{Language: "te"})
	require.NoError(t, err)
	assert.Equal(t, &transcriber.Result{Text: "వరి పంట", Language: "te"}, res)
}

func TestTranscribe_ASRFlavor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/asr", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "transcribe", q.Get("task"))
		assert.Equal(t, "json", q.Get("output"))
		assert.Equal(t, "true", q.Get("vad_filter"))
		assert.Empty(t, q.Get("language"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("audio_file")
		require.NoError(t, err)

		_, _ = w.Write([]byte(`{"text":"hello","language":"en"}`))
	}))
	defer srv.Close()

	tr := New(config.LocalTranscriberConfig{WhisperEndpoint: srv.URL + "/asr", WhisperType: "asr", VADFilter: true})
	res, err := tr.Transcribe(context.Background(), transcriber.Audio{Data: []byte("RIFF"), ContentType: "audio/wav"}, transcriber.Opts{})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, "en", res.Language)
}

func TestTranscribe_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := New(config.LocalTranscriberConfig{WhisperEndpoint: srv.URL})
	_, err := tr.Transcribe(context.Background(), transcriber.Audio{Data: []byte("x")}, transcriber.Opts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")

	_, err = tr.Transcribe(context.Background(), transcriber.Audio{}, transcriber.Opts{})
	assert.ErrorContains(t, err, "empty audio")
}
