package elevenlabs

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("empty api key rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := New(""); err == nil {
			t.Fatal("New(\"\") = nil error, want error")
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()
		s, err := New("key")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if s.model != defaultModel {
			t.Errorf("model = %q, want %q", s.model, defaultModel)
		}
		if s.outputFormat != defaultOutputFmt {
			t.Errorf("outputFormat = %q, want %q", s.outputFormat, defaultOutputFmt)
		}
	})

	t.Run("options override defaults", func(t *testing.T) {
		t.Parallel()
		s, err := New("key", WithModel("eleven_turbo_v2"), WithOutputFormat("pcm_24000"))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if s.model != "eleven_turbo_v2" {
			t.Errorf("model = %q, want eleven_turbo_v2", s.model)
		}
		if s.outputFormat != "pcm_24000" {
			t.Errorf("outputFormat = %q, want pcm_24000", s.outputFormat)
		}
	})
}

func TestBuildWSMessage(t *testing.T) {
	t.Parallel()

	t.Run("with voice settings", func(t *testing.T) {
		t.Parallel()
		msg, err := buildWSMessage("hello", &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75})
		if err != nil {
			t.Fatalf("buildWSMessage: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(msg, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if decoded["text"] != "hello" {
			t.Errorf("text = %v, want hello", decoded["text"])
		}
		if _, ok := decoded["voice_settings"]; !ok {
			t.Error("voice_settings missing from payload")
		}
	})

	t.Run("nil voice settings omitted", func(t *testing.T) {
		t.Parallel()
		msg, err := buildWSMessage("hi", nil)
		if err != nil {
			t.Fatalf("buildWSMessage: %v", err)
		}
		if strings.Contains(string(msg), "voice_settings") {
			t.Errorf("payload %s should omit voice_settings", msg)
		}
	})
}

func TestBuildURLForVoice(t *testing.T) {
	t.Parallel()

	url := buildURLForVoice("voice123", "eleven_flash_v2_5")
	want := "wss://api.elevenlabs.io/v1/text-to-speech/voice123/stream-input?model_id=eleven_flash_v2_5"
	if url != want {
		t.Errorf("buildURLForVoice = %q, want %q", url, want)
	}
}

func TestAudioResponseDecoding(t *testing.T) {
	t.Parallel()

	raw := `{"audio":"AAEC","isFinal":false}`
	var resp audioResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Audio != "AAEC" {
		t.Errorf("Audio = %q, want AAEC", resp.Audio)
	}
	if resp.IsFinal {
		t.Error("IsFinal = true, want false")
	}
}
