package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"trustmed/core"
)

func TestPCMBytesToWavBytesHeader(t *testing.T) {
	pcm := make([]byte, 160)
	wav, err := PCMBytesToWavBytes(pcm, 1, 8000)
	if err != nil {
		t.Fatalf("PCMBytesToWavBytes: %v", err)
	}
	if len(wav) != wavHeaderSize+len(pcm) {
		t.Fatalf("len = %d, want %d", len(wav), wavHeaderSize+len(pcm))
	}
	if !IsWAV(wav) {
		t.Fatal("output is not recognised as WAV")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 8000 {
		t.Errorf("sample rate = %d, want 8000", got)
	}
	data, err := StripWAVHeaderIfPresent(wav)
	if err != nil {
		t.Fatalf("StripWAVHeaderIfPresent: %v", err)
	}
	if !bytes.Equal(data, pcm) {
		t.Error("stripped data differs from input PCM")
	}
}

func TestPCMBytesToWavBytesRejectsBadInput(t *testing.T) {
	if _, err := PCMBytesToWavBytes(nil, 1, 8000); err == nil {
		t.Error("expected error for empty PCM")
	}
	if _, err := PCMBytesToWavBytes([]byte{1, 2, 3}, 1, 8000); err == nil {
		t.Error("expected error for odd-length PCM")
	}
	if _, err := PCMBytesToWavBytes([]byte{1, 2}, 1, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestStripWAVHeaderLeavesRawInput(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	out, err := StripWAVHeaderIfPresent(raw)
	if err != nil || !bytes.Equal(out, raw) {
		t.Errorf("StripWAVHeaderIfPresent(raw) = %v, %v", out, err)
	}
}

func TestSilentWAV(t *testing.T) {
	clip := SilentWAV(100*time.Millisecond, 8000)
	if clip.Format != core.WAV || !IsWAV(clip.Data) {
		t.Fatalf("clip = %+v", clip)
	}
	data, _ := StripWAVHeaderIfPresent(clip.Data)
	if len(data) != 800*2 {
		t.Errorf("data bytes = %d, want %d", len(data), 1600)
	}
	for _, b := range data {
		if b != 0 {
			t.Fatal("silent clip contains non-zero samples")
		}
	}
}

func TestToWAVDecodesULaw(t *testing.T) {
	pcm := make([]byte, 320)
	for i := 0; i < len(pcm); i += 2 {
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(i*50)))
	}
	ulaw, err := PCMBytesToULaw(pcm)
	if err != nil {
		t.Fatalf("PCMBytesToULaw: %v", err)
	}
	clip, err := ToWAV(&core.AudioClip{Data: ulaw, Format: core.ULAW, SampleRate: 8000, Channels: 1})
	if err != nil {
		t.Fatalf("ToWAV: %v", err)
	}
	if clip.Format != core.WAV || clip.MimeType() != "audio/wav" {
		t.Errorf("clip format = %q mime %q", clip.Format, clip.MimeType())
	}
	data, _ := StripWAVHeaderIfPresent(clip.Data)
	if len(data) != len(pcm) {
		t.Errorf("decoded %d bytes, want %d", len(data), len(pcm))
	}
}

func TestToWAVPassesThroughMP3(t *testing.T) {
	in := &core.AudioClip{Data: []byte("ID3"), Format: core.MP3}
	out, err := ToWAV(in)
	if err != nil || out != in {
		t.Errorf("ToWAV(mp3) = %v, %v; want passthrough", out, err)
	}
	if _, err := ToWAV(&core.AudioClip{}); err == nil {
		t.Error("expected error for empty clip")
	}
}
