package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleAnswer = "* Cells ignore the insulin signal\n* Blood sugar stays high\n---\nNot medical advice."

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "trustmed dev") {
		t.Errorf("output = %q", out)
	}
}

func TestSpeakFromStdin(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(sampleAnswer))
	cmd.SetArgs([]string{"speak"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("speak failed: %v", err)
	}
	want := "summary: Here are the key points: Cells ignore the insulin signal, Blood sugar stays high.\n" +
		"full: Cells ignore the insulin signal. Blood sugar stays high.\n"
	if got := buf.String(); got != want {
		t.Errorf("output =\n%q\nwant\n%q", got, want)
	}
}

func TestSpeakFromFileWithMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.md")
	if err := os.WriteFile(path, []byte(sampleAnswer), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"speak", "--mode", "full", path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("speak failed: %v", err)
	}
	if got, want := buf.String(), "Cells ignore the insulin signal. Blood sugar stays high.\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestSpeakRejectsBadInput(t *testing.T) {
	if err := runSpeak(new(bytes.Buffer), "   ", ""); err == nil {
		t.Error("expected error for empty answer")
	}
	if err := runSpeak(new(bytes.Buffer), sampleAnswer, "loud"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestLoadSettingsMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	settings, err := loadSettings(defaultSettingsPath, false)
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if settings.Chat.Provider != "backend" {
		t.Errorf("provider = %q", settings.Chat.Provider)
	}

	if _, err := loadSettings("missing.yaml", true); err == nil {
		t.Error("expected error for explicit missing file")
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"serve", "chat", "speak", "version"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not found", name)
		}
	}
}
