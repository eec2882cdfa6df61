// cmd_utils_test.go - Tests fuer CLI-Hilfsfunktionen und Info-Anzeige
package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/peftlab/peftllama/api"
)

func TestParseTokens(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    []int32
		wantErr bool
	}{
		{"Leerzeichen", "1 15 42", []int32{1, 15, 42}, false},
		{"Kommas", "1,15,42", []int32{1, 15, 42}, false},
		{"gemischt", "1, 15\t42", []int32{1, 15, 42}, false},
		{"einzelnes Token", "7", []int32{7}, false},
		{"leer", "   ", nil, true},
		{"negative ID", "1 -3", nil, true},
		{"keine Zahl", "1 abc", nil, true},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTokens(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTokens(%q) error = %v, erwartet Fehler: %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseTokens(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParsePrompts(t *testing.T) {
	got, err := parsePrompts([]string{"1 3", "2"})
	if err != nil {
		t.Fatalf("parsePrompts: %v", err)
	}

	want := [][]int32{{1, 3}, {2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parsePrompts mismatch (-want +got):\n%s", diff)
	}

	if _, err := parsePrompts([]string{"1 3", "x"}); err == nil {
		t.Error("parsePrompts mit ungueltiger ID = nil, erwartet Fehler")
	}
}

func TestFormatTokens(t *testing.T) {
	if got := formatTokens([]int32{1, 15, 42}); got != "1 15 42" {
		t.Errorf("formatTokens = %q, erwartet %q", got, "1 15 42")
	}
}

func TestShowInfo(t *testing.T) {
	var b bytes.Buffer
	err := showInfo(&api.ShowResponse{
		Architecture:      "llama",
		PeftMode:          "lora",
		HiddenSize:        4096,
		NumHeads:          32,
		NumLayers:         32,
		VocabSize:         32000,
		MaxSequenceLength: 2048,
		DType:             "float16",
		Use8Bit:           true,
		LoadedAt:          time.Now(),
	}, &b)
	if err != nil {
		t.Fatalf("showInfo: %v", err)
	}

	out := b.String()
	for _, want := range []string{"architecture", "llama", "peft mode", "lora", "4096", "8 bit", "loaded"} {
		if !strings.Contains(out, want) {
			t.Errorf("showInfo-Ausgabe enthaelt %q nicht:\n%s", want, out)
		}
	}
}
