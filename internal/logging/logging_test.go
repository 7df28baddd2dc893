package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLevel_AllVariants(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel}, // case + trim
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel}, // empty -> info
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel}, // alias
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel}, // default
	}

	for _, tc := range cases {
		SetLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestSetup_TagsServiceAndAppliesLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	log := Setup("error", false, "guildkeeper")
	if zerolog.GlobalLevel() != zerolog.ErrorLevel {
		t.Fatalf("Setup did not apply level: %v", zerolog.GlobalLevel())
	}
	// The returned logger must be usable below the global level without panicking.
	log.Debug().Msg("suppressed")
}
