package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		fallback string
		prefs    []string
		want     language.Tag
	}{
		{"accept header turkish", "en", []string{"", "tr-TR,tr;q=0.9,en;q=0.8"}, language.Turkish},
		{"cookie wins over header", "en", []string{"en", "tr"}, language.English},
		{"nothing set uses fallback", "tr", nil, language.Turkish},
		{"garbage uses fallback", "en", []string{"???"}, language.English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.fallback, tt.prefs...); got != tt.want {
				t.Fatalf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrinterTranslates(t *testing.T) {
	if got := Printer(language.Turkish).Sprintf(MsgConfirm); got != "Onayla" {
		t.Fatalf("tr confirm = %q", got)
	}
	if got := Printer(language.English).Sprintf(MsgConfirm); got != MsgConfirm {
		t.Fatalf("en confirm = %q", got)
	}
}
