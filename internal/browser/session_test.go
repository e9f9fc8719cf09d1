package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChromeArg(t *testing.T) {
	tests := []struct {
		name      string
		arg       string
		wantName  string
		wantValue any
	}{
		{
			name:      "bare boolean flag",
			arg:       "disable-extensions",
			wantName:  "disable-extensions",
			wantValue: true,
		},
		{
			name:      "dashed boolean flag",
			arg:       "--disable-extensions",
			wantName:  "disable-extensions",
			wantValue: true,
		},
		{
			name:      "valued flag keeps its value",
			arg:       "--window-size=800,600",
			wantName:  "window-size",
			wantValue: "800,600",
		},
		{
			name:      "valued flag without dashes",
			arg:       "lang=en-US",
			wantName:  "lang",
			wantValue: "en-US",
		},
		{
			name:      "only the first equals splits",
			arg:       "--js-flags=--max-old-space-size=512",
			wantName:  "js-flags",
			wantValue: "--max-old-space-size=512",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			name, value := parseChromeArg(tc.arg)
			assert.Equal(t, tc.wantName, name)
			assert.Equal(t, tc.wantValue, value)
		})
	}
}
