package supplicant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func creds(ssids ...string) []Credential {
	out := make([]Credential, len(ssids))
	for i, s := range ssids {
		out[i] = Credential{SSID: s, Passcode: strings.ToLower(s) + "-passcode"}
	}
	return out
}

func TestUpsert(t *testing.T) {
	existing := creds("A", "B")

	updated := Upsert(existing, "A", "new-passcode")
	assert.Equal(t, []string{"A", "B"}, SSIDs(updated))
	assert.Equal(t, "new-passcode", updated[0].Passcode)
	assert.Equal(t, "a-passcode", existing[0].Passcode, "input must not be modified")

	added := Upsert(existing, "C", "c-passcode")
	assert.Equal(t, []string{"A", "B", "C"}, SSIDs(added))
	assert.Len(t, existing, 2)

	assert.Equal(t, []string{"X"}, SSIDs(Upsert(nil, "X", "")))
}

func TestReorder(t *testing.T) {
	existing := creds("A", "B", "C")

	tests := []struct {
		name  string
		order []string
		want  []string
	}{
		{"partial", []string{"C", "A"}, []string{"C", "A", "B"}},
		{"unknown ignored", []string{"Z", "B"}, []string{"B", "A", "C"}},
		{"duplicates ignored", []string{"C", "C", "B", "C"}, []string{"C", "B", "A"}},
		{"empty is identity", []string{}, []string{"A", "B", "C"}},
		{"full", []string{"B", "C", "A"}, []string{"B", "C", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reorder(existing, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.want, SSIDs(got))
		})
	}

	// Passcodes travel with their SSID.
	got, err := Reorder(existing, []string{"C"})
	require.NoError(t, err)
	assert.Equal(t, "c-passcode", got[0].Passcode)
	assert.Equal(t, []string{"A", "B", "C"}, SSIDs(existing))
}

func TestReorder_NilOrder(t *testing.T) {
	_, err := Reorder(creds("A"), nil)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestValidateCredential(t *testing.T) {
	valid := []struct{ ssid, pass string }{
		{"Home", "secret123"},
		{"Open", ""},
		{strings.Repeat("s", 32), strings.Repeat("p", 63)},
		{"Lab", strings.Repeat("aF", 32)},
		{`My "Net"`, `with "quotes" and spaces`},
	}
	for _, v := range valid {
		assert.NoError(t, ValidateCredential(v.ssid, v.pass), "%q/%q", v.ssid, v.pass)
	}

	invalid := []struct{ name, ssid, pass string }{
		{"empty ssid", "", "secret123"},
		{"long ssid", strings.Repeat("s", 33), "secret123"},
		{"newline ssid", "Ho\nme", "secret123"},
		{"short passcode", "Home", "short"},
		{"long passcode", "Home", strings.Repeat("p", 64)},
		{"newline passcode", "Home", "secret\n123"},
		{"non ascii passcode", "Home", "pässwörter"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateCredential(tt.ssid, tt.pass), ErrInvalidCredential)
		})
	}
}
