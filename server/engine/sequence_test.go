package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFolderName(t *testing.T) {
	cases := []struct {
		folder string
		seq    string
		pos    string
	}{
		{"ffr25_btn", "PF:F-F-R2.5", "BTN"},
		{"ccx_lj", "PF:C-C-X", "LJ"},
		{"r3_co", "PF:R3", "CO"},
		{"fr_sb", "PF:F-R", "SB"},
		{"fr100c_bb", "PF:F-R10.0-C", "BB"},
		{"_utg", "PF:", "UTG"},
		{"f-zz-c_hj", "PF:F-C", "HJ"},
		{"FFR25_btn", "PF:", "BTN"},
		{"fFr25_co", "PF:F-R2.5", "CO"},
		{"ff_low_jack", "PF:F-F", "JACK"},
	}
	for _, tc := range cases {
		t.Run(tc.folder, func(t *testing.T) {
			seq, pos, err := DecodeFolderName(tc.folder)
			require.NoError(t, err)
			assert.Equal(t, tc.seq, seq)
			assert.Equal(t, tc.pos, pos)
		})
	}
}

func TestDecodeFolderNameErrors(t *testing.T) {
	_, _, err := DecodeFolderName("ffr25btn")
	assert.ErrorIs(t, err, ErrNoSeparator)

	_, _, err = DecodeFolderName("ffr25_")
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestEncodeActions(t *testing.T) {
	assert.Equal(t, "PF:", EncodeActions(nil))
	assert.Equal(t, "PF:F-F", EncodeActions([]string{"fold", "fold"}))
	assert.Equal(t, "PF:F-R2.5-C", EncodeActions([]string{"fold", "raise 2.5", "call"}))
	assert.Equal(t, "PF:R3", EncodeActions([]string{"raise 3"}))
	assert.Equal(t, "PF:R-X", EncodeActions([]string{"raise", "check", "dance"}))
}

func TestEncodeMatchesDecode(t *testing.T) {
	seq, _, err := DecodeFolderName("fr25c_btn")
	require.NoError(t, err)
	assert.Equal(t, seq, EncodeActions([]string{"fold", "raise 2.5", "call"}))
}

func TestEncodedWholeRaiseReachesDecodedNode(t *testing.T) {
	seq, _, err := DecodeFolderName("r20_btn")
	require.NoError(t, err)
	require.Equal(t, "PF:R2.0", seq)

	encoded := EncodeActions([]string{"raise 2"})
	require.Equal(t, "PF:R2", encoded)
	assert.Contains(t, SequenceVariants(encoded), seq)

	seq, _, err = DecodeFolderName("fr30_co")
	require.NoError(t, err)
	assert.Contains(t, SequenceVariants(EncodeActions([]string{"fold", "raise 3"})), seq)
	assert.Contains(t, SequenceVariants(seq), "PF:F-R3")
}

func TestSequenceVariants(t *testing.T) {
	assert.Equal(t, []string{"PF:F-F"}, SequenceVariants("PF:F-F"))
	assert.Equal(t, []string{"PF:R2.5-C"}, SequenceVariants("PF:R2.5-C"))
	assert.Equal(t, []string{"PF:F-R"}, SequenceVariants("PF:F-R"))
	assert.Equal(t, []string{"PF:"}, SequenceVariants("PF:"))
	assert.Equal(t, []string{"PF:R3.0", "PF:R3"}, SequenceVariants("PF:R3.0"))
	assert.ElementsMatch(t,
		[]string{"PF:R2-R10", "PF:R2-R10.0", "PF:R2.0-R10", "PF:R2.0-R10.0"},
		SequenceVariants("PF:R2-R10"))
	assert.Equal(t, "PF:R2-R10", SequenceVariants("PF:R2-R10")[0])
}

func TestGenericRaise(t *testing.T) {
	assert.True(t, HasGenericRaise("PF:F-R"))
	assert.True(t, HasGenericRaise("PF:R2.5-R"))
	assert.False(t, HasGenericRaise("PF:F-R2.5"))
	assert.False(t, HasGenericRaise("PF:"))

	assert.Equal(t, "PF:F-R%", RaiseWildcard("PF:F-R"))
	assert.Equal(t, "PF:R2.5-R%-C", RaiseWildcard("PF:R2.5-R-C"))
}
