package sh2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	testCases := []struct {
		args   []string
		expect []byte
	}{
		{[]string{"01", "02", "0a"}, []byte{1, 2, 10}},
		{[]string{"01020A"}, []byte{1, 2, 10}},
		{[]string{"0x01,", "0xff"}, []byte{1, 0xff}},
		{nil, []byte{}},
	}
	for _, tc := range testCases {
		data, err := ParseHex(tc.args)
		require.NoError(t, err)
		require.Equal(t, tc.expect, data)
	}

	_, err := ParseHex([]string{"1"})
	require.Error(t, err)
	_, err = ParseHex([]string{"zz"})
	require.Error(t, err)
}
