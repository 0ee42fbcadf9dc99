package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "450,00 kr", want: "450.00"},
		{name: "thousand separator space", input: "11 007,05 kr", want: "11007.05"},
		{name: "non-breaking space", input: "11 007,05 kr", want: "11007.05"},
		{name: "narrow no-break space", input: "11 007,05 kr", want: "11007.05"},
		{name: "negative", input: "-120,50 kr", want: "-120.50"},
		{name: "no currency suffix", input: "42,00", want: "42.00"},
		{name: "dot separator", input: "1.250,00 kr", want: "1250.00"},
		{name: "zero", input: "0,00 kr", want: "0"},
		{name: "garbage", input: "ikke et beløp", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"parsed %s, want %s", got, tt.want)
		})
	}
}
