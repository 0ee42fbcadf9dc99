package notifier

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kronevakt/kronevakt/internal/domain"
)

func TestFormatKroner(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "450", want: "450,00 kr"},
		{input: "11007.05", want: "11 007,05 kr"},
		{input: "1234567.8", want: "1 234 567,80 kr"},
		{input: "-120.5", want: "-120,50 kr"},
		{input: "0", want: "0,00 kr"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, FormatKroner(decimal.RequireFromString(tt.input)))
	}
}

func TestFormatKronerSigned(t *testing.T) {
	require.Equal(t, "+50,00 kr", FormatKronerSigned(decimal.RequireFromString("50")))
	require.Equal(t, "-50,00 kr", FormatKronerSigned(decimal.RequireFromString("-50")))
	require.Equal(t, "+0,00 kr", FormatKronerSigned(decimal.Zero))
}

func TestFormatChangeMessage(t *testing.T) {
	event := domain.NewNotificationEvent(
		42,
		decimal.RequireFromString("500.00"),
		decimal.RequireFromString("450.00"),
		&domain.Transaction{Date: "man 24", Description: "Rema 1000", Amount: "-50,00 kr"},
		time.Now(),
	)

	msg := FormatChangeMessage(event)

	require.Contains(t, msg, "🔔 *Saldoendring oppdaget!*")
	require.Contains(t, msg, "📊 *Ny saldo:* 450,00 kr")
	require.Contains(t, msg, "📊 *Forrige saldo:* 500,00 kr")
	require.Contains(t, msg, "📈 *Endring:* -50,00 kr")
	require.Contains(t, msg, "📝 *Siste transaksjon:*")
	require.Contains(t, msg, "Dato: man 24")
	require.Contains(t, msg, "Beskrivelse: Rema 1000")
	require.Contains(t, msg, "Beløp: -50,00 kr")
}

func TestFormatChangeMessageWithoutTransaction(t *testing.T) {
	event := domain.NewNotificationEvent(
		42,
		decimal.RequireFromString("100"),
		decimal.RequireFromString("200"),
		nil,
		time.Now(),
	)

	msg := FormatChangeMessage(event)

	require.Contains(t, msg, "📈 *Endring:* +100,00 kr")
	require.NotContains(t, msg, "Siste transaksjon")
}

func TestFormatBalanceMessageSkipsEmptyTransactionFields(t *testing.T) {
	snapshot := domain.BalanceSnapshot{
		Balance:         decimal.RequireFromString("11007.05"),
		LastTransaction: &domain.Transaction{Description: "Vipps overføring"},
	}

	msg := FormatBalanceMessage(snapshot)

	require.Contains(t, msg, "📊 *Saldo:* 11 007,05 kr")
	require.Contains(t, msg, "Beskrivelse: Vipps overføring")
	require.NotContains(t, msg, "Dato:")
	require.NotContains(t, msg, "Beløp:")
}
