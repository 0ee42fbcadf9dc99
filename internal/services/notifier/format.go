package notifier

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kronevakt/kronevakt/internal/domain"
)

// FormatKroner renders a decimal the way DNB prints amounts, with spaces as
// thousand separators and a comma before the øre.
func FormatKroner(d decimal.Decimal) string {
	s := d.StringFixed(2)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}

	out := b.String() + "," + fracPart + " kr"
	if negative {
		out = "-" + out
	}
	return out
}

// FormatKronerSigned is FormatKroner with an explicit plus sign on
// non-negative amounts, used for the change line.
func FormatKronerSigned(d decimal.Decimal) string {
	if d.Sign() >= 0 {
		return "+" + FormatKroner(d)
	}
	return FormatKroner(d)
}

// FormatChangeMessage builds the Telegram Markdown text for a balance change.
func FormatChangeMessage(event domain.NotificationEvent) string {
	var b strings.Builder
	b.WriteString("🔔 *Saldoendring oppdaget!*\n\n")
	b.WriteString("📊 *Ny saldo:* " + FormatKroner(event.NewBalance) + "\n")
	b.WriteString("📊 *Forrige saldo:* " + FormatKroner(event.OldBalance) + "\n")
	b.WriteString("📈 *Endring:* " + FormatKronerSigned(event.Diff()))
	writeTransaction(&b, event.Transaction)
	return b.String()
}

// FormatBalanceMessage builds the reply to a manual balance check.
func FormatBalanceMessage(snapshot domain.BalanceSnapshot) string {
	var b strings.Builder
	b.WriteString("📊 *Saldo:* " + FormatKroner(snapshot.Balance))
	writeTransaction(&b, snapshot.LastTransaction)
	return b.String()
}

func writeTransaction(b *strings.Builder, tx *domain.Transaction) {
	if tx == nil {
		return
	}
	b.WriteString("\n\n📝 *Siste transaksjon:*")
	if tx.Date != "" {
		b.WriteString("\nDato: " + tx.Date)
	}
	if tx.Description != "" {
		b.WriteString("\nBeskrivelse: " + tx.Description)
	}
	if tx.Amount != "" {
		b.WriteString("\nBeløp: " + tx.Amount)
	}
}
