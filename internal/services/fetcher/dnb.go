package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kronevakt/kronevakt/internal/domain"
	"github.com/kronevakt/kronevakt/pkg/retrier"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	cardQueryParam = "kortnummer"
)

// monthNames marks the statement's month-header rows, which carry no
// transaction data.
var monthNames = []string{
	"Januar", "Februar", "Mars", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Desember",
}

// DNBFetcher loads the Kronekort saldo page over HTTP and extracts the
// balance and the latest statement rows from the DNB markup.
type DNBFetcher struct {
	balanceURL string
	client     *http.Client
	retrier    *retrier.Retrier
	logger     *zap.Logger
}

// NewDNBFetcher creates a fetcher for the given saldo page URL. The timeout
// bounds a single HTTP attempt; transient failures are retried with backoff.
func NewDNBFetcher(balanceURL string, timeout time.Duration, logger *zap.Logger) *DNBFetcher {
	return &DNBFetcher{
		balanceURL: balanceURL,
		client:     &http.Client{Timeout: timeout},
		retrier: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(2*time.Second),
		),
		logger: logger,
	}
}

// FetchBalance requests the saldo page for the card and parses the result.
func (f *DNBFetcher) FetchBalance(ctx context.Context, card domain.CardNumber) (domain.BalanceSnapshot, error) {
	f.logger.Debug("fetching balance", zap.String("card", card.Masked()))

	doc, err := retrier.DoWithData(f.retrier, ctx, func(ctx context.Context) (*goquery.Document, error) {
		return f.loadPage(ctx, card)
	})
	if err != nil {
		return domain.BalanceSnapshot{}, NewFetchError(errors.Wrap(err, "load saldo page"))
	}

	snapshot, err := parseBalancePage(doc, card)
	if err != nil {
		return domain.BalanceSnapshot{}, NewFetchError(errors.Wrap(err, "parse saldo page"))
	}

	f.logger.Debug("balance fetched",
		zap.String("card", card.Masked()),
		zap.String("balance", snapshot.Balance.String()))

	return snapshot, nil
}

func (f *DNBFetcher) loadPage(ctx context.Context, card domain.CardNumber) (*goquery.Document, error) {
	u, err := url.Parse(f.balanceURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid balance URL")
	}
	q := u.Query()
	q.Set(cardQueryParam, card.String())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request saldo page")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("saldo page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read saldo page body")
	}

	return doc, nil
}

// parseBalancePage extracts the balance and the transaction list. The balance
// lives in a large heading outside the transaction table; statement rows sit
// in the dnb-table with month-name header rows interleaved.
func parseBalancePage(doc *goquery.Document, card domain.CardNumber) (domain.BalanceSnapshot, error) {
	balance, err := extractBalance(doc)
	if err != nil {
		return domain.BalanceSnapshot{}, err
	}

	transactions := extractTransactions(doc)

	snapshot := domain.BalanceSnapshot{
		Card:       card,
		Balance:    balance,
		ObservedAt: time.Now(),
	}
	if len(transactions) > 0 {
		snapshot.LastTransaction = &transactions[0]
	}

	return snapshot, nil
}

func extractBalance(doc *goquery.Document) (decimal.Decimal, error) {
	var balance decimal.Decimal
	found := false

	doc.Find("h2.dnb-h--large").EachWithBreak(func(_ int, h2 *goquery.Selection) bool {
		// transaction amounts also use number-format spans, but always inside the table
		if h2.ParentsFiltered("table").Length() > 0 {
			return true
		}
		visible := h2.Find("span.dnb-number-format span.dnb-number-format__visible").First()
		if visible.Length() == 0 {
			return true
		}
		parsed, parseErr := domain.ParseAmount(visible.Text())
		if parseErr != nil {
			return true
		}
		balance = parsed
		found = true
		return false
	})

	if !found {
		return balance, errors.New("balance heading not found, page structure may have changed")
	}
	return balance, nil
}

func extractTransactions(doc *goquery.Document) []domain.Transaction {
	var transactions []domain.Transaction

	doc.Find("table.dnb-table tr.dnb-table__tr").Each(func(_ int, row *goquery.Selection) {
		// month header rows carry a plain td instead of transaction cells
		if row.Find("td.dnb-table__td").Length() > 0 {
			return
		}

		var dateParts []string
		if day := strings.TrimSpace(row.Find("span.dnb-span").First().Text()); day != "" {
			dateParts = append(dateParts, day)
		}
		if num := strings.TrimSpace(row.Find("p.dnb-p--bold").First().Text()); num != "" {
			dateParts = append(dateParts, num)
		}
		date := strings.Join(dateParts, " ")

		var description string
		row.Find("p.dnb-p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
			if p.HasClass("dnb-p--bold") {
				return true
			}
			text := strings.TrimSpace(p.Text())
			if text == "" || containsPart(dateParts, text) {
				return true
			}
			description = text
			return false
		})

		amount := strings.TrimSpace(row.Find("span.dnb-number-format__visible").First().Text())

		if description == "" && amount == "" {
			return
		}
		for _, month := range monthNames {
			if strings.Contains(date, month) {
				return
			}
		}

		transactions = append(transactions, domain.Transaction{
			Date:        date,
			Description: description,
			Amount:      amount,
		})
	})

	return transactions
}

func containsPart(parts []string, s string) bool {
	for _, p := range parts {
		if p == s {
			return true
		}
	}
	return false
}
