package fmp

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RawTrade is one disclosure object as returned by the provider.
type RawTrade struct {
	Representative  string `json:"representative"`
	Transaction     string `json:"transaction"`
	Ticker          string `json:"ticker"`
	TransactionDate string `json:"transactionDate"`
	PublicationDate string `json:"publicationDate"`
	Amount          string `json:"amount"`
}

// TradeRecord is a normalized disclosure ready for reconciliation.
type TradeRecord struct {
	PoliticianName  string
	Chamber         string
	Ticker          string
	TradeType       string
	Amount          float64
	TransactionDate time.Time
	DisclosureDate  time.Time
	Source          string
}

const dateLayout = "2006-01-02"

var tickerPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// Normalizer converts raw provider records into TradeRecord values.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize validates and converts one raw record. A returned error
// means the record is rejected; callers skip it and keep going. An
// unparseable amount is not a rejection: the amount becomes 0 and a
// warning is logged.
func (n *Normalizer) Normalize(raw RawTrade, chamber string) (*TradeRecord, error) {
	name := strings.TrimSpace(strings.ReplaceAll(raw.Representative, "Hon. ", ""))
	if name == "" {
		return nil, fmt.Errorf("missing politician name")
	}

	ticker := strings.ToUpper(strings.TrimSpace(raw.Ticker))
	if !tickerPattern.MatchString(ticker) {
		return nil, fmt.Errorf("invalid ticker %q", raw.Ticker)
	}

	tradeType := classifyTransaction(raw.Transaction)

	amount, ok := parseAmountRange(raw.Amount)
	if !ok {
		n.logger.Warn("Could not parse amount, defaulting to 0", zap.String("amount", raw.Amount))
		amount = 0
	}

	transactionDate, err := time.Parse(dateLayout, raw.TransactionDate)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction date %q", raw.TransactionDate)
	}
	disclosureDate, err := time.Parse(dateLayout, raw.PublicationDate)
	if err != nil {
		return nil, fmt.Errorf("invalid publication date %q", raw.PublicationDate)
	}

	return &TradeRecord{
		PoliticianName:  name,
		Chamber:         chamber,
		Ticker:          ticker,
		TradeType:       tradeType,
		Amount:          amount,
		TransactionDate: transactionDate,
		DisclosureDate:  disclosureDate,
		Source:          "FMP",
	}, nil
}

// classifyTransaction maps the provider's free-text transaction label to
// a trade direction. Unknown labels pass through title-cased.
func classifyTransaction(transaction string) string {
	lower := strings.ToLower(strings.TrimSpace(transaction))
	switch {
	case strings.Contains(lower, "purchase"), strings.Contains(lower, "buy"):
		return "Buy"
	case strings.Contains(lower, "sale"), strings.Contains(lower, "sell"):
		return "Sell"
	default:
		return titleCase(lower)
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// parseAmountRange parses the provider's dollar amount field. Ranges of
// the form "$1,001 - $15,000" resolve to their arithmetic midpoint; a
// bare number parses directly. An empty field is a defined zero, not a
// parse failure; the second return value reports false only for
// genuinely unparseable text.
func parseAmountRange(amount string) (float64, bool) {
	clean := strings.NewReplacer("$", "", ",", "").Replace(amount)
	if strings.TrimSpace(clean) == "" {
		return 0, true
	}

	if strings.Contains(clean, " - ") {
		parts := strings.SplitN(clean, " - ", 2)
		min, err1 := decimal.NewFromString(strings.TrimSpace(parts[0]))
		max, err2 := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return 0, false
		}
		return min.Add(max).Div(decimal.NewFromInt(2)).InexactFloat64(), true
	}

	value, err := decimal.NewFromString(strings.TrimSpace(clean))
	if err != nil {
		return 0, false
	}
	return value.InexactFloat64(), true
}

// DisclosureDelayDays returns the whole days between a trade's
// transaction date and its disclosure date. Negative values happen when
// the provider's dates are inconsistent and are kept as-is.
func DisclosureDelayDays(transactionDate, disclosureDate time.Time) int {
	return int(disclosureDate.Sub(transactionDate).Hours() / 24)
}
