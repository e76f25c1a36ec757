package fmp

import "time"

// mockRawTrades returns the deterministic sample dataset served when no
// API key is configured, so the rest of the pipeline stays exercisable.
func mockRawTrades(endpoint string) []RawTrade {
	switch endpoint {
	case senateEndpoint:
		return []RawTrade{
			{
				Representative:  "Hon. Chuck Schumer",
				Transaction:     "Purchase",
				Ticker:          "AAPL",
				TransactionDate: "2025-01-15",
				PublicationDate: "2025-02-01",
				Amount:          "$1,001 - $15,000",
			},
			{
				Representative:  "Hon. Susan Collins",
				Transaction:     "Sale",
				Ticker:          "MSFT",
				TransactionDate: "2025-01-20",
				PublicationDate: "2025-02-05",
				Amount:          "$15,001 - $50,000",
			},
		}
	case houseEndpoint:
		return []RawTrade{
			{
				Representative:  "Hon. Nancy Pelosi",
				Transaction:     "Purchase",
				Ticker:          "GOOGL",
				TransactionDate: "2025-01-10",
				PublicationDate: "2025-01-30",
				Amount:          "$50,001 - $100,000",
			},
		}
	}
	return nil
}

// fallbackTrades is the fixed two-record set substituted when both
// chamber fetches come back empty.
func fallbackTrades() []TradeRecord {
	return []TradeRecord{
		{
			PoliticianName:  "Nancy Pelosi",
			Chamber:         ChamberHouse,
			Ticker:          "AAPL",
			TradeType:       "Buy",
			Amount:          15000,
			TransactionDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			DisclosureDate:  time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			Source:          "FMP",
		},
		{
			PoliticianName:  "Chuck Schumer",
			Chamber:         ChamberSenate,
			Ticker:          "MSFT",
			TradeType:       "Sell",
			Amount:          32500,
			TransactionDate: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
			DisclosureDate:  time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC),
			Source:          "FMP",
		},
	}
}
