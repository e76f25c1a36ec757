package alpaca

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	baseURL      = "https://api.alpaca.markets"
	paperBaseURL = "https://paper-api.alpaca.markets"

	OrderSideBuy    = "buy"
	OrderTypeMarket = "market"
	TimeInForceDay  = "day"
)

// Order is the brokerage's view of a submitted order.
type Order struct {
	ID             string `json:"id"`
	ClientOrderID  string `json:"client_order_id"`
	Symbol         string `json:"symbol"`
	Notional       string `json:"notional"`
	Qty            string `json:"qty"`
	FilledQty      string `json:"filled_qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
	Side           string `json:"side"`
	Type           string `json:"type"`
	Status         string `json:"status"`
}

// FilledQuantity returns the filled quantity as a float, 0 when unset.
func (o *Order) FilledQuantity() float64 {
	qty, _ := strconv.ParseFloat(o.Qty, 64)
	return qty
}

// FillPrice returns the average fill price as a float, 0 when unset.
func (o *Order) FillPrice() float64 {
	price, _ := strconv.ParseFloat(o.FilledAvgPrice, 64)
	return price
}

// Account holds the subset of the brokerage account we care about.
type Account struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	BuyingPower string `json:"buying_power"`
	Cash        string `json:"cash"`
}

// ClientInterface defines the interface for the Alpaca trading client.
type ClientInterface interface {
	SubmitMarketOrder(ctx context.Context, symbol string, notional float64) (*Order, error)
	GetAccount(ctx context.Context) (*Account, error)
}

// Client is a client for the Alpaca trading API. One Client is built per
// user from that user's linked account credentials.
type Client struct {
	client *resty.Client
	logger *zap.Logger
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Alpaca trading client.
func NewClient(apiKey, secretKey string, paper bool, logger *zap.Logger) *Client {
	url := baseURL
	if paper {
		url = paperBaseURL
	}

	client := resty.New().
		SetBaseURL(url).
		SetHeader("APCA-API-KEY-ID", apiKey).
		SetHeader("APCA-API-SECRET-KEY", secretKey)

	return &Client{
		client: client,
		logger: logger,
	}
}

// SubmitMarketOrder places a day market order for a dollar amount of
// the given symbol and returns the brokerage's order record.
func (c *Client) SubmitMarketOrder(ctx context.Context, symbol string, notional float64) (*Order, error) {
	body := map[string]interface{}{
		"symbol":        symbol,
		"notional":      fmt.Sprintf("%.2f", notional),
		"side":          OrderSideBuy,
		"type":          OrderTypeMarket,
		"time_in_force": TimeInForceDay,
	}

	var order Order
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&order).
		Post("/v2/orders")
	if err != nil {
		return nil, fmt.Errorf("failed to submit order for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("order rejected with status %s: %s", resp.Status(), resp.String())
	}

	c.logger.Info("Submitted market order",
		zap.String("symbol", symbol),
		zap.Float64("notional", notional),
		zap.String("order_id", order.ID))
	return &order, nil
}

// GetAccount fetches the brokerage account.
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	var account Account
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&account).
		Get("/v2/account")
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("account request failed with status %s: %s", resp.Status(), resp.String())
	}
	return &account, nil
}
