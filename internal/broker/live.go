package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/domain"
)

// Live is an HTTP Gateway for a REST broker API that accepts an API key
// in the POST body and returns {"status": ..., "data": ...} envelopes.
// Grounded on
// original_source/portfolio_manager/brokers/openalgo_client.py's
// endpoint set (placeorder, orderbook, funds, quotes, modifyorder,
// cancelorder, closeposition); the exact wire schema of any specific
// broker is out of scope per spec.md §1, so field names here follow
// that reference client closely but are not claimed to match a live
// broker without adaptation.
type Live struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewLive returns a Live gateway targeting baseURL with the given API
// key.
func NewLive(baseURL, apiKey string, log zerolog.Logger) *Live {
	return &Live{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.With().Str("component", "broker.live").Logger(),
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	OrderID string          `json:"orderid"`
	Data    json.RawMessage `json:"data"`
}

func (l *Live) post(ctx context.Context, path string, payload map[string]any) (envelope, error) {
	return withRetry(ctx, func(ctx context.Context) (envelope, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return envelope{}, fmt.Errorf("broker: marshal request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return envelope{}, fmt.Errorf("broker: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := l.httpClient.Do(req)
		if err != nil {
			l.log.Warn().Err(err).Str("path", path).Msg("broker request failed, will retry")
			return envelope{}, err
		}
		defer resp.Body.Close()

		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return envelope{}, fmt.Errorf("broker: decode response: %w", err)
		}
		if resp.StatusCode >= 500 {
			return envelope{}, fmt.Errorf("broker: server error %d: %s", resp.StatusCode, env.Message)
		}
		return env, nil
	})
}

func (l *Live) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	payload := map[string]any{
		"apikey":             l.apiKey,
		"strategy":           req.Strategy,
		"symbol":             req.Symbol,
		"exchange":           req.Exchange,
		"action":             string(req.Side),
		"product":            "NRML",
		"pricetype":          string(req.Type),
		"quantity":           strconv.Itoa(req.Quantity),
		"price":              req.LimitPrice.String(),
		"trigger_price":      "0",
		"disclosed_quantity": "0",
	}
	env, err := l.post(ctx, "/api/v1/placeorder", payload)
	if err != nil {
		return OrderResult{Status: OrderRejected, Message: err.Error()}, err
	}
	if env.Status != "success" {
		return OrderResult{OrderID: env.OrderID, Status: OrderRejected, Message: env.Message}, nil
	}
	return OrderResult{OrderID: env.OrderID, Status: OrderOpen}, nil
}

func (l *Live) OrderStatus(ctx context.Context, orderID string) (OrderResult, error) {
	env, err := l.post(ctx, "/api/v1/orderbook", map[string]any{"apikey": l.apiKey})
	if err != nil {
		return OrderResult{}, err
	}
	var orders []struct {
		OrderID   string  `json:"orderid"`
		Status    string  `json:"order_status"`
		FilledQty int     `json:"filled_quantity"`
		AvgPrice  float64 `json:"average_price"`
	}
	if err := json.Unmarshal(env.Data, &orders); err != nil {
		return OrderResult{}, fmt.Errorf("broker: decode orderbook: %w", err)
	}
	for _, o := range orders {
		if o.OrderID == orderID {
			return OrderResult{
				OrderID:      o.OrderID,
				Status:       OrderStatus(o.Status),
				FilledQty:    o.FilledQty,
				AvgFillPrice: domain.NewMoney(o.AvgPrice),
			}, nil
		}
	}
	return OrderResult{}, fmt.Errorf("broker: order %q not found in orderbook", orderID)
}

func (l *Live) ModifyOrder(ctx context.Context, orderID string, newPrice domain.Decimal) (OrderResult, error) {
	env, err := l.post(ctx, "/api/v1/modifyorder", map[string]any{
		"apikey":   l.apiKey,
		"orderid":  orderID,
		"newprice": newPrice.String(),
	})
	if err != nil {
		return OrderResult{}, err
	}
	return OrderResult{OrderID: orderID, Status: OrderOpen, Message: env.Message}, nil
}

func (l *Live) CancelOrder(ctx context.Context, orderID string) error {
	_, err := l.post(ctx, "/api/v1/cancelorder", map[string]any{"apikey": l.apiKey, "orderid": orderID})
	return err
}

func (l *Live) ClosePosition(ctx context.Context, symbol string, quantity int) (OrderResult, error) {
	env, err := l.post(ctx, "/api/v1/closeposition", map[string]any{
		"apikey":   l.apiKey,
		"symbol":   symbol,
		"exchange": "NFO",
		"product":  "NRML",
	})
	if err != nil {
		return OrderResult{Status: OrderRejected, Message: err.Error()}, err
	}
	return OrderResult{OrderID: env.OrderID, Status: OrderFilled, FilledQty: quantity}, nil
}

func (l *Live) Positions(ctx context.Context) ([]Position, error) {
	env, err := l.post(ctx, "/api/v1/positionbook", map[string]any{"apikey": l.apiKey})
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Symbol   string  `json:"symbol"`
		Quantity int     `json:"quantity"`
		AvgPrice float64 `json:"average_price"`
	}
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return nil, fmt.Errorf("broker: decode positionbook: %w", err)
	}
	out := make([]Position, 0, len(raw))
	for _, p := range raw {
		out = append(out, Position{Symbol: p.Symbol, Quantity: p.Quantity, AvgPrice: domain.NewMoney(p.AvgPrice)})
	}
	return out, nil
}

func (l *Live) Funds(ctx context.Context) (Funds, error) {
	env, err := l.post(ctx, "/api/v1/funds", map[string]any{"apikey": l.apiKey})
	if err != nil {
		return Funds{}, err
	}
	var raw struct {
		AvailableCash string `json:"availablecash"`
		UsedMargin    string `json:"utiliseddebits"`
		Collateral    string `json:"collateral"`
	}
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return Funds{}, fmt.Errorf("broker: decode funds: %w", err)
	}
	avail, _ := strconv.ParseFloat(raw.AvailableCash, 64)
	used, _ := strconv.ParseFloat(raw.UsedMargin, 64)
	return Funds{
		AvailableMargin: domain.NewMoney(avail),
		UsedMargin:      domain.NewMoney(used),
		Equity:          domain.NewMoney(avail + used),
	}, nil
}

func (l *Live) Quote(ctx context.Context, symbol, exchange string) (Quote, error) {
	env, err := l.post(ctx, "/api/v1/quotes", map[string]any{
		"apikey":   l.apiKey,
		"symbol":   symbol,
		"exchange": exchange,
	})
	if err != nil {
		return Quote{}, err
	}
	var raw struct {
		LTP float64 `json:"ltp"`
	}
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return Quote{}, fmt.Errorf("broker: decode quote: %w", err)
	}
	return Quote{Symbol: symbol, LastPrice: domain.NewMoney(raw.LTP), AsOf: time.Now()}, nil
}

// strikeInterval is the strike spacing used to synthesize a chain
// ladder around spot; openalgo_client.py exposes no option-chain
// endpoint, only per-symbol get_quote, so OptionChain builds its own
// ladder and quotes each strike individually rather than porting a
// chain call that does not exist in the reference client.
const strikeInterval = 50.0

// ladderHalfWidth bounds how many strikes OptionChain quotes on either
// side of spot, keeping a live hedge-selection tick to a bounded number
// of HTTP round-trips.
const ladderHalfWidth = 20

// OptionChain synthesizes an option chain for index/expiry by quoting a
// strike ladder around the index's current spot price. index is the
// bare index name (e.g. "NIFTY"); expiry is the broker-formatted expiry
// suffix already embedded in the symbols this synthesizes
// (e.g. "25DEC24").
func (l *Live) OptionChain(ctx context.Context, index, expiry string) ([]OptionQuote, error) {
	spotQuote, err := l.Quote(ctx, index, "NSE_INDEX")
	if err != nil {
		return nil, fmt.Errorf("broker: spot quote for option chain: %w", err)
	}
	spot := spotQuote.LastPrice.Float64()
	atmStrike := math.Round(spot/strikeInterval) * strikeInterval

	out := make([]OptionQuote, 0, ladderHalfWidth*4)
	for i := -ladderHalfWidth; i <= ladderHalfWidth; i++ {
		strike := atmStrike + float64(i)*strikeInterval
		for _, optType := range []OptionType{CallOption, PutOption} {
			symbol := fmt.Sprintf("%s%s%d%s", index, expiry, int(strike), optType)
			q, err := l.Quote(ctx, symbol, "NFO")
			if err != nil {
				continue
			}
			out = append(out, OptionQuote{
				Symbol:      symbol,
				Strike:      strike,
				OptionType:  optType,
				LastPrice:   q.LastPrice,
				OTMDistance: math.Abs(strike - spot),
			})
		}
	}
	return out, nil
}

var _ Gateway = (*Live)(nil)
