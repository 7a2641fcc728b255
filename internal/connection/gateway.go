package connection

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/orbit-lab/orbit-trading/internal/types"
	"github.com/orbit-lab/orbit-trading/pkg/errors"
)

// BrokerGateway is the broker-side primitive the connection manager and the
// execution pipeline talk to. Implementations may be real broker sessions or
// deterministic simulations.
type BrokerGateway interface {
	// Authenticate performs the handshake and returns the account snapshot
	// and open positions on success.
	Authenticate(creds types.Credentials) (types.AccountInfo, []types.Position, error)
	// PlaceMarketOrder submits a market order at the given reference price
	// and returns the fill price.
	PlaceMarketOrder(symbol string, direction types.TradeDirection, quantity float64, price float64) (float64, error)
	// Refresh returns updated account and position figures for the periodic
	// account refresh task.
	Refresh(account types.AccountInfo, positions []types.Position) (types.AccountInfo, []types.Position)
}

// Demo account figures reported by the simulated gateway.
const (
	demoBalance  = 10000.00
	demoLeverage = 100
	demoCurrency = "USD"
)

// DemoGateway simulates a broker backend. Handshake outcomes are
// deterministic functions of the credentials so tests and demos can exercise
// every error category:
//
//   - server ending in "-timeout" fails with a timeout
//   - unknown server fails with server-not-found
//   - login starting with "0" fails with invalid credentials
//   - password "blocked" fails with account-blocked
//
// Everything else authenticates against a demo account.
type DemoGateway struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var knownServers = map[string]bool{
	"MetaQuotes-Demo": true,
	"MetaQuotes-Live": true,
}

// NewDemoGateway creates a simulated broker gateway.
func NewDemoGateway(rng *rand.Rand) *DemoGateway {
	return &DemoGateway{rng: rng}
}

// Authenticate implements BrokerGateway.
func (g *DemoGateway) Authenticate(creds types.Credentials) (types.AccountInfo, []types.Position, error) {
	if strings.HasSuffix(creds.Server, "-timeout") {
		return types.AccountInfo{}, nil, errors.Newf(errors.ErrCodeConnectionTimeout, "connection to %s timed out", creds.Server)
	}

	if !knownServers[creds.Server] {
		return types.AccountInfo{}, nil, errors.Newf(errors.ErrCodeServerNotFound, "trade server not found: %s", creds.Server)
	}

	if strings.HasPrefix(creds.Login, "0") {
		return types.AccountInfo{}, nil, errors.New(errors.ErrCodeInvalidCredentials, "authorization failed: wrong login or password")
	}

	if creds.Password == "blocked" {
		return types.AccountInfo{}, nil, errors.Newf(errors.ErrCodeAccountBlocked, "account %s is blocked by the broker", creds.Login)
	}

	account := types.AccountInfo{
		Balance:    demoBalance,
		Equity:     demoBalance,
		Margin:     0,
		FreeMargin: demoBalance,
		Leverage:   demoLeverage,
		Currency:   demoCurrency,
	}

	positions := []types.Position{
		{
			Symbol:       "EURUSD",
			Direction:    types.TradeDirectionBuy,
			Quantity:     0.10,
			OpenPrice:    1.0820,
			CurrentPrice: 1.0820,
			OpenedAt:     time.Now().UTC(),
		},
		{
			Symbol:       "XAUUSD",
			Direction:    types.TradeDirectionSell,
			Quantity:     0.05,
			OpenPrice:    2362.0,
			CurrentPrice: 2362.0,
			OpenedAt:     time.Now().UTC(),
		},
	}

	return account, positions, nil
}

// PlaceMarketOrder implements BrokerGateway. Fills at the reference price
// plus a small random slippage.
func (g *DemoGateway) PlaceMarketOrder(symbol string, direction types.TradeDirection, quantity float64, price float64) (float64, error) {
	if quantity <= 0 {
		return 0, errors.Newf(errors.ErrCodeOrderRejected, "broker rejected quantity %f for %s", quantity, symbol)
	}

	if price <= 0 {
		return 0, errors.Newf(errors.ErrCodeOrderRejected, "broker rejected non-positive price for %s", symbol)
	}

	g.mu.Lock()
	slippage := (g.rng.Float64() - 0.5) * price * 0.0001
	g.mu.Unlock()

	return price + slippage, nil
}

// Refresh implements BrokerGateway. Drifts equity around balance and updates
// open-position profit accordingly.
func (g *DemoGateway) Refresh(account types.AccountInfo, positions []types.Position) (types.AccountInfo, []types.Position) {
	g.mu.Lock()
	defer g.mu.Unlock()

	refreshed := make([]types.Position, len(positions))

	totalProfit := 0.0

	for i, position := range positions {
		drift := (g.rng.Float64() - 0.5) * position.OpenPrice * 0.0001

		position.CurrentPrice += drift

		move := position.CurrentPrice - position.OpenPrice
		if position.Direction == types.TradeDirectionSell {
			move = -move
		}

		position.Profit = move * position.Quantity * 100000
		totalProfit += position.Profit
		refreshed[i] = position
	}

	account.Equity = account.Balance + totalProfit
	account.Margin = account.Balance * 0.02
	account.FreeMargin = account.Equity - account.Margin

	return account, refreshed
}

// Verify DemoGateway implements the BrokerGateway interface.
var _ BrokerGateway = (*DemoGateway)(nil)
