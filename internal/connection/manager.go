// Package connection manages the broker connection lifecycle: credential
// validation, the handshake state machine, the account snapshot, and the
// periodic account refresh while connected.
package connection

import (
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/orbit-lab/orbit-trading/internal/logger"
	"github.com/orbit-lab/orbit-trading/internal/scheduler"
	"github.com/orbit-lab/orbit-trading/internal/types"
	"github.com/orbit-lab/orbit-trading/pkg/errors"
)

// DefaultRefreshInterval is how often account figures are refreshed while
// connected.
const DefaultRefreshInterval = 5 * time.Second

// StatusListener observes connection state transitions. Listeners are invoked
// synchronously in registration order after each transition.
type StatusListener func(status types.ConnectionStatus)

// RefreshListener observes completed account refreshes.
type RefreshListener func(account types.AccountInfo, positions []types.Position)

// Manager owns the broker connection state machine:
//
//	Disconnected -> Connecting -> Connected
//	Connecting   -> Error -> Disconnected   (on handshake failure)
//
// A failed handshake always lands back in Disconnected so a retry is
// possible. Disconnect is idempotent.
type Manager struct {
	gateway         BrokerGateway
	sched           scheduler.Scheduler
	log             *logger.Logger
	refreshInterval time.Duration

	mu               sync.RWMutex
	status           types.ConnectionStatus
	account          optional.Option[types.AccountInfo]
	positions        []types.Position
	listeners        map[int]StatusListener
	refreshListeners map[int]RefreshListener
	nextListenerID   int
	refreshCancel    scheduler.CancelFunc
}

// NewManager creates a disconnected manager around the given gateway.
func NewManager(gateway BrokerGateway, sched scheduler.Scheduler, log *logger.Logger, refreshInterval time.Duration) *Manager {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}

	return &Manager{
		gateway:          gateway,
		sched:            sched,
		log:              log,
		refreshInterval:  refreshInterval,
		status:           types.ConnectionStatusDisconnected,
		listeners:        make(map[int]StatusListener),
		refreshListeners: make(map[int]RefreshListener),
	}
}

// Connect validates the credentials, performs the handshake, and on success
// stores the account snapshot and starts the periodic refresh. Validation
// failures are rejected before any state transition happens.
func (m *Manager) Connect(creds types.Credentials) (types.AccountInfo, error) {
	if err := creds.Validate(); err != nil {
		return types.AccountInfo{}, err
	}

	m.mu.Lock()

	switch m.status {
	case types.ConnectionStatusConnected:
		account, _ := m.account.Take()
		m.mu.Unlock()

		return account, nil
	case types.ConnectionStatusConnecting:
		m.mu.Unlock()

		return types.AccountInfo{}, errors.New(errors.ErrCodeAlreadyConnecting, "a connection attempt is already in progress")
	case types.ConnectionStatusDisconnected, types.ConnectionStatusError:
	}

	m.status = types.ConnectionStatusConnecting
	m.mu.Unlock()
	m.notify(types.ConnectionStatusConnecting)

	m.log.Info("Connecting to broker",
		zap.String("server", creds.Server),
		zap.String("login", creds.Login),
	)

	account, positions, err := m.gateway.Authenticate(creds)
	if err != nil {
		m.mu.Lock()
		m.status = types.ConnectionStatusError
		m.mu.Unlock()
		m.notify(types.ConnectionStatusError)

		// Land back in Disconnected so the caller can retry immediately.
		m.mu.Lock()
		m.status = types.ConnectionStatusDisconnected
		m.mu.Unlock()
		m.notify(types.ConnectionStatusDisconnected)

		m.log.Warn("Broker handshake failed",
			zap.String("server", creds.Server),
			zap.Error(err),
		)

		return types.AccountInfo{}, err
	}

	m.mu.Lock()
	m.status = types.ConnectionStatusConnected
	m.account = optional.Some(account)
	m.positions = positions
	m.refreshCancel = m.sched.Schedule(m.refreshInterval, m.refresh)
	m.mu.Unlock()
	m.notify(types.ConnectionStatusConnected)

	m.log.Info("Connected to broker",
		zap.String("server", creds.Server),
		zap.Float64("balance", account.Balance),
		zap.String("currency", account.Currency),
	)

	return account, nil
}

// Disconnect tears the session down: stops the refresh task, clears the
// account snapshot and positions, and transitions to Disconnected. Calling it
// while already disconnected is a no-op.
func (m *Manager) Disconnect() {
	m.mu.Lock()

	if m.status == types.ConnectionStatusDisconnected {
		m.mu.Unlock()

		return
	}

	cancel := m.refreshCancel
	m.refreshCancel = nil
	m.status = types.ConnectionStatusDisconnected
	m.account = optional.None[types.AccountInfo]()
	m.positions = nil
	m.mu.Unlock()

	if cancel != nil {
		// Blocks until the refresh task cannot fire again.
		cancel()
	}

	m.notify(types.ConnectionStatusDisconnected)
	m.log.Info("Disconnected from broker")
}

// Status returns the current connection status.
func (m *Manager) Status() types.ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.status
}

// IsConnected reports whether a session is established.
func (m *Manager) IsConnected() bool {
	return m.Status() == types.ConnectionStatusConnected
}

// Account returns the latest account snapshot, or None while disconnected.
func (m *Manager) Account() optional.Option[types.AccountInfo] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.account
}

// Positions returns a copy of the open positions reported by the broker.
func (m *Manager) Positions() []types.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	positions := make([]types.Position, len(m.positions))
	copy(positions, m.positions)

	return positions
}

// OnStatusChange registers a listener for state transitions. The returned
// cancel removes the listener; after it returns the listener is not invoked
// again.
func (m *Manager) OnStatusChange(listener StatusListener) scheduler.CancelFunc {
	m.mu.Lock()
	m.nextListenerID++
	id := m.nextListenerID
	m.listeners[id] = listener
	m.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// OnRefresh registers a listener for completed account refreshes. The
// returned cancel removes the listener.
func (m *Manager) OnRefresh(listener RefreshListener) scheduler.CancelFunc {
	m.mu.Lock()
	m.nextListenerID++
	id := m.nextListenerID
	m.refreshListeners[id] = listener
	m.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.refreshListeners, id)
			m.mu.Unlock()
		})
	}
}

// PlaceMarketOrder forwards a market order to the broker. A successful fill
// opens a position so subsequent refreshes track its running P&L. Fails with
// a not-connected error when no session is established.
func (m *Manager) PlaceMarketOrder(symbol string, direction types.TradeDirection, quantity float64, price float64) (float64, error) {
	if !m.IsConnected() {
		return 0, errors.New(errors.ErrCodeNotConnected, "cannot place order: not connected to broker")
	}

	fill, err := m.gateway.PlaceMarketOrder(symbol, direction, quantity, price)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.positions = append(m.positions, types.Position{
		Symbol:       symbol,
		Direction:    direction,
		Quantity:     quantity,
		OpenPrice:    fill,
		CurrentPrice: fill,
		OpenedAt:     m.sched.Now(),
	})
	m.mu.Unlock()

	return fill, nil
}

// notify invokes every registered listener with the new status. Listeners are
// called outside the state lock so they may query the manager.
func (m *Manager) notify(status types.ConnectionStatus) {
	m.mu.RLock()

	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}

	snapshot := make([]StatusListener, 0, len(ids))

	for _, id := range ids {
		snapshot = append(snapshot, m.listeners[id])
	}

	m.mu.RUnlock()

	for _, listener := range snapshot {
		listener(status)
	}
}

// refresh pulls updated account and position figures from the gateway and
// reports them to refresh listeners. Runs on the scheduler while connected.
func (m *Manager) refresh() {
	m.mu.Lock()

	if m.status != types.ConnectionStatusConnected {
		m.mu.Unlock()

		return
	}

	account, err := m.account.Take()
	if err != nil {
		m.mu.Unlock()

		return
	}

	refreshedAccount, refreshedPositions := m.gateway.Refresh(account, m.positions)
	m.account = optional.Some(refreshedAccount)
	m.positions = refreshedPositions

	positions := make([]types.Position, len(refreshedPositions))
	copy(positions, refreshedPositions)

	listeners := make([]RefreshListener, 0, len(m.refreshListeners))
	for _, listener := range m.refreshListeners {
		listeners = append(listeners, listener)
	}

	m.mu.Unlock()

	for _, listener := range listeners {
		listener(refreshedAccount, positions)
	}
}
