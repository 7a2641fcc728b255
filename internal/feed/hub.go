// Package feed implements the price feed hub: per-instrument polling loops
// that produce synthetic but internally consistent ticks and fan them out to
// subscribers. Loop lifecycle is reference counted; the first subscription
// for an instrument starts its loop and the last unsubscribe stops it.
package feed

import (
	"math/rand"
	"sync"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/orbit-lab/orbit-trading/internal/logger"
	"github.com/orbit-lab/orbit-trading/internal/scheduler"
	"github.com/orbit-lab/orbit-trading/internal/types"
)

// TickHandler receives ticks for a subscribed instrument. Handlers must not
// subscribe or unsubscribe from within the callback.
type TickHandler func(tick types.PriceTick)

// UnsubscribeFunc removes a subscription. After it returns, the handler
// receives no further ticks. Safe to call more than once.
type UnsubscribeFunc func()

type subscriberEntry struct {
	id      int
	handler TickHandler
}

type instrumentFeed struct {
	profile InstrumentProfile
	cancel  scheduler.CancelFunc
	// deliverMu serializes tick generation/delivery with unsubscription so
	// that unsubscribe can wait out an in-flight delivery.
	deliverMu   sync.Mutex
	subscribers []subscriberEntry
	nextSubID   int
}

// Hub owns every instrument feed and the latest-tick cache.
type Hub struct {
	sched scheduler.Scheduler
	log   *logger.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu     sync.RWMutex
	feeds  map[string]*instrumentFeed
	latest map[string]types.PriceTick
}

// NewHub creates a price feed hub. The rng drives the random walk and is
// injected so tests can seed it.
func NewHub(sched scheduler.Scheduler, rng *rand.Rand, log *logger.Logger) *Hub {
	return &Hub{
		sched:  sched,
		log:    log,
		rng:    rng,
		feeds:  make(map[string]*instrumentFeed),
		latest: make(map[string]types.PriceTick),
	}
}

// Subscribe registers a handler for an instrument's ticks. The first
// subscriber starts the instrument's polling loop at its class cadence.
func (h *Hub) Subscribe(symbol string, handler TickHandler) UnsubscribeFunc {
	h.mu.Lock()

	feed, ok := h.feeds[symbol]
	if !ok {
		feed = &instrumentFeed{
			profile: LookupProfile(symbol),
		}
		// The loop is armed before the entry becomes visible, so a
		// concurrent last-unsubscribe always finds a cancellable task.
		interval := PollInterval(feed.profile.Class)
		feed.cancel = h.sched.Schedule(interval, func() { h.poll(feed) })
		h.feeds[symbol] = feed
	}

	feed.nextSubID++
	id := feed.nextSubID
	feed.subscribers = append(feed.subscribers, subscriberEntry{id: id, handler: handler})

	startLoop := !ok
	h.mu.Unlock()

	if startLoop {
		h.log.Debug("Feed loop started",
			zap.String("symbol", symbol),
			zap.Duration("interval", PollInterval(feed.profile.Class)),
		)
	}

	var once sync.Once

	return func() {
		once.Do(func() { h.unsubscribe(symbol, id) })
	}
}

func (h *Hub) unsubscribe(symbol string, id int) {
	h.mu.Lock()

	feed, ok := h.feeds[symbol]
	if !ok {
		h.mu.Unlock()

		return
	}

	for i, entry := range feed.subscribers {
		if entry.id == id {
			feed.subscribers = append(feed.subscribers[:i], feed.subscribers[i+1:]...)

			break
		}
	}

	stopLoop := len(feed.subscribers) == 0
	if stopLoop {
		delete(h.feeds, symbol)
	}

	h.mu.Unlock()

	if stopLoop {
		// Blocks until the loop goroutine exits, so no tick fires after
		// this unsubscribe returns.
		feed.cancel()

		h.log.Debug("Feed loop stopped", zap.String("symbol", symbol))
	} else {
		// Wait out any in-flight delivery that may still hold a snapshot
		// containing the removed handler.
		feed.deliverMu.Lock()
		//nolint:staticcheck // empty critical section is the synchronization point
		feed.deliverMu.Unlock()
	}
}

// Latest returns the cached latest tick for an instrument. It never blocks
// on tick generation and returns None if the instrument was never subscribed.
// The cache survives loop teardown for late joiners.
func (h *Hub) Latest(symbol string) optional.Option[types.PriceTick] {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if tick, ok := h.latest[symbol]; ok {
		return optional.Some(tick)
	}

	return optional.None[types.PriceTick]()
}

// ActiveSymbols returns the instruments that currently have a running loop.
func (h *Hub) ActiveSymbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	symbols := make([]string, 0, len(h.feeds))
	for symbol := range h.feeds {
		symbols = append(symbols, symbol)
	}

	return symbols
}

// SubscriberCount returns the number of subscribers for an instrument.
func (h *Hub) SubscriberCount(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if feed, ok := h.feeds[symbol]; ok {
		return len(feed.subscribers)
	}

	return 0
}

// StopAll tears down every polling loop synchronously and drops all
// subscriptions. Used by disconnect, which requires that no tick flows after
// it returns. The latest-tick cache is kept.
func (h *Hub) StopAll() {
	h.mu.Lock()

	stopped := make([]*instrumentFeed, 0, len(h.feeds))
	for symbol, feed := range h.feeds {
		feed.subscribers = nil
		stopped = append(stopped, feed)
		delete(h.feeds, symbol)
	}

	h.mu.Unlock()

	for _, feed := range stopped {
		feed.cancel()
	}

	if len(stopped) > 0 {
		h.log.Debug("All feed loops stopped", zap.Int("count", len(stopped)))
	}
}

// poll generates the next tick for an instrument and fans it out to all
// current subscribers in subscription order.
func (h *Hub) poll(feed *instrumentFeed) {
	feed.deliverMu.Lock()
	defer feed.deliverMu.Unlock()

	h.mu.Lock()

	previous, hasPrevious := h.latest[feed.profile.Symbol]

	tick := h.nextTick(feed.profile, previous, hasPrevious)
	if err := tick.Validate(); err != nil {
		// A single bad tick is never fatal; skip this cycle and let the
		// loop continue.
		h.mu.Unlock()
		h.log.Warn("Tick generation failed",
			zap.String("symbol", feed.profile.Symbol),
			zap.Error(err),
		)

		return
	}

	h.latest[feed.profile.Symbol] = tick
	subscribers := make([]subscriberEntry, len(feed.subscribers))
	copy(subscribers, feed.subscribers)

	h.mu.Unlock()

	for _, entry := range subscribers {
		h.deliver(entry, tick)
	}
}

// deliver invokes one handler, isolating panics so a broken subscriber
// cannot abort the loop or affect other subscribers.
func (h *Hub) deliver(entry subscriberEntry, tick types.PriceTick) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Subscriber panicked on tick",
				zap.String("symbol", tick.Symbol),
				zap.Int("subscriber", entry.id),
				zap.Any("panic", r),
			)
		}
	}()

	entry.handler(tick)
}

// nextTick advances the bounded random walk. The walk is scaled to the
// instrument's typical daily range and the shadows are placed so that
// low <= last <= high with open interpolated between them.
func (h *Hub) nextTick(profile InstrumentProfile, previous types.PriceTick, hasPrevious bool) types.PriceTick {
	h.rngMu.Lock()
	step := (h.rng.Float64()*2 - 1) * profile.DailyRange * walkFraction
	highShadow := h.rng.Float64() * profile.DailyRange * shadowFraction
	lowShadow := h.rng.Float64() * profile.DailyRange * shadowFraction
	openBlend := h.rng.Float64()
	volumeJitter := h.rng.Float64()
	h.rngMu.Unlock()

	last := profile.BasePrice
	if hasPrevious {
		last = previous.Last + step
	}

	// Keep the walk from drifting through zero on long runs.
	if floor := profile.BasePrice * 0.2; last < floor {
		last = floor
	}

	high := last + highShadow
	low := last - lowShadow

	if low <= 0 {
		low = last * 0.999
	}

	return types.PriceTick{
		Symbol: profile.Symbol,
		Bid:    last - profile.Spread/2,
		Ask:    last + profile.Spread/2,
		Last:   last,
		Open:   low + openBlend*(high-low),
		High:   high,
		Low:    low,
		Volume: profile.BaseVolume * (0.5 + volumeJitter),
		Time:   h.sched.Now(),
	}
}
