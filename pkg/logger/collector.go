package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated entries to a topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectorConfig struct {
	TimeInterval   time.Duration // flush interval, default 30s
	CountThreshold int           // distinct entries that force an early flush, default 100
	PublishTimeout time.Duration // per batch, default 10s
	Topic          string
	Publisher      Publisher
	Now            func() time.Time
}

// Digest is one distinct warn/error event and how often it fired in the window.
type Digest struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Collector folds repeated events into digests and publishes them in batches,
// so a failing relay that logs on every request does not flood the topic.
type Collector struct {
	cfg     CollectorConfig
	mu      sync.Mutex
	pending map[uint64]*Digest
	kick    chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewCollector(cfg *CollectorConfig) *Collector {
	c := &Collector{
		cfg:     *cfg,
		pending: make(map[uint64]*Digest),
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	if c.cfg.TimeInterval <= 0 {
		c.cfg.TimeInterval = 30 * time.Second
	}
	if c.cfg.CountThreshold <= 0 {
		c.cfg.CountThreshold = 100
	}
	if c.cfg.PublishTimeout <= 0 {
		c.cfg.PublishTimeout = 10 * time.Second
	}
	if c.cfg.Now == nil {
		c.cfg.Now = time.Now
	}

	c.wg.Add(1)
	go c.loop()
	return c
}

func (c *Collector) Add(level, msg string, fields map[string]interface{}, caller string) {
	now := c.cfg.Now()
	key := digestKey(level, msg, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.pending[key]; ok {
		d.Count++
		d.LastSeen = now
	} else {
		c.pending[key] = &Digest{
			Level: level, Message: msg, Fields: fields, Caller: caller,
			Count: 1, FirstSeen: now, LastSeen: now,
		}
	}
	if len(c.pending) >= c.cfg.CountThreshold {
		select {
		case c.kick <- struct{}{}:
		default:
		}
	}
}

// Pending reports how many distinct digests await the next flush.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close stops the flush loop and publishes the final batch synchronously.
func (c *Collector) Close() {
	c.once.Do(func() { close(c.stop) })
	c.wg.Wait()
}

func (c *Collector) loop() {
	defer c.wg.Done()
	t := time.NewTicker(c.cfg.TimeInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			c.flush()
		case <-c.kick:
			c.flush()
		case <-c.stop:
			c.flush()
			return
		}
	}
}

func (c *Collector) flush() {
	c.mu.Lock()
	batch := c.drainLocked()
	c.mu.Unlock()
	c.publish(batch)
}

func (c *Collector) drainLocked() []Digest {
	if len(c.pending) == 0 {
		return nil
	}
	batch := make([]Digest, 0, len(c.pending))
	for _, d := range c.pending {
		batch = append(batch, *d)
	}
	c.pending = make(map[uint64]*Digest)
	sort.Slice(batch, func(i, j int) bool { return batch[i].FirstSeen.Before(batch[j].FirstSeen) })
	return batch
}

func (c *Collector) publish(batch []Digest) {
	if len(batch) == 0 || c.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PublishTimeout)
	defer cancel()
	if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
		// The logger itself may be what feeds this collector.
		fmt.Fprintf(os.Stderr, "log collector: publish %d digests: %v\n", len(batch), err)
	}
}

func digestKey(level, msg string, fields map[string]interface{}, caller string) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", level, msg, caller)
	// encoding/json sorts map keys, so equal field sets hash equally.
	_ = json.NewEncoder(h).Encode(fields)
	return h.Sum64()
}
