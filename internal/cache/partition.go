package cache

import (
	"fmt"
	"log"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	partitionRegistryKey = "cache:partitions"
	entryKeyFormat       = "cache:%s:entry:%s"
	indexKeyFormat       = "cache:%s:index"
)

// Entry is a cached network response. Status 0 marks an opaque cross-origin
// response; both 0 and 200 are considered cacheable by the strategies.
type Entry struct {
	URL      string              `msgpack:"url"`
	Status   int                 `msgpack:"status"`
	Header   map[string][]string `msgpack:"header,omitempty"`
	Body     []byte              `msgpack:"body"`
	StoredAt int64               `msgpack:"stored_at"` // epoch milliseconds
}

// Partition is a named, independently evicted bucket of cached responses.
// maxEntries == 0 means unbounded; maxAge == 0 means entries never expire.
// Eviction runs on every write: oldest-first over the entry count bound,
// then everything past the age bound.
type Partition struct {
	store      Store
	name       string
	maxEntries int64
	maxAge     time.Duration
	nowFunc    func() time.Time
}

// NewPartition creates (and registers) a partition. Registration makes the
// partition discoverable by diagnostics even from another context.
func NewPartition(store Store, name string, maxEntries int64, maxAge time.Duration) *Partition {
	p := &Partition{
		store:      store,
		name:       name,
		maxEntries: maxEntries,
		maxAge:     maxAge,
		nowFunc:    time.Now,
	}
	if store != nil {
		if err := store.SetAdd(partitionRegistryKey, name); err != nil {
			log.Printf("[Cache] Failed to register partition %s: %v", name, err)
		}
	}
	return p
}

// SetTimeProvider overrides the clock (used by tests).
func (p *Partition) SetTimeProvider(now func() time.Time) {
	p.nowFunc = now
}

func (p *Partition) Name() string {
	return p.name
}

func (p *Partition) entryKey(url string) string {
	return fmt.Sprintf(entryKeyFormat, p.name, url)
}

func (p *Partition) indexKey() string {
	return fmt.Sprintf(indexKeyFormat, p.name)
}

// Get returns the cached entry for a URL, or miss. Entries past the age
// bound are dropped on read as well, so a partition that sees no writes
// still honors its age cap.
func (p *Partition) Get(url string) (*Entry, bool) {
	if p == nil || p.store == nil {
		return nil, false
	}

	data, err := p.store.Get(p.entryKey(url))
	if err != nil {
		log.Printf("[Cache] %s: failed to read %s: %v", p.name, url, err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	var entry Entry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		log.Printf("[Cache] %s: corrupt entry for %s: %v", p.name, url, err)
		p.Delete(url)
		return nil, false
	}

	if p.maxAge > 0 {
		age := time.Duration(p.nowFunc().UnixMilli()-entry.StoredAt) * time.Millisecond
		if age > p.maxAge {
			p.Delete(url)
			return nil, false
		}
	}
	return &entry, true
}

// Put stores an entry and applies the partition's eviction policy.
func (p *Partition) Put(url string, entry *Entry) {
	if p == nil || p.store == nil || entry == nil {
		return
	}

	now := p.nowFunc()
	entry.URL = url
	entry.StoredAt = now.UnixMilli()

	data, err := msgpack.Marshal(entry)
	if err != nil {
		log.Printf("[Cache] %s: failed to encode %s: %v", p.name, url, err)
		return
	}

	if err := p.store.Set(p.entryKey(url), data, p.maxAge); err != nil {
		log.Printf("[Cache] %s: failed to store %s: %v", p.name, url, err)
		return
	}
	if err := p.store.ZAdd(p.indexKey(), float64(entry.StoredAt), url); err != nil {
		log.Printf("[Cache] %s: failed to index %s: %v", p.name, url, err)
	}

	p.evict(now)
}

// Delete removes one entry.
func (p *Partition) Delete(url string) {
	if p == nil || p.store == nil {
		return
	}
	if err := p.store.Delete(p.entryKey(url)); err != nil {
		log.Printf("[Cache] %s: failed to delete %s: %v", p.name, url, err)
	}
	if err := p.store.ZRem(p.indexKey(), url); err != nil {
		log.Printf("[Cache] %s: failed to unindex %s: %v", p.name, url, err)
	}
}

// Count returns the number of indexed entries.
func (p *Partition) Count() int64 {
	if p == nil || p.store == nil {
		return 0
	}
	n, err := p.store.ZCard(p.indexKey())
	if err != nil {
		log.Printf("[Cache] %s: failed to count: %v", p.name, err)
		return 0
	}
	return n
}

// Clear removes every entry but keeps the partition registered.
func (p *Partition) Clear() {
	if p == nil || p.store == nil {
		return
	}
	urls, err := p.store.ZRangeOldest(p.indexKey(), -1)
	if err != nil {
		log.Printf("[Cache] %s: failed to list entries: %v", p.name, err)
		return
	}
	for _, url := range urls {
		if err := p.store.Delete(p.entryKey(url)); err != nil {
			log.Printf("[Cache] %s: failed to delete %s: %v", p.name, url, err)
		}
	}
	if err := p.store.Delete(p.indexKey()); err != nil {
		log.Printf("[Cache] %s: failed to drop index: %v", p.name, err)
	}
}

// Destroy clears the partition and removes it from the registry.
func (p *Partition) Destroy() {
	if p == nil || p.store == nil {
		return
	}
	p.Clear()
	if err := p.store.SetRemove(partitionRegistryKey, p.name); err != nil {
		log.Printf("[Cache] %s: failed to unregister: %v", p.name, err)
	}
}

func (p *Partition) evict(now time.Time) {
	// Age bound first so expired entries do not count against the size cap.
	if p.maxAge > 0 {
		cutoff := float64(now.Add(-p.maxAge).UnixMilli())
		stale, err := p.store.ZRangeByScoreBelow(p.indexKey(), cutoff)
		if err != nil {
			log.Printf("[Cache] %s: age eviction scan failed: %v", p.name, err)
		} else {
			for _, url := range stale {
				p.Delete(url)
			}
		}
	}

	if p.maxEntries > 0 {
		count, err := p.store.ZCard(p.indexKey())
		if err != nil {
			log.Printf("[Cache] %s: size eviction count failed: %v", p.name, err)
			return
		}
		if excess := count - p.maxEntries; excess > 0 {
			oldest, err := p.store.ZRangeOldest(p.indexKey(), excess)
			if err != nil {
				log.Printf("[Cache] %s: size eviction scan failed: %v", p.name, err)
				return
			}
			for _, url := range oldest {
				p.Delete(url)
			}
		}
	}
}

// PartitionNames lists every registered partition in the shared store.
func PartitionNames(store Store) []string {
	if store == nil {
		return nil
	}
	names, err := store.SetMembers(partitionRegistryKey)
	if err != nil {
		log.Printf("[Cache] Failed to list partitions: %v", err)
		return nil
	}
	return names
}

// DestroyPartition clears and unregisters a partition by name, without
// needing the policy it was created with. Used by diagnostics' destructive
// cache wipe and by the worker when removing superseded versions.
func DestroyPartition(store Store, name string) {
	p := &Partition{store: store, name: name, nowFunc: time.Now}
	p.Destroy()
}
