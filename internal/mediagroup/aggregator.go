package mediagroup

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Item is one screenshot of a Telegram album.
type Item struct {
	ChatID       int64
	UserID       int64
	Username     string
	MediaGroupID string
	MessageID    int
	Caption      string
	FileID       string
}

// Group is a flushed album. FileIDs follow message order.
type Group struct {
	ChatID   int64
	UserID   int64
	Username string
	Caption  string
	FileIDs  []string
}

type Options struct {
	Debounce time.Duration
	// MaxItems flushes an album early once reached. Zero means 10, Telegram's album limit.
	MaxItems int
	OnFlush  func(Group)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	maxItems int
	onFlush  func(Group)
	groups   map[string]*pendingGroup
}

type pendingGroup struct {
	chatID   int64
	userID   int64
	username string
	caption  string
	items    []Item
	timer    *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = 10
	}

	return &Aggregator{
		debounce: debounce,
		maxItems: maxItems,
		onFlush:  opts.OnFlush,
		groups:   make(map[string]*pendingGroup),
	}
}

func (a *Aggregator) Add(item Item) {
	if item.MediaGroupID == "" || item.FileID == "" {
		return
	}

	key := makeKey(item.ChatID, item.MediaGroupID)

	a.mu.Lock()
	pg, ok := a.groups[key]
	if !ok {
		pg = &pendingGroup{
			chatID:   item.ChatID,
			userID:   item.UserID,
			username: item.Username,
		}
		a.groups[key] = pg
	}
	pg.items = append(pg.items, item)
	if item.Caption != "" {
		pg.caption = item.Caption
	}

	if pg.timer != nil {
		pg.timer.Stop()
	}
	if len(pg.items) >= a.maxItems {
		a.mu.Unlock()
		// OnFlush must not run on the Add goroutine: it may wait on a slot the caller holds.
		go a.flush(key)
		return
	}
	pg.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
	a.mu.Unlock()
}

// FlushAll delivers every pending album immediately.
func (a *Aggregator) FlushAll() {
	a.mu.Lock()
	keys := make([]string, 0, len(a.groups))
	for k, pg := range a.groups {
		if pg.timer != nil {
			pg.timer.Stop()
		}
		keys = append(keys, k)
	}
	a.mu.Unlock()

	sort.Strings(keys)
	for _, k := range keys {
		a.flush(k)
	}
}

func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pg, ok := a.groups[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.groups, key)
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(pg.group())
	}
}

func (pg *pendingGroup) group() Group {
	items := append([]Item(nil), pg.items...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].MessageID < items[j].MessageID
	})

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.FileID
	}
	return Group{
		ChatID:   pg.chatID,
		UserID:   pg.userID,
		Username: pg.username,
		Caption:  pg.caption,
		FileIDs:  ids,
	}
}

func makeKey(chatID int64, mediaGroupID string) string {
	return fmt.Sprintf("%d:%s", chatID, mediaGroupID)
}
