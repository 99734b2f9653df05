// ABOUTME: Publish/subscribe change notifications per collection.
// ABOUTME: Writers publish after commit; subscribers get a coalesced signal and re-run their query.
package storage

import "sync"

// Collection names a table whose changes can be observed.
type Collection string

const (
	Weights           Collection = "weights"
	Medications       Collection = "medications"
	OxygenReadings    Collection = "oxygen_readings"
	Exercises         Collection = "exercises"
	Water             Collection = "water"
	Foods             Collection = "foods"
	FavoriteFoods     Collection = "favorite_foods"
	FavoriteMeals     Collection = "favorite_meals"
	FavoriteMealItems Collection = "favorite_meal_items"
	UserAddedFoods    Collection = "user_added_foods"
)

// RecordCollections are the six metric collections included in a snapshot.
var RecordCollections = []Collection{Weights, Medications, OxygenReadings, Exercises, Water, Foods}

type subscription struct {
	colls map[Collection]bool
	ch    chan struct{}
}

// Changefeed fans out "collection changed" events to subscribers.
type Changefeed struct {
	mu     sync.Mutex
	subs   map[int]*subscription
	next   int
	closed bool
}

// NewChangefeed creates an empty change feed.
func NewChangefeed() *Changefeed {
	return &Changefeed{subs: make(map[int]*subscription)}
}

// Subscribe returns a channel that receives a signal whenever any of colls
// changes. Signals coalesce: a slow reader sees one pending signal, not one
// per write. The returned func unsubscribes and closes the channel.
func (f *Changefeed) Subscribe(colls ...Collection) (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan struct{}, 1)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	set := make(map[Collection]bool, len(colls))
	for _, c := range colls {
		set[c] = true
	}

	id := f.next
	f.next++
	f.subs[id] = &subscription{colls: set, ch: ch}

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub.ch)
		}
	}
}

// Publish notifies every subscriber watching one of colls.
func (f *Changefeed) Publish(colls ...Collection) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		for _, c := range colls {
			if !sub.colls[c] {
				continue
			}
			select {
			case sub.ch <- struct{}{}:
			default:
			}
			break
		}
	}
}

// Close ends every subscription.
func (f *Changefeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, sub := range f.subs {
		close(sub.ch)
		delete(f.subs, id)
	}
}
