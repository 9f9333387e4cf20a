package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"imgshrink/intake"
	"imgshrink/variant"
)

// Session holds one client's current source image and the variants
// generated from it. The source is immutable; the variant list is only
// ever replaced wholesale, never merged.
type Session struct {
	ID        string
	Source    *intake.SourceImage
	Variants  []*variant.Variant
	CreatedAt time.Time
}

// Variant looks up a generated variant by label.
func (s *Session) Variant(label string) (*variant.Variant, bool) {
	for _, v := range s.Variants {
		if v.Label == label {
			return v, true
		}
	}
	return nil, false
}

type entry struct {
	clientID   string
	sess       *Session
	expiration time.Time
}

// Store keeps one session per client id, LRU-bounded with TTL expiry.
type Store struct {
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	lruList  *list.List
	mu       sync.RWMutex

	hitCount      int64
	missCount     int64
	evictionCount int64
}

func NewStore(capacity int, ttl time.Duration) *Store {
	return &Store{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element),
		lruList:  list.New(),
	}
}

// Replace installs a fresh session for the client, discarding any
// previous source image and all variants generated from it.
func (s *Store) Replace(clientID string, src *intake.SourceImage) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		ID:        uuid.New().String(),
		Source:    src,
		CreatedAt: time.Now(),
	}
	expiration := time.Now().Add(s.ttl)

	if elem, exists := s.items[clientID]; exists {
		s.lruList.MoveToFront(elem)
		e := elem.Value.(*entry)
		e.sess = sess
		e.expiration = expiration
		return sess
	}

	elem := s.lruList.PushFront(&entry{
		clientID:   clientID,
		sess:       sess,
		expiration: expiration,
	})
	s.items[clientID] = elem

	if s.lruList.Len() > s.capacity {
		s.evict()
	}

	return sess
}

// Get returns the client's current session, refreshing its LRU position.
func (s *Store) Get(clientID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, exists := s.items[clientID]
	if !exists {
		s.missCount++
		return nil, false
	}

	e := elem.Value.(*entry)
	if time.Now().After(e.expiration) {
		s.removeElement(elem)
		s.missCount++
		return nil, false
	}

	s.lruList.MoveToFront(elem)
	s.hitCount++
	return e.sess, true
}

// SetVariants attaches a generation result to the client's session. The
// session id must still match: a re-upload in the meantime discards the
// in-flight result instead of attaching stale variants to the new source.
func (s *Store) SetVariants(clientID, sessionID string, vs []*variant.Variant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, exists := s.items[clientID]
	if !exists {
		return false
	}
	e := elem.Value.(*entry)
	if e.sess.ID != sessionID {
		return false
	}
	e.sess.Variants = vs
	return true
}

func (s *Store) evict() {
	elem := s.lruList.Back()
	if elem != nil {
		s.removeElement(elem)
		s.evictionCount++
	}
}

func (s *Store) removeElement(elem *list.Element) {
	s.lruList.Remove(elem)
	e := elem.Value.(*entry)
	delete(s.items, e.clientID)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lruList.Len()
}

func (s *Store) Capacity() int {
	return s.capacity
}

type Stats struct {
	Sessions      int     `json:"sessions"`
	Capacity      int     `json:"capacity"`
	HitCount      int64   `json:"hit_count"`
	MissCount     int64   `json:"miss_count"`
	HitRate       float64 `json:"hit_rate"`
	EvictionCount int64   `json:"eviction_count"`
}

func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.hitCount + s.missCount
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(s.hitCount) / float64(total) * 100
	}

	return Stats{
		Sessions:      s.lruList.Len(),
		Capacity:      s.capacity,
		HitCount:      s.hitCount,
		MissCount:     s.missCount,
		HitRate:       hitRate,
		EvictionCount: s.evictionCount,
	}
}
