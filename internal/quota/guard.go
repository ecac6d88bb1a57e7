package quota

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DailyLimit is the cumulative character ceiling for outgoing messages per
// calendar day.
const DailyLimit = 50000

// ErrExceeded is returned when a reservation would push today's count past
// DailyLimit.
var ErrExceeded = errors.New("daily character quota exceeded")

const (
	bucketName = "quota"
	recordKey  = "daily"
	dateLayout = "2006-01-02"
)

type record struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Guard enforces the daily character budget. The record survives restarts;
// a stored date other than today reads as zero. Single-writer: the
// check-then-commit in CheckAndReserve is one step under the mutex.
type Guard struct {
	mu  sync.Mutex
	db  *bolt.DB
	now func() time.Time
}

func Open(path string) (*Guard, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open quota db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Guard{db: db, now: time.Now}, nil
}

func (g *Guard) Close() error {
	return g.db.Close()
}

// CheckAndReserve commits n additional characters against today's budget.
// On ErrExceeded the stored count is left unchanged.
func (g *Guard) CheckAndReserve(n int) error {
	if n < 0 {
		return fmt.Errorf("negative reservation")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now().Format(dateLayout)

	return g.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		rec := record{Date: today}
		if raw := b.Get([]byte(recordKey)); raw != nil {
			if err := json.Unmarshal(raw, &rec); err != nil || rec.Date != today {
				// Corrupt or stale record resets to zero for today.
				rec = record{Date: today}
			}
		}

		if rec.Count+n > DailyLimit {
			return ErrExceeded
		}

		rec.Count += n
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(recordKey), raw)
	})
}

// Used returns the character count committed today.
func (g *Guard) Used() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now().Format(dateLayout)
	var count int

	err := g.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketName)).Get([]byte(recordKey))
		if raw == nil {
			return nil
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil
		}
		if rec.Date == today {
			count = rec.Count
		}
		return nil
	})
	return count, err
}
