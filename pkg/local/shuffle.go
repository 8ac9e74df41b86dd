package local

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/nemanja-m/linecount/pkg/core"
)

const shuffleDBName = "shuffle.db"

// Shuffle holds intermediate map output in a bbolt database, one bucket per
// reduce partition and one key per map task.
type Shuffle struct {
	db   *bolt.DB
	path string
}

func OpenShuffle(dir string) (*Shuffle, error) {
	dbPath := filepath.Join(dir, shuffleDBName)
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second, NoSync: true})
	if err != nil {
		return nil, fmt.Errorf("%w: open shuffle store %s: %w", core.ErrIO, dbPath, err)
	}
	return &Shuffle{db: db, path: dbPath}, nil
}

func partitionBucket(partition int) []byte {
	return []byte(fmt.Sprintf("partition-%05d", partition))
}

func mapperKey(mapperID int) []byte {
	return []byte(fmt.Sprintf("map-%05d", mapperID))
}

// Put appends records produced by a map task to a partition.
func (s *Shuffle) Put(partition, mapperID int, records []core.KeyValue) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(partitionBucket(partition))
		if err != nil {
			return err
		}

		key := mapperKey(mapperID)
		var existing []core.KeyValue
		if v := bkt.Get(key); v != nil {
			if err := json.Unmarshal(v, &existing); err != nil {
				return fmt.Errorf("%w: shuffle partition %d: %w", core.ErrDecode, partition, err)
			}
		}
		existing = append(existing, records...)

		encoded, err := json.Marshal(existing)
		if err != nil {
			return err
		}
		return bkt.Put(key, encoded)
	})
}

// Get returns every record stored for a partition, in map task order.
func (s *Shuffle) Get(partition int) ([]core.KeyValue, error) {
	var records []core.KeyValue
	err := s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(partitionBucket(partition))
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(_, v []byte) error {
			var batch []core.KeyValue
			if err := json.Unmarshal(v, &batch); err != nil {
				return fmt.Errorf("%w: shuffle partition %d: %w", core.ErrDecode, partition, err)
			}
			records = append(records, batch...)
			return nil
		})
	})
	return records, err
}

func (s *Shuffle) Close() error {
	return s.db.Close()
}
