package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	keySpec          = []byte("spec")
	bucketNamespaces = []byte("namespaces")
)

// BoltClient implements Client on a local BoltDB file. Each index is a top-level
// bucket holding its spec and one nested bucket per namespace. Search is brute
// force, which is fine for datasets bounded to a few hundred rows.
type BoltClient struct {
	db *bbolt.DB
}

type storedSpec struct {
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

type storedVector struct {
	Vector []float32 `json:"v"`
}

// NewBoltClient opens (or creates) the index file at path.
func NewBoltClient(path string) (*BoltClient, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open index file %s: %w", path, err)
	}
	return &BoltClient{db: db}, nil
}

func (c *BoltClient) CreateIndex(ctx context.Context, spec IndexSpec) error {
	if spec.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", spec.Dimension)
	}
	data, err := json.Marshal(storedSpec{Dimension: spec.Dimension, Metric: spec.Metric})
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(spec.Name))
		if err != nil {
			return fmt.Errorf("failed to create index bucket: %w", err)
		}
		if _, err := b.CreateBucketIfNotExists(bucketNamespaces); err != nil {
			return err
		}
		if b.Get(keySpec) != nil {
			return nil
		}
		return b.Put(keySpec, data)
	})
}

func (c *BoltClient) DescribeIndex(ctx context.Context, name string) (*IndexStatus, error) {
	var status *IndexStatus
	err := c.db.View(func(tx *bbolt.Tx) error {
		spec, err := readSpec(tx, name)
		if err != nil {
			return err
		}
		status = &IndexStatus{Name: name, Dimension: spec.Dimension, Metric: spec.Metric, Ready: true}
		return nil
	})
	return status, err
}

func (c *BoltClient) Upsert(ctx context.Context, index, namespace string, vectors []Vector) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		spec, err := readSpec(tx, index)
		if err != nil {
			return err
		}
		nsRoot := tx.Bucket([]byte(index)).Bucket(bucketNamespaces)
		ns, err := nsRoot.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return fmt.Errorf("failed to create namespace bucket: %w", err)
		}

		for _, v := range vectors {
			if len(v.Values) != spec.Dimension {
				return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, spec.Dimension, len(v.Values))
			}
			data, err := json.Marshal(storedVector{Vector: v.Values})
			if err != nil {
				return err
			}
			if err := ns.Put([]byte(v.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *BoltClient) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	var matches []Match
	err := c.db.View(func(tx *bbolt.Tx) error {
		spec, err := readSpec(tx, req.Index)
		if err != nil {
			return err
		}
		if len(req.Vector) != spec.Dimension {
			return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, spec.Dimension, len(req.Vector))
		}

		ns := tx.Bucket([]byte(req.Index)).Bucket(bucketNamespaces).Bucket([]byte(req.Namespace))
		if ns == nil {
			return nil
		}
		return ns.ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			m := Match{ID: string(k), Score: CosineSimilarity(req.Vector, stored.Vector)}
			if req.IncludeValues {
				m.Values = stored.Vector
			}
			matches = append(matches, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rankMatches(matches, req.TopK), nil
}

func (c *BoltClient) Delete(ctx context.Context, req DeleteRequest) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		if _, err := readSpec(tx, req.Index); err != nil {
			return err
		}
		nsRoot := tx.Bucket([]byte(req.Index)).Bucket(bucketNamespaces)
		ns := nsRoot.Bucket([]byte(req.Namespace))
		if ns == nil {
			return ErrNamespaceNotFound
		}
		if req.DeleteAll {
			return nsRoot.DeleteBucket([]byte(req.Namespace))
		}
		for _, id := range req.IDs {
			if err := ns.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying database file.
func (c *BoltClient) Close() error {
	return c.db.Close()
}

func readSpec(tx *bbolt.Tx, index string) (storedSpec, error) {
	var spec storedSpec
	b := tx.Bucket([]byte(index))
	if b == nil {
		return spec, ErrIndexNotFound
	}
	data := b.Get(keySpec)
	if data == nil {
		return spec, ErrIndexNotFound
	}
	if err := json.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("corrupted spec for index %s: %w", index, err)
	}
	return spec, nil
}
