// Package store persists and restores agent knowledge.
package store

import (
	"context"
	"errors"
	"fmt"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/formrl/internal/learning"
)

var (
	// ErrNotFound is returned by Load when nothing has been saved yet.
	ErrNotFound = errors.New("knowledge not found")
	// ErrCorrupt is returned by Load when the stored blob cannot be decoded.
	ErrCorrupt = errors.New("knowledge corrupt")
)

// KnowledgeStore saves and loads a single knowledge snapshot.
type KnowledgeStore interface {
	Save(ctx context.Context, k learning.Knowledge) error
	Load(ctx context.Context) (learning.Knowledge, error)
}

func encode(k learning.Knowledge) ([]byte, error) {
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode knowledge: %w", err)
	}
	return data, nil
}

func decode(data []byte) (learning.Knowledge, error) {
	var k learning.Knowledge
	if err := json.Unmarshal(data, &k); err != nil {
		return learning.Knowledge{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if k.Values == nil {
		k.Values = map[string]map[string]float64{}
	}
	return k, nil
}
