package product

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sales-copilot-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// DefaultProductId is used for sessions started without a product.
const DefaultProductId = "ground_up_construction"

// Loader reads product configs from JSON files and caches them for the
// process lifetime. Configs are immutable after load, so entries never
// expire and are safe for concurrent reads.
type Loader struct {
	dataDir string
	cache   *cache.Cache
	mu      sync.Mutex
}

func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir: dataDir,
		cache:   cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

// Get returns the config for a product id, loading it at most once per
// process.
func (l *Loader) Get(productId string) (*entity.ProductConfig, error) {
	if x, found := l.cache.Get(productId); found {
		return x.(*entity.ProductConfig), nil
	}

	// Serialize loads so a config is read and parsed once even under
	// concurrent first access.
	l.mu.Lock()
	defer l.mu.Unlock()
	if x, found := l.cache.Get(productId); found {
		return x.(*entity.ProductConfig), nil
	}

	path := filepath.Join(l.dataDir, productId+".json")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load product config %s: %w", productId, err)
	}

	var config entity.ProductConfig
	if err := json.Unmarshal(content, &config); err != nil {
		return nil, fmt.Errorf("parse product config %s: %w", productId, err)
	}

	l.cache.Set(productId, &config, cache.NoExpiration)
	return &config, nil
}
