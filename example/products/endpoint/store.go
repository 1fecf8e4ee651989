// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"cmp"
	"encoding/json"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/z5labs/sdk-go/try"
)

// Product is the catalog entry described by the Product component.
type Product struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Tags        []string `json:"tags,omitempty"`
}

// ProductStore is an in-memory product catalog.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewProductStore initializes an empty [ProductStore].
func NewProductStore() *ProductStore {
	return &ProductStore{
		products: make(map[string]Product),
	}
}

// Add stores p under a newly generated id.
func (s *ProductStore) Add(p Product) Product {
	p.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[p.ID] = p
	return p
}

// Get returns the product stored under id.
func (s *ProductStore) Get(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	return p, ok
}

// List returns every product ordered by name.
func (s *ProductStore) List() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b Product) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return products
}

// Save writes every product to the file name as a JSON array, in the
// order of [ProductStore.List].
func (s *ProductStore) Save(name string) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer try.Close(&err, f)

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s.List())
}
