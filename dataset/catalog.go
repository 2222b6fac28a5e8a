package dataset

import (
	"sort"
	"sync"

	"github.com/squareup/pranascan/errors"
)

// Catalog maps names to datasets. Scan tokens refer to datasets by name, so a token can only be executed in
// a process whose catalog holds a dataset of that name.
type Catalog struct {
	lock     sync.RWMutex
	datasets map[string]Dataset
}

func NewCatalog() *Catalog {
	return &Catalog{
		lock:     sync.RWMutex{},
		datasets: make(map[string]Dataset),
	}
}

// Register adds ds under its name. It is an error if a dataset of that name is already registered.
func (c *Catalog) Register(ds Dataset) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	name := ds.Name()
	if name == "" {
		return errors.New("dataset name must not be empty")
	}
	if _, ok := c.datasets[name]; ok {
		return errors.Errorf("dataset %s is already registered", name)
	}
	c.datasets[name] = ds
	return nil
}

func (c *Catalog) Get(name string) (Dataset, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	ds, ok := c.datasets[name]
	return ds, ok
}

// Drop removes the named dataset, returning false if there was none.
func (c *Catalog) Drop(name string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, ok := c.datasets[name]
	delete(c.datasets, name)
	return ok
}

func (c *Catalog) Names() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	names := make([]string, 0, len(c.datasets))
	for name := range c.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
