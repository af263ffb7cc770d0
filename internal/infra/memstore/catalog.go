package memstore

import (
	"context"
	"strings"
	"sync"

	"transit-booking/internal/domain/fare"
	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/infra"
	"transit-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// Catalog keeps offerings in memory. Offerings are immutable values, so
// readers share pointers.
type Catalog struct {
	mu        sync.RWMutex
	offerings map[uuid.UUID]*offering.Offering
	promos    map[string]*fare.Promo
}

func NewCatalog() *Catalog {
	return &Catalog{
		offerings: make(map[uuid.UUID]*offering.Offering),
		promos:    make(map[string]*fare.Promo),
	}
}

func (c *Catalog) Put(o *offering.Offering) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offerings[o.ID()] = o
}

func (c *Catalog) PutPromo(p *fare.Promo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.promos[p.Code()] = p
}

func (c *Catalog) Search(_ context.Context, criteria shared.SearchCriteria) ([]*offering.Offering, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*offering.Offering, 0)
	for _, o := range c.offerings {
		if criteria.Kind != nil && o.Kind() != *criteria.Kind {
			continue
		}
		if !o.MatchesRoute(criteria.Origin, criteria.Destination) {
			continue
		}
		if !o.DepartsOn(criteria.Date) {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func (c *Catalog) Get(_ context.Context, id uuid.UUID) (*offering.Offering, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	o, ok := c.offerings[id]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "offering not found")
	}
	return o, nil
}

func (c *Catalog) PromoByCode(_ context.Context, code string) (*fare.Promo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.promos[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "promo not found")
	}
	return p, nil
}

func (c *Catalog) Capacity(ctx context.Context, key inventory.Key) (int, error) {
	o, err := c.Get(ctx, key.OfferingID)
	if err != nil {
		return 0, err
	}
	cs, err := o.ResolveClass(key.Class.String())
	if err != nil {
		return 0, infra.WrapRepoErr("class not offered", err, infra.KindNotFound)
	}
	return cs.Capacity, nil
}
