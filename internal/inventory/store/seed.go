package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"domainvault/internal/inventory/models"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
)

// Creator is the slice of a curated store the seeder needs.
type Creator interface {
	Create(ctx context.Context, d *models.CuratedDomain) error
}

type seedDomain struct {
	Name        string           `json:"name"`
	DomainPrice id.Money         `json:"domain_price"`
	EmailPrice  id.Money         `json:"email_price"`
	Personas    []models.Persona `json:"personas"`
}

// LoadSeedFile reads a JSON array of curated domains.
func LoadSeedFile(path string, now time.Time) ([]*models.CuratedDomain, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var entries []seedDomain
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	out := make([]*models.CuratedDomain, 0, len(entries))
	for _, e := range entries {
		d, err := models.NewCuratedDomain(e.Name, e.Personas, e.DomainPrice, e.EmailPrice, now)
		if err != nil {
			return nil, fmt.Errorf("seed entry %q: %w", e.Name, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// SeedCurated inserts domains that are not already present and returns how many were added.
// Existing rows are left untouched so restarts never reset a reservation or purchase.
func SeedCurated(ctx context.Context, store Creator, domains []*models.CuratedDomain) (int, error) {
	added := 0
	for _, d := range domains {
		if err := store.Create(ctx, d); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				continue
			}
			return added, fmt.Errorf("seed %s: %w", d.Name, err)
		}
		added++
	}
	return added, nil
}
