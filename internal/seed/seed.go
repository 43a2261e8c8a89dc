// File: internal/seed/seed.go
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ordena_backend/internal/catalog"
	"ordena_backend/internal/common"
	"ordena_backend/internal/location"
	"ordena_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the layout of a seed YAML document.
type File struct {
	Warehouses []Warehouse `yaml:"warehouses"`
	Brands     []string    `yaml:"brands"`
	Categories []string    `yaml:"categories"`
	Users      []User      `yaml:"users"`
}

type Warehouse struct {
	Name     string   `yaml:"name"`
	Address  string   `yaml:"address"`
	RUT      string   `yaml:"rut"`
	Branches []Branch `yaml:"branches"`
}

type Branch struct {
	Name        string  `yaml:"name"`
	Address     string  `yaml:"address"`
	Description *string `yaml:"description"`
	RUT         string  `yaml:"rut"`
}

// User refers to its warehouse or branch by RUT.
type User struct {
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	RUT       string `yaml:"rut"`
	Role      string `yaml:"role"`
	Warehouse string `yaml:"warehouse"`
	Branch    string `yaml:"branch"`
}

// Result counts what Apply created; existing rows are left untouched.
type Result struct {
	Warehouses int
	Branches   int
	Brands     int
	Categories int
	Users      int
}

// Load reads and decodes a seed file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decoding seed file %s: %w", path, err)
	}
	return &f, nil
}

// Seeder applies a seed file through the regular services so the usual
// validation runs. Applying the same file twice is a no-op.
type Seeder struct {
	locations location.Service
	catalog   catalog.Service
	users     user.Service
	logger    *zap.Logger
}

func NewSeeder(locations location.Service, catalog catalog.Service, users user.Service, logger *zap.Logger) *Seeder {
	return &Seeder{locations: locations, catalog: catalog, users: users, logger: logger}
}

func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	res := &Result{}
	byRUT := map[string]uuid.UUID{}

	existing, err := s.locations.ListWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	warehouses := map[string]uuid.UUID{}
	for _, w := range existing {
		warehouses[common.NormalizeRUT(w.RUT)] = w.ID
	}

	for _, w := range f.Warehouses {
		key := common.NormalizeRUT(w.RUT)
		id, ok := warehouses[key]
		if !ok {
			created, err := s.locations.CreateWarehouse(ctx, location.CreateWarehouseRequest{Name: w.Name, Address: w.Address, RUT: w.RUT})
			if err != nil {
				return nil, fmt.Errorf("warehouse %q: %w", w.Name, err)
			}
			id = created.ID
			res.Warehouses++
		}
		byRUT[key] = id

		branches, err := s.locations.ListBranches(ctx, &id)
		if err != nil {
			return nil, err
		}
		have := map[string]uuid.UUID{}
		for _, b := range branches {
			have[common.NormalizeRUT(b.RUT)] = b.ID
		}
		for _, b := range w.Branches {
			bkey := common.NormalizeRUT(b.RUT)
			if bid, ok := have[bkey]; ok {
				byRUT[bkey] = bid
				continue
			}
			created, err := s.locations.CreateBranch(ctx, location.CreateBranchRequest{
				Name: b.Name, Address: b.Address, Description: b.Description, RUT: b.RUT, WarehouseID: id,
			})
			if err != nil {
				return nil, fmt.Errorf("branch %q: %w", b.Name, err)
			}
			byRUT[bkey] = created.ID
			res.Branches++
		}
	}

	brands, err := s.catalog.ListBrands(ctx)
	if err != nil {
		return nil, err
	}
	known := map[string]bool{}
	for _, b := range brands {
		known[b.NameKey] = true
	}
	for _, name := range f.Brands {
		if known[common.NormalizeText(name)] {
			continue
		}
		b, err := s.catalog.FindOrCreateBrandByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("brand %q: %w", name, err)
		}
		known[b.NameKey] = true
		res.Brands++
	}

	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	known = map[string]bool{}
	for _, c := range categories {
		known[c.NameKey] = true
	}
	for _, name := range f.Categories {
		if known[common.NormalizeText(name)] {
			continue
		}
		c, err := s.catalog.FindOrCreateCategoryByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", name, err)
		}
		known[c.NameKey] = true
		res.Categories++
	}

	for _, u := range f.Users {
		req := user.CreateUserRequest{Name: u.Name, Email: u.Email, Password: u.Password, RUT: u.RUT, Role: u.Role}
		if u.Warehouse != "" {
			id, ok := byRUT[common.NormalizeRUT(u.Warehouse)]
			if !ok {
				return nil, fmt.Errorf("user %q: unknown warehouse %s", u.Email, u.Warehouse)
			}
			req.WarehouseID = &id
		}
		if u.Branch != "" {
			id, ok := byRUT[common.NormalizeRUT(u.Branch)]
			if !ok {
				return nil, fmt.Errorf("user %q: unknown branch %s", u.Email, u.Branch)
			}
			req.BranchID = &id
		}
		_, temporary, err := s.users.Create(ctx, req)
		if errors.Is(err, common.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", u.Email, err)
		}
		res.Users++
		if temporary != "" {
			s.logger.Info("Seeded user with a temporary password",
				zap.String("email", u.Email), zap.String("temporary_password", temporary))
		}
	}
	return res, nil
}
