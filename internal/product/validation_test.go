package product

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func stored(name, code string, brand, category uuid.UUID, active bool) Product {
	p := Product{
		Name:           name,
		NormalizedName: strings.ToLower(name),
		InternalCode:   code,
		CodeKey:        strings.ToLower(code),
		BrandID:        brand,
		CategoryID:     category,
		Active:         active,
	}
	p.ID = uuid.New()
	return p
}

func TestValidate(t *testing.T) {
	brand, category, wh := uuid.New(), uuid.New(), uuid.New()
	existing := stored("martillo grande", "HER-MAR-001", brand, category, true)
	siblings := []Product{existing}

	base := func() Input {
		return Input{
			Name:         "Destornillador",
			InternalCode: "HER-DES-001",
			BrandID:      &brand,
			CategoryID:   &category,
			WarehouseID:  &wh,
			Stock:        5,
			MinStock:     2,
			MaxStock:     10,
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Input)
		exclude   *uuid.UUID
		wantField []string
	}{
		{name: "valid", mutate: func(*Input) {}},
		{name: "name required", mutate: func(in *Input) { in.Name = "   " }, wantField: []string{"name"}},
		{name: "name too short", mutate: func(in *Input) { in.Name = "ab" }, wantField: []string{"name"}},
		{name: "duplicate name after normalisation", mutate: func(in *Input) { in.Name = "  Martillo   GRANDE " },
			wantField: []string{"name", "combination"}},
		{name: "editing itself is not a duplicate", mutate: func(in *Input) {
			in.Name = "Martillo grande"
			in.InternalCode = "her-mar-001"
		}, exclude: &existing.ID},
		{name: "code required", mutate: func(in *Input) { in.InternalCode = "" }, wantField: []string{"internal_code"}},
		{name: "code charset", mutate: func(in *Input) { in.InternalCode = "HER DES/1" }, wantField: []string{"internal_code"}},
		{name: "code unique ignoring case", mutate: func(in *Input) { in.InternalCode = "her-mar-001" }, wantField: []string{"internal_code"}},
		{name: "brand and category required", mutate: func(in *Input) { in.BrandID, in.CategoryID = nil, nil },
			wantField: []string{"brand_id", "category_id"}},
		{name: "negative values", mutate: func(in *Input) { in.Stock, in.MinStock, in.MaxStock = -1, -1, -1 },
			wantField: []string{"stock", "min_stock", "max_stock"}},
		{name: "stock above maximum", mutate: func(in *Input) { in.Stock = 11 }, wantField: []string{"stock"}},
		{name: "minimum above maximum", mutate: func(in *Input) { in.MinStock = 12; in.Stock = 3 }, wantField: []string{"min_stock"}},
		{name: "zero maximum means no ceiling", mutate: func(in *Input) { in.MaxStock = 0; in.Stock = 500; in.MinStock = 50 }},
		{name: "short description", mutate: func(in *Input) { in.Description = ptr("corta") }, wantField: []string{"description"}},
		{name: "blank description is ignored", mutate: func(in *Input) { in.Description = ptr("   ") }},
		{name: "long description", mutate: func(in *Input) { in.Description = ptr(strings.Repeat("a", 501)) }, wantField: []string{"description"}},
		{name: "two locations", mutate: func(in *Input) { in.BranchID = ptr(uuid.New()) }, wantField: []string{"location"}},
		{name: "no location", mutate: func(in *Input) { in.WarehouseID = nil }, wantField: []string{"location"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			res := Validate(in, tt.exclude, siblings)
			if len(tt.wantField) == 0 {
				assert.True(t, res.Valid, "unexpected errors: %v", res.Errors)
				assert.Empty(t, res.Errors)
				return
			}
			assert.False(t, res.Valid)
			assert.Len(t, res.Errors, len(tt.wantField), "errors: %v", res.Errors)
			for _, f := range tt.wantField {
				assert.Contains(t, res.Errors, f)
			}
		})
	}
}

func TestValidateWarnsAboutSimilarProducts(t *testing.T) {
	brand, category, wh := uuid.New(), uuid.New(), uuid.New()
	siblings := []Product{stored("martillo de goma", "HER-MAR-002", brand, category, true)}

	res := Validate(Input{
		Name: "Martillo", InternalCode: "HER-MAR-003", BrandID: &brand, CategoryID: &category, WarehouseID: &wh,
	}, nil, siblings)

	require.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "HER-MAR-002")
	require.Len(t, res.Similar, 1)
	assert.Equal(t, 70, res.Similar[0].Score)
}

func TestRankSimilar(t *testing.T) {
	b1, b2, c1, c2 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	exact := stored("martillo", "A-001", b1, c1, true)
	partial := stored("martillo de goma", "A-002", b2, c1, true)
	contained := stored("mart", "A-003", b2, c2, true)
	unrelated := stored("clavo", "A-004", b1, c1, true)
	inactive := stored("martillo", "A-005", b1, c1, false)

	ranked := RankSimilar(" Martillo ", &b1, &c1, []Product{unrelated, contained, partial, inactive, exact}, nil)
	require.Len(t, ranked, 3)
	assert.Equal(t, exact.ID, ranked[0].Product.ID)
	assert.Equal(t, 120, ranked[0].Score)
	assert.Equal(t, partial.ID, ranked[1].Product.ID)
	assert.Equal(t, 60, ranked[1].Score)
	assert.Equal(t, contained.ID, ranked[2].Product.ID)
	assert.Equal(t, 50, ranked[2].Score)

	assert.Empty(t, RankSimilar("martillo", nil, nil, []Product{exact}, &exact.ID))
	assert.Nil(t, RankSimilar("  ", nil, nil, []Product{exact}, nil))

	var many []Product
	for i := 0; i < 8; i++ {
		many = append(many, stored(fmt.Sprintf("martillo %d", i), fmt.Sprintf("M-%03d", i), b2, c2, true))
	}
	ranked = RankSimilar("martillo", nil, nil, many, nil)
	require.Len(t, ranked, 5)
	assert.Equal(t, "martillo 0", ranked[0].Product.NormalizedName)
}

func TestSuggestCode(t *testing.T) {
	assert.Equal(t, "HER-MAR-001", SuggestCode("Herramientas", "Martillo grande", nil))

	taken := map[string]struct{}{"her-mar-001": {}, "her-mar-002": {}}
	assert.Equal(t, "HER-MAR-003", SuggestCode("Herramientas", "martillo", taken))

	assert.Equal(t, "TEX-CAF-001", SuggestCode("Té", "Café molido", nil))
	assert.Equal(t, "XXX-5LX-001", SuggestCode("", "5 l", nil))
}
