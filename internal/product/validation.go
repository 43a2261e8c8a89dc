// File: internal/product/validation.go
package product

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"ordena_backend/internal/common"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	minNameLength        = 3
	minCodeLength        = 3
	minDescriptionLength = 10
	maxDescriptionLength = 500

	maxSimilarResults = 5
	scoreExactName    = 100
	scorePartialName  = 50
	scoreSameBrand    = 10
	scoreSameCategory = 10
)

// Validate checks in against the rules every product must satisfy. siblings
// are the products already held by the same location, inactive ones included;
// the product identified by excludeID is ignored so an edit does not collide
// with itself. Brand and category existence is checked by the service.
func Validate(in Input, excludeID *uuid.UUID, siblings []Product) *ValidationResult {
	errs := map[string]string{}

	if (in.WarehouseID == nil) == (in.BranchID == nil) {
		errs["location"] = "Exactly one of warehouse_id or branch_id is required."
	}

	others := make([]Product, 0, len(siblings))
	for _, p := range siblings {
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		others = append(others, p)
	}

	name := common.NormalizeText(in.Name)
	switch {
	case name == "":
		errs["name"] = "The name field is required."
	case utf8.RuneCountInString(name) < minNameLength:
		errs["name"] = fmt.Sprintf("The name must be at least %d characters.", minNameLength)
	default:
		for _, p := range others {
			if p.NormalizedName == name {
				errs["name"] = fmt.Sprintf("A product named %q already exists in this location.", p.Name)
				break
			}
		}
	}

	code := strings.TrimSpace(in.InternalCode)
	switch {
	case code == "":
		errs["internal_code"] = "The internal_code field is required."
	case utf8.RuneCountInString(code) < minCodeLength:
		errs["internal_code"] = fmt.Sprintf("The code must be at least %d characters.", minCodeLength)
	case !common.IsValidProductCode(code):
		errs["internal_code"] = "The code may only contain letters, digits, dashes and underscores."
	default:
		key := strings.ToLower(code)
		for _, p := range others {
			if p.CodeKey == key {
				errs["internal_code"] = fmt.Sprintf("A product with code %q already exists in this location.", p.InternalCode)
				break
			}
		}
	}

	if in.BrandID == nil {
		errs["brand_id"] = "The brand_id field is required."
	}
	if in.CategoryID == nil {
		errs["category_id"] = "The category_id field is required."
	}
	if in.BrandID != nil && in.CategoryID != nil && name != "" {
		for _, p := range others {
			if p.NormalizedName == name && p.BrandID == *in.BrandID && p.CategoryID == *in.CategoryID {
				errs["combination"] = "A product with the same name, brand and category already exists in this location."
				break
			}
		}
	}

	if in.Stock < 0 {
		errs["stock"] = "Stock cannot be negative."
	}
	if in.MinStock < 0 {
		errs["min_stock"] = "Minimum stock cannot be negative."
	}
	if in.MaxStock < 0 {
		errs["max_stock"] = "Maximum stock cannot be negative."
	}
	// A maximum of zero means the product has no ceiling.
	if in.MaxStock > 0 {
		if in.MinStock > in.MaxStock {
			errs["min_stock"] = "Minimum stock cannot exceed maximum stock."
		}
		if in.Stock > in.MaxStock {
			errs["stock"] = "Stock cannot exceed maximum stock."
		}
	}

	if in.Description != nil {
		if d := strings.TrimSpace(*in.Description); d != "" {
			switch n := utf8.RuneCountInString(d); {
			case n < minDescriptionLength:
				errs["description"] = fmt.Sprintf("The description must be at least %d characters.", minDescriptionLength)
			case n > maxDescriptionLength:
				errs["description"] = fmt.Sprintf("The description may not exceed %d characters.", maxDescriptionLength)
			}
		}
	}

	result := &ValidationResult{Errors: errs, Warnings: []string{}}
	if name != "" {
		result.Similar = RankSimilar(in.Name, in.BrandID, in.CategoryID, others, nil)
		for _, s := range result.Similar {
			if s.Score >= scoreExactName {
				continue // already an error above
			}
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Similar product %q (%s) already exists.", s.Product.Name, s.Product.InternalCode))
		}
	}
	result.Valid = len(errs) == 0
	return result
}

// RankSimilar scores active candidates against name: an identical normalised
// name scores 100, one name containing the other 50, anything else is dropped.
// Matching brand and category add 10 each. The best five are returned.
func RankSimilar(name string, brandID, categoryID *uuid.UUID, candidates []Product, excludeID *uuid.UUID) []SimilarProduct {
	target := common.NormalizeText(name)
	if target == "" {
		return nil
	}

	var ranked []SimilarProduct
	for i := range candidates {
		p := &candidates[i]
		if !p.Active || (excludeID != nil && p.ID == *excludeID) {
			continue
		}
		existing := p.NormalizedName
		if existing == "" {
			existing = common.NormalizeText(p.Name)
		}

		var score int
		switch {
		case existing == target:
			score = scoreExactName
		case strings.Contains(existing, target) || strings.Contains(target, existing):
			score = scorePartialName
		default:
			continue
		}
		if brandID != nil && p.BrandID == *brandID {
			score += scoreSameBrand
		}
		if categoryID != nil && p.CategoryID == *categoryID {
			score += scoreSameCategory
		}
		ranked = append(ranked, SimilarProduct{Product: p, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Product.NormalizedName < ranked[j].Product.NormalizedName
	})
	if len(ranked) > maxSimilarResults {
		ranked = ranked[:maxSimilarResults]
	}
	return ranked
}

// codePrefix folds s to ASCII and keeps its first three letters or digits,
// padding with X.
func codePrefix(s string) string {
	folded := strings.ToUpper(strings.ReplaceAll(slug.Make(s), "-", ""))
	if len(folded) > 3 {
		folded = folded[:3]
	}
	return folded + strings.Repeat("X", 3-len(folded))
}

// SuggestCode builds CAT-NAM-NNN with the lowest NNN, starting at 001, whose
// code is not in taken. taken holds lower-cased codes.
func SuggestCode(categoryName, productName string, taken map[string]struct{}) string {
	base := codePrefix(categoryName) + "-" + codePrefix(productName)
	for n := 1; ; n++ {
		code := fmt.Sprintf("%s-%03d", base, n)
		if _, used := taken[strings.ToLower(code)]; !used {
			return code
		}
	}
}
