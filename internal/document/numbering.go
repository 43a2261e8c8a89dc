// File: internal/document/numbering.go
package document

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var numberPattern = regexp.MustCompile(`^(REM|FAC|OC|ACT)-\d{6}-\d{4}$`)

// maxSequence is the last number a kind can issue in one month.
const maxSequence = 9999

// Numberer issues sequential document numbers of the form KIND-YYYYMM-NNNN.
// Sequences restart every month in the document time zone.
type Numberer struct {
	db  *gorm.DB
	tx  *database.Transactor
	loc *time.Location
	now func() time.Time
}

// NewNumberer creates a Numberer dating numbers in loc.
func NewNumberer(db *gorm.DB, tx *database.Transactor, loc *time.Location) *Numberer {
	if loc == nil {
		loc = time.UTC
	}
	return &Numberer{db: db, tx: tx, loc: loc, now: time.Now}
}

// Next reserves the next number of kind. It joins the caller's transaction,
// so a rolled back workflow gives its number back.
func (n *Numberer) Next(ctx context.Context, kind Kind) (string, error) {
	period := n.now().In(n.loc).Format("200601")
	var number string
	err := n.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		conn := database.Conn(ctx, n.db)
		seed := Sequence{Kind: kind, Period: period, UpdatedAt: time.Now().UTC()}
		if err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("seeding %s sequence: %w", kind, err)
		}

		var seq Sequence
		err := database.ForUpdate(conn).
			Where("kind = ? AND period = ?", kind, period).
			First(&seq).Error
		if err != nil {
			return fmt.Errorf("locking %s sequence: %w", kind, err)
		}
		if seq.Last >= maxSequence {
			return common.ErrConflict.WithDetails(fmt.Sprintf("No %s numbers left for %s.", kind, period))
		}
		seq.Last++
		err = conn.Model(&Sequence{}).
			Where("kind = ? AND period = ?", kind, period).
			Updates(map[string]interface{}{"last": seq.Last, "updated_at": time.Now().UTC()}).Error
		if err != nil {
			return fmt.Errorf("advancing %s sequence: %w", kind, err)
		}
		number = Format(kind, period, seq.Last)
		return nil
	})
	return number, err
}

// Format renders a document number. seq must not exceed maxSequence or the
// result will not Validate.
func Format(kind Kind, period string, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", kind, period, seq)
}

// Validate reports whether s is a well-formed number of kind.
func Validate(kind Kind, s string) bool {
	return numberPattern.MatchString(s) && strings.HasPrefix(s, string(kind)+"-")
}

// Detect returns the kind of a well-formed number.
func Detect(s string) (Kind, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return Kind(m[1]), true
}

// Check builds the /documents/validate response for s.
func Check(s string) ValidationResult {
	kind, ok := Detect(s)
	return ValidationResult{Number: strings.TrimSpace(s), Valid: ok, Kind: kind}
}
