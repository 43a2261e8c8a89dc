package document

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"
	_ "time/tzdata"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/database/dbtest"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql keeps a connection opener goroutine per pool until Close.
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func newNumberer(t *testing.T, now time.Time) *Numberer {
	db := dbtest.New(t, &Sequence{})
	n := NewNumberer(db, database.NewTransactor(db), time.UTC)
	n.now = func() time.Time { return now }
	return n
}

func TestNumbererIssuesSequentialNumbersPerKindAndMonth(t *testing.T) {
	ctx := context.Background()
	oct := time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)
	n := newNumberer(t, oct)

	first, err := n.Next(ctx, KindDispatchGuide)
	require.NoError(t, err)
	assert.Equal(t, "REM-202610-0001", first)

	second, err := n.Next(ctx, KindDispatchGuide)
	require.NoError(t, err)
	assert.Equal(t, "REM-202610-0002", second)

	oc, err := n.Next(ctx, KindPurchaseOrder)
	require.NoError(t, err)
	assert.Equal(t, "OC-202610-0001", oc)

	n.now = func() time.Time { return oct.AddDate(0, 1, 0) }
	nov, err := n.Next(ctx, KindDispatchGuide)
	require.NoError(t, err)
	assert.Equal(t, "REM-202611-0001", nov)
}

func TestNumbererUsesDocumentTimeZone(t *testing.T) {
	santiago, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)

	db := dbtest.New(t, &Sequence{})
	n := NewNumberer(db, database.NewTransactor(db), santiago)
	// 02:00 UTC on 1 November is still 31 October in Santiago.
	n.now = func() time.Time { return time.Date(2026, time.November, 1, 2, 0, 0, 0, time.UTC) }

	number, err := n.Next(context.Background(), KindReceiptAct)
	require.NoError(t, err)
	assert.Equal(t, "ACT-202610-0001", number)
}

func TestNumberRolledBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t, &Sequence{})
	tx := database.NewTransactor(db)
	n := NewNumberer(db, tx, time.UTC)
	n.now = func() time.Time { return time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC) }

	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := n.Next(ctx, KindInvoice)
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	number, err := n.Next(ctx, KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, "FAC-202610-0001", number)
}

func TestNumbererStopsAtMonthlyCapacity(t *testing.T) {
	ctx := context.Background()
	n := newNumberer(t, time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC))
	require.NoError(t, n.db.Create(&Sequence{Kind: KindDispatchGuide, Period: "202610", Last: 9998, UpdatedAt: time.Now()}).Error)

	last, err := n.Next(ctx, KindDispatchGuide)
	require.NoError(t, err)
	assert.Equal(t, "REM-202610-9999", last)
	assert.True(t, Validate(KindDispatchGuide, last))

	_, err = n.Next(ctx, KindDispatchGuide)
	assert.ErrorIs(t, err, common.ErrConflict)

	var seq Sequence
	require.NoError(t, n.db.First(&seq, "kind = ? AND period = ?", KindDispatchGuide, "202610").Error)
	assert.Equal(t, 9999, seq.Last)

	other, err := n.Next(ctx, KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, "FAC-202610-0001", other)
}

func TestValidateAndDetect(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
		kind   Kind
	}{
		{"REM-202610-0001", true, KindDispatchGuide},
		{"FAC-202601-9999", true, KindInvoice},
		{"OC-202612-0042", true, KindPurchaseOrder},
		{"ACT-202610-0003", true, KindReceiptAct},
		{" oc-202612-0042 ", true, KindPurchaseOrder},
		{"REM-20261-0001", false, ""},
		{"REM-202610-001", false, ""},
		{"GUI-202610-0001", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			res := Check(tt.number)
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.kind, res.Kind)
		})
	}

	assert.True(t, Validate(KindDispatchGuide, "REM-202610-0001"))
	assert.False(t, Validate(KindInvoice, "REM-202610-0001"))
}

func extractText(t *testing.T, body []byte) string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	plain, err := r.GetPlainText()
	require.NoError(t, err)
	text, err := io.ReadAll(plain)
	require.NoError(t, err)
	return string(text)
}

func TestRenderers(t *testing.T) {
	r := NewRenderer(time.UTC, "")
	issued := time.Date(2026, time.October, 18, 15, 30, 0, 0, time.UTC)
	lines := []Line{
		{Code: "HER-MAR-001", Description: "Martillo de goma", Quantity: 4},
		{Description: "Sin código", Quantity: 1},
	}

	t.Run("purchase order", func(t *testing.T) {
		body, err := r.PurchaseOrder(PurchaseOrder{
			Number:    "OC-202610-0001",
			IssuedAt:  issued,
			Branch:    Party{Name: "Sucursal Norte", Address: "Calle 2", RUT: "22222222-2"},
			Requester: "Ana Pérez",
			Lines:     lines,
			Status:    "aprobada",
		})
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
		text := extractText(t, body)
		assert.Contains(t, text, "OC-202610-0001")
		assert.Contains(t, text, "HER-MAR-001")
	})

	t.Run("dispatch guide", func(t *testing.T) {
		body, err := r.DispatchGuide(DispatchGuide{
			Number:        "REM-202610-0001",
			IssuedAt:      issued,
			Destination:   Party{Name: "Sucursal Norte"},
			Origin:        Party{Name: "Bodega Central"},
			Courier:       "Juan Soto",
			LicensePlate:  "ABCD12",
			Lines:         lines,
			PurchaseOrder: "OC-202610-0001",
		})
		require.NoError(t, err)
		text := extractText(t, body)
		assert.Contains(t, text, "REM-202610-0001")
		assert.Contains(t, text, "ABCD12")
	})

	t.Run("receipt act", func(t *testing.T) {
		body, err := r.ReceiptAct(ReceiptAct{
			Number:      "ACT-202610-0001",
			ReceivedAt:  issued,
			Branch:      Party{Name: "Sucursal Norte"},
			Receiver:    "Ana Pérez",
			Lines:       lines,
			Conforming:  true,
			Responsible: "Ana Pérez",
		})
		require.NoError(t, err)
		text := extractText(t, body)
		assert.Contains(t, text, "ACT-202610-0001")
		assert.Contains(t, text, "Recibido conforme")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abc…", truncate("abcdefgh", 4))
}
