package invoice

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanDropsUnnamedRows(t *testing.T) {
	raw := RawData{Products: []RawProduct{
		{Name: "Milk", Quantity: 2.0, UnitPrice: 1.5, TotalPrice: 3.0},
		{Name: "   ", Quantity: 1.0},
		{Name: nil, Quantity: 1.0},
		{Name: "  Bread ", Quantity: 1.0, UnitPrice: 2.0, TotalPrice: 2.0},
	}}

	data := Clean(raw)

	require.Len(t, data.Products, 2)
	for _, p := range data.Products {
		assert.NotEmpty(t, p.Name)
		assert.Equal(t, p.Name, strings.TrimSpace(p.Name))
	}
	assert.Equal(t, "Bread", data.Products[1].Name)
}

func TestCleanNumericDefaulting(t *testing.T) {
	testCases := []struct {
		name      string
		row       RawProduct
		wantQty   int
		wantUnit  float64
		wantTotal float64
	}{
		{
			name:    "missing quantity defaults to 1",
			row:     RawProduct{Name: "Eggs"},
			wantQty: 1,
		},
		{
			name:    "zero quantity defaults to 1",
			row:     RawProduct{Name: "Eggs", Quantity: 0.0},
			wantQty: 1,
		},
		{
			name:    "negative quantity defaults to 1",
			row:     RawProduct{Name: "Eggs", Quantity: -3.0},
			wantQty: 1,
		},
		{
			name:    "garbage quantity defaults to 1",
			row:     RawProduct{Name: "Eggs", Quantity: "a dozen"},
			wantQty: 1,
		},
		{
			name:    "NaN quantity defaults to 1",
			row:     RawProduct{Name: "Eggs", Quantity: math.NaN()},
			wantQty: 1,
		},
		{
			name:     "string prices are coerced",
			row:      RawProduct{Name: "Eggs", Quantity: 2.0, UnitPrice: "1.25", TotalPrice: "2.50"},
			wantQty:  2,
			wantUnit: 1.25, wantTotal: 2.5,
		},
		{
			name:     "decimal comma prices are coerced",
			row:      RawProduct{Name: "Eggs", Quantity: 2.0, UnitPrice: "1,25", TotalPrice: "2,50"},
			wantQty:  2,
			wantUnit: 1.25, wantTotal: 2.5,
		},
		{
			name:    "negative prices clamp to 0",
			row:     RawProduct{Name: "Eggs", Quantity: 1.0, UnitPrice: -4.0, TotalPrice: -4.0},
			wantQty: 1,
		},
		{
			name:    "infinite prices clamp to 0",
			row:     RawProduct{Name: "Eggs", Quantity: 1.0, UnitPrice: math.Inf(1), TotalPrice: math.Inf(-1)},
			wantQty: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanProducts([]RawProduct{tc.row})
			require.Len(t, got, 1)
			p := got[0]
			assert.Equal(t, tc.wantQty, p.Quantity)
			assert.Equal(t, tc.wantUnit, p.UnitPrice)
			assert.Equal(t, tc.wantTotal, p.TotalPrice)
			assert.GreaterOrEqual(t, p.Quantity, 1)
			assert.GreaterOrEqual(t, p.UnitPrice, 0.0)
			assert.GreaterOrEqual(t, p.TotalPrice, 0.0)
			assert.False(t, math.IsNaN(p.UnitPrice) || math.IsInf(p.UnitPrice, 0))
			assert.False(t, math.IsNaN(p.TotalPrice) || math.IsInf(p.TotalPrice, 0))
		})
	}
}

func TestCleanBarcodeLengthClasses(t *testing.T) {
	testCases := []struct {
		name    string
		barcode any
		want    string
	}{
		{"ean-13 kept", "4006381333931", "4006381333931"},
		{"ean-8 kept", "96385074", "96385074"},
		{"upc-a kept", "036000291452", "036000291452"},
		{"too short dropped", "1234567", ""},
		{"too long dropped", "12345678901234", ""},
		{"letters dropped", "ABC4006381333", ""},
		{"null dropped", nil, ""},
		{"numeric barcode stringified", 4.006381333931e12, "4006381333931"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanProducts([]RawProduct{{Name: "X", Barcode: tc.barcode}})
			require.Len(t, got, 1)
			assert.Equal(t, tc.want, got[0].Barcode)
		})
	}
}

func TestCleanOptionalFields(t *testing.T) {
	t.Run("empty optionals stay absent", func(t *testing.T) {
		data := Clean(RawData{
			Supplier:      "  ",
			InvoiceNumber: nil,
			InvoiceDate:   "",
			TotalAmount:   0.0,
			Products:      []RawProduct{{Name: "X"}},
		})
		assert.Empty(t, data.Supplier)
		assert.Empty(t, data.InvoiceNumber)
		assert.Empty(t, data.InvoiceDate)
		assert.Zero(t, data.TotalAmount)

		b, err := json.Marshal(data)
		require.NoError(t, err)
		assert.NotContains(t, string(b), "supplier")
		assert.NotContains(t, string(b), "totalAmount")
	})

	t.Run("present optionals survive", func(t *testing.T) {
		data := Clean(RawData{
			Supplier:      " ACME CORP ",
			InvoiceNumber: "INV-42",
			InvoiceDate:   "2024-03-01",
			TotalAmount:   12.5,
			Products:      []RawProduct{{Name: "X"}},
		})
		assert.Equal(t, "ACME CORP", data.Supplier)
		assert.Equal(t, "INV-42", data.InvoiceNumber)
		assert.Equal(t, "2024-03-01", data.InvoiceDate)
		assert.Equal(t, 12.5, data.TotalAmount)
	})

	t.Run("negative total amount treated as absent", func(t *testing.T) {
		data := Clean(RawData{TotalAmount: -3.0, Products: []RawProduct{{Name: "X"}}})
		assert.Zero(t, data.TotalAmount)
	})
}

func TestCleanDateNormalization(t *testing.T) {
	testCases := []struct {
		in   any
		want string
	}{
		{"2024-03-01", "2024-03-01"},
		{"2024/03/01", "2024-03-01"},
		{"03/01/2024", "2024-03-01"},
		{"01-03-2024", "2024-03-01"},
		{"March 1st", "March 1st"}, // unrecognized passes through untouched
		{nil, ""},
	}
	for _, tc := range testCases {
		data := Clean(RawData{InvoiceDate: tc.in, Products: []RawProduct{{Name: "X"}}})
		assert.Equal(t, tc.want, data.InvoiceDate, "input %v", tc.in)
	}
}

// Cleaning must be idempotent: marshal cleaned data back through the wire
// shape and clean it again, nothing changes.
func TestCleanIdempotent(t *testing.T) {
	first := Clean(RawData{
		Supplier:    " ACME ",
		InvoiceDate: "2024/05/06",
		TotalAmount: "19,90",
		Products: []RawProduct{
			{Name: " Milk ", Quantity: "2", UnitPrice: "1,50", TotalPrice: 3.0, Barcode: "4006381333931"},
			{Name: "", Quantity: 5.0},
			{Name: "Bread"},
		},
	})

	b, err := json.Marshal(first)
	require.NoError(t, err)

	var roundTripped RawData
	require.NoError(t, json.Unmarshal(b, &roundTripped))

	second := Clean(roundTripped)
	assert.Equal(t, first, second)
}
