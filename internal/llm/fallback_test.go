package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackParserLineItems(t *testing.T) {
	p := NewFallbackParser(nil)

	text := "ACME CORP\n" +
		"Invoice #42\n" +
		"Milk 2 1.50 3.00\n" +
		"Dark Rye Bread 1 2,40 2,40\n" +
		"VAT 19% 1 0.95 0.95\n" +
		"Total 5.40\n"

	data, raw, err := p.ParseInvoice(context.Background(), text)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	require.Len(t, data.Products, 2)
	assert.Equal(t, "Milk", data.Products[0].Name)
	assert.Equal(t, 2.0, data.Products[0].Quantity)
	assert.Equal(t, 1.5, data.Products[0].UnitPrice)
	assert.Equal(t, 3.0, data.Products[0].TotalPrice)

	assert.Equal(t, "Dark Rye Bread", data.Products[1].Name)
	assert.Equal(t, 2.4, data.Products[1].UnitPrice)
}

func TestFallbackParserNeverRecoversMetadata(t *testing.T) {
	p := NewFallbackParser(nil)

	data, _, err := p.ParseInvoice(context.Background(), "ACME CORP\nMilk 2 1.50 3.00")
	require.NoError(t, err)

	assert.Nil(t, data.Supplier)
	assert.Nil(t, data.InvoiceDate)
	assert.Nil(t, data.InvoiceNumber)
	assert.Nil(t, data.TotalAmount)
}

func TestFallbackParserTaxLineVariants(t *testing.T) {
	p := NewFallbackParser(nil)

	for _, line := range []string{
		"VAT 1 0.95 0.95",
		"Tax 1 0.95 0.95",
		"TVA 20% 1 0.95 0.95",
		"MwSt 1 0.95 0.95",
	} {
		data, _, err := p.ParseInvoice(context.Background(), line)
		require.NoError(t, err)
		assert.Empty(t, data.Products, "line %q should be excluded", line)
	}
}

func TestFallbackParserNoMatches(t *testing.T) {
	p := NewFallbackParser(nil)

	data, _, err := p.ParseInvoice(context.Background(), "just some prose\nwith no line items")
	require.NoError(t, err)
	assert.NotNil(t, data.Products)
	assert.Empty(t, data.Products)
}
