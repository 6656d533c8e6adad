package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/Skotchmaster/storefront/internal/models"
)

func TestProductsXLSX(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	products := []models.Product{
		{ID: 1, Name: "Widget", Description: "blue", Price: decimal.RequireFromString("10"), Stock: 3, CreatedAt: now, UpdatedAt: now},
		{ID: 2, Name: "Gadget", Price: decimal.RequireFromString("5.5"), CreatedAt: now, UpdatedAt: now},
	}

	var buf bytes.Buffer
	require.NoError(t, ProductsXLSX(&buf, products))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	assert.Equal(t, "Products", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Name", sheet.Rows[0].Cells[1].String())
	assert.Equal(t, "Widget", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "10.00", sheet.Rows[1].Cells[3].String())
	assert.Equal(t, "5.50", sheet.Rows[2].Cells[3].String())
	assert.Equal(t, "2025-03-01 12:00:00", sheet.Rows[2].Cells[5].String())
}

func TestProductsXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ProductsXLSX(&buf, nil))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets[0].Rows, 1)
}
