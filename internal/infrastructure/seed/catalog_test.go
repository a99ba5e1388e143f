package seed_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/seed"
)

const catalogXML = `<?xml version="1.0" encoding="ISO-8859-1"?>
<catalogo>
  <producto id="P2">
    <tallas><talla>Única</talla></tallas>
    <colores><color>Azul</color></colores>
    <stock talla="Única" color="Azul" cantidad="abc"/>
  </producto>
  <producto id="P1">
    <tallas><talla> S </talla><talla>M</talla><talla>S</talla></tallas>
    <colores><color>Negro</color><color>Café</color></colores>
    <stock talla="S" color="Negro" cantidad="5"/>
    <stock talla="M" color="Café" cantidad="2.5"/>
    <stock talla="XL" color="Negro" cantidad="9"/>
  </producto>
  <producto id="P1"/>
  <producto/>
</catalogo>`

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	b, err := charmap.ISO8859_1.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(b)
}

func TestParseCatalog_ISO88591(t *testing.T) {
	products, skipped, err := seed.ParseCatalog(bytes.NewReader(latin1(t, catalogXML)))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Len(t, skipped, 2, "id duplicado y producto sin id")

	p1 := products[0]
	assert.Equal(t, "P1", p1.ProductID)
	assert.Equal(t, []string{"S", "M"}, p1.Sizes, "tallas normalizadas y sin duplicados")
	assert.Equal(t, []string{"Negro", "Café"}, p1.Colors)
	assert.Equal(t, 5, p1.Matrix.Quantity("S", "Negro"))
	assert.Equal(t, 0, p1.Matrix.Quantity("M", "Café"), "cantidad fraccionaria cuenta como 0")
	_, hasXL := p1.Matrix["XL"]
	assert.False(t, hasXL, "celdas no declaradas se descartan")
	assert.True(t, p1.InStock)

	p2 := products[1]
	assert.Equal(t, []string{"Única"}, p2.Sizes)
	assert.Equal(t, 0, p2.Matrix.Quantity("Única", "Azul"))
	assert.False(t, p2.InStock)
}

func TestParseCatalog_SinRaiz(t *testing.T) {
	_, _, err := seed.ParseCatalog(strings.NewReader(`<otro/>`))
	assert.Error(t, err)
}

func TestWriteSQL(t *testing.T) {
	products, _, err := seed.ParseCatalog(strings.NewReader(`<catalogo>
  <producto id="O'Neill">
    <tallas><talla>S</talla></tallas>
    <colores><color>Black</color></colores>
    <stock talla="S" color="Black" cantidad="3"/>
  </producto>
</catalogo>`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, seed.WriteSQL(&buf, products))
	sql := buf.String()
	assert.Contains(t, sql, "'O''Neill'")
	assert.Contains(t, sql, "ARRAY['S']::text[]")
	assert.Contains(t, sql, `'{"S":{"Black":3}}'::jsonb`)
	assert.Contains(t, sql, "ON CONFLICT (product_id, size, color) DO NOTHING")
	assert.Equal(t, 2, strings.Count(sql, "INSERT INTO"))
}
