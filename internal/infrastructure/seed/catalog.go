// Package seed importa el catálogo heredado (XML, a menudo en ISO-8859-1) y genera el script SQL
// que puebla product_stock y product_variants.
package seed

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	ledger "github.com/jhoicas/stock-ledger/internal/domain/stock"
)

// Skipped producto omitido durante la importación y el motivo.
type Skipped struct {
	ProductID string
	Reason    string
}

// ParseCatalog lee el XML heredado:
//
//	<catalogo>
//	  <producto id="P1">
//	    <tallas><talla>S</talla></tallas>
//	    <colores><color>Negro</color></colores>
//	    <stock talla="S" color="Negro" cantidad="5"/>
//	  </producto>
//	</catalogo>
//
// Las cantidades no numéricas, fraccionarias o negativas cuentan como 0 y las celdas de pares no
// declarados se descartan.
func ParseCatalog(r io.Reader) ([]*entity.ProductStock, []Skipped, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, nil, fmt.Errorf("leer XML: %w", err)
	}
	root := doc.SelectElement("catalogo")
	if root == nil {
		return nil, nil, fmt.Errorf("XML sin elemento <catalogo>")
	}

	var products []*entity.ProductStock
	var skipped []Skipped
	seen := make(map[string]struct{})
	for _, el := range root.SelectElements("producto") {
		id := strings.TrimSpace(el.SelectAttrValue("id", ""))
		if id == "" {
			skipped = append(skipped, Skipped{Reason: "producto sin id"})
			continue
		}
		if _, dup := seen[id]; dup {
			skipped = append(skipped, Skipped{ProductID: id, Reason: "id duplicado"})
			continue
		}
		seen[id] = struct{}{}

		sizes := ledger.NormalizeLabels(texts(el.FindElements("tallas/talla")))
		colors := ledger.NormalizeLabels(texts(el.FindElements("colores/color")))
		p := &entity.ProductStock{
			ProductID: id,
			Sizes:     sizes,
			Colors:    colors,
			Matrix:    entity.NewVariantMatrix(sizes, colors, 0),
		}
		for _, cell := range el.SelectElements("stock") {
			size := ledger.NormalizeLabel(cell.SelectAttrValue("talla", ""))
			color := ledger.NormalizeLabel(cell.SelectAttrValue("color", ""))
			if !p.HasVariant(size, color) {
				continue
			}
			p.Matrix[size][color] = ledger.ParseQuantity(cell.SelectAttrValue("cantidad", "0"))
		}
		p.InStock = ledger.InStock(p.Matrix, sizes, colors)
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ProductID < products[j].ProductID })
	return products, skipped, nil
}

// WriteSQL escribe el script de carga. Es re-ejecutable: ON CONFLICT DO NOTHING.
func WriteSQL(w io.Writer, products []*entity.ProductStock) error {
	var b strings.Builder
	b.WriteString("-- Carga inicial del ledger de stock desde el catálogo heredado\n\n")
	for _, p := range products {
		matrix, err := ledger.EncodeMatrix(p.Matrix)
		if err != nil {
			return fmt.Errorf("matriz %s: %w", p.ProductID, err)
		}
		fmt.Fprintf(&b, "INSERT INTO product_stock (id, sizes, colors, matrix, in_stock, forced_out_of_stock, version, updated_at)\n")
		fmt.Fprintf(&b, "VALUES (%s, %s, %s, %s::jsonb, %t, false, 1, now())\nON CONFLICT (id) DO NOTHING;\n",
			quote(p.ProductID), textArray(p.Sizes), textArray(p.Colors), quote(string(matrix)), p.InStock)
		for _, k := range p.VariantKeys() {
			fmt.Fprintf(&b, "INSERT INTO product_variants (id, product_id, size, color, stock, updated_at)\n")
			fmt.Fprintf(&b, "VALUES (gen_random_uuid()::text, %s, %s, %s, %d, now())\nON CONFLICT (product_id, size, color) DO NOTHING;\n",
				quote(k.ProductID), quote(k.Size), quote(k.Color), p.Matrix.Quantity(k.Size, k.Color))
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(charset) {
	case "ISO-8859-1", "ISO8859-1", "LATIN1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	case "UTF-8", "":
		return input, nil
	}
	return nil, fmt.Errorf("charset no soportado: %s", charset)
}

func texts(els []*etree.Element) []string {
	out := make([]string, 0, len(els))
	for _, el := range els {
		out = append(out, el.Text())
	}
	return out
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func textArray(list []string) string {
	quoted := make([]string, len(list))
	for i, s := range list {
		quoted[i] = quote(s)
	}
	return "ARRAY[" + strings.Join(quoted, ", ") + "]::text[]"
}
