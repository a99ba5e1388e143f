// seed_stock genera el script SQL de carga inicial del ledger de stock a partir del catálogo
// heredado en XML (ISO-8859-1 o UTF-8).
//
// Uso: go run ./cmd/seed_stock [ruta/catalogo.xml]
// Por defecto busca catalogo.xml en el directorio actual.
// Escribe: internal/infrastructure/postgres/seeds/stock_seed.sql
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/seed"
)

func main() {
	xmlPath := "catalogo.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	f, err := os.Open(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir XML: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	products, skipped, err := seed.ParseCatalog(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Procesar catálogo: %v\n", err)
		os.Exit(1)
	}
	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "omitido %q: %s\n", s.ProductID, s.Reason)
	}

	outDir := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "seeds")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Crear directorio: %v\n", err)
		os.Exit(1)
	}
	outPath := filepath.Join(outDir, "stock_seed.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := seed.WriteSQL(out, products); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s (%d productos, %d omitidos)\n", outPath, len(products), len(skipped))
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
