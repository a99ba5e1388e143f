package dto

import "time"

// MutateStockRequest body para POST /api/stock/products/:id/{reserve,restore}.
type MutateStockRequest struct {
	Size           string `json:"size"`
	Color          string `json:"color"`
	Quantity       int    `json:"quantity"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key,omitempty"` // p. ej. "<order_id>:<size>:<color>"
}

// AdjustStockRequest body para POST /api/stock/products/:id/adjust (valor absoluto).
type AdjustStockRequest struct {
	Size     string `json:"size"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// StockMutationResponse cantidad resultante de la celda.
type StockMutationResponse struct {
	ProductID   string `json:"product_id"`
	Size        string `json:"size"`
	Color       string `json:"color"`
	NewQuantity int    `json:"new_quantity"`
}

// CreateProductStockRequest body para POST /api/stock/products.
// Initial (opcional) fija cantidades explícitas; el resto de pares declarados inicia en SeedQuantity.
type CreateProductStockRequest struct {
	ProductID    string                    `json:"product_id"`
	Sizes        []string                  `json:"sizes"`
	Colors       []string                  `json:"colors"`
	SeedQuantity int                       `json:"seed_quantity"`
	Initial      map[string]map[string]int `json:"initial,omitempty"`
}

// UpdateVariantsRequest body para PUT /api/stock/products/:id/variants.
type UpdateVariantsRequest struct {
	Sizes  []string `json:"sizes"`
	Colors []string `json:"colors"`
	Reason string   `json:"reason"`
}

// ForcedOutOfStockRequest body para PUT /api/stock/products/:id/forced-out-of-stock.
type ForcedOutOfStockRequest struct {
	Forced bool `json:"forced"`
}

// VariantQuantityDTO cantidad de una combinación declarada.
type VariantQuantityDTO struct {
	Size     string `json:"size"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity"`
}

// AvailabilityResponse disponibilidad derivada de la matriz.
// InStock es la señal del ledger; Sellable además respeta el flag administrativo.
type AvailabilityResponse struct {
	ProductID        string               `json:"product_id"`
	PerCombination   []VariantQuantityDTO `json:"per_combination"`
	Total            int                  `json:"total"`
	InStock          bool                 `json:"in_stock"`
	ForcedOutOfStock bool                 `json:"forced_out_of_stock"`
	Sellable         bool                 `json:"sellable"`
	Version          int64                `json:"version"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// VariantKeyDTO par (talla, color).
type VariantKeyDTO struct {
	Size  string `json:"size"`
	Color string `json:"color"`
}

// UpdateVariantsResponse resultado de una edición de catálogo.
type UpdateVariantsResponse struct {
	Added        []VariantKeyDTO      `json:"added"`
	Removed      []VariantKeyDTO      `json:"removed"`
	Availability AvailabilityResponse `json:"availability"`
}

// ReconciliationResponse resumen de una pasada de reconciliación.
type ReconciliationResponse struct {
	Scanned        int       `json:"scanned"`
	OrphansFound   int       `json:"orphans_found"`
	OrphansDeleted int       `json:"orphans_deleted"`
	Failed         int       `json:"failed"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// InsufficientStockResponse cuerpo 409 de una reserva rechazada.
type InsufficientStockResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// StockEventDTO entrada del log de auditoría.
type StockEventDTO struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Size           string    `json:"size"`
	Color          string    `json:"color"`
	Delta          int       `json:"delta"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	Reason         string    `json:"reason,omitempty"`
	Actor          string    `json:"actor,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
