package dto

// MaxPageLimit tope de elementos por página en listados.
const MaxPageLimit = 100

// PageRequest paginación de listados (query ?limit=&offset=).
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// DefaultPage normaliza la página: 20 por defecto, tope MaxPageLimit y offset no negativo.
func (p *PageRequest) DefaultPage() {
	switch {
	case p.Limit <= 0:
		p.Limit = 20
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse página devuelta. Count es el número de elementos de esta página; HasMore indica
// que una página llena puede tener continuación.
type PageResponse struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

// NewPageResponse arma los metadatos a partir de la página pedida y los elementos obtenidos.
func NewPageResponse(page PageRequest, count int) PageResponse {
	return PageResponse{
		Limit:   page.Limit,
		Offset:  page.Offset,
		Count:   count,
		HasMore: count == page.Limit,
	}
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
