package dto

// PageRequest paginación para listados. Si Token no está vacío se usa paginación por cursor
// y Offset se ignora.
type PageRequest struct {
	Limit  int    `query:"limit" validate:"min=1,max=100"`
	Offset int    `query:"offset" validate:"min=0"`
	Token  string `query:"page_token"`
}

// DefaultPage aplica valores por defecto si Limit/Offset son cero y acota Limit a max.
func (p *PageRequest) DefaultPage(max int) {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if max > 0 && p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	Total     int    `json:"total"`
	HasMore   bool   `json:"has_more"`
	NextToken string `json:"next_page_token,omitempty"`
}

// NewPageResponse calcula has_more a partir del total.
func NewPageResponse(limit, offset, returned, total int) PageResponse {
	return PageResponse{
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasMore: offset+returned < total,
	}
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
