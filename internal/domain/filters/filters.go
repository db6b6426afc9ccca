package filters

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

type Filters struct {
	Page     int `schema:"page" validate:"omitempty,gte=1,lte=10000000"`
	PageSize int `schema:"page_size" validate:"omitempty,gte=1,lte=50"`
}

func (f *Filters) Limit() int {
	switch {
	case f.PageSize <= 0:
		return DefaultPageSize
	case f.PageSize > MaxPageSize:
		return MaxPageSize
	}
	return f.PageSize
}

func (f *Filters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}
