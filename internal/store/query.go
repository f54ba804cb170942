package store

import "fmt"

// Field names a queryable post attribute.
type Field string

// Queryable post fields.
const (
	FieldID           Field = "id"
	FieldSlug         Field = "slug"
	FieldTags         Field = "tags" // equality means membership
	FieldIsPublished  Field = "is_published"
	FieldAuthorID     Field = "author_id"
	FieldPublishDate  Field = "publish_date"
	FieldLastModified Field = "last_modified"
	FieldCreatedAt    Field = "created_at"
)

// Query limits.
const (
	DefaultLimit = 25
	MaxLimit     = 1000
)

// Filter is an equality predicate.
type Filter struct {
	Field Field
	Value any
}

// Equal returns an equality filter.
func Equal(field Field, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Order sorts results by a field.
type Order struct {
	Field Field
	Desc  bool
}

// OrderDesc sorts descending by field.
func OrderDesc(field Field) Order {
	return Order{Field: field, Desc: true}
}

// Query is a structured document query: filters, optional full-text term,
// ordering and an offset page. Filters are ANDed.
type Query struct {
	Filters []Filter
	Search  string // full-text term over title, excerpt and content
	Order   Order
	Limit   int
	Offset  int
}

// Normalize clamps the page and defaults the ordering.
func (q *Query) Normalize() {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Order.Field == "" {
		q.Order = OrderDesc(FieldLastModified)
	}
}

// Validate rejects filters and orderings on unknown fields.
func (q *Query) Validate() error {
	for _, f := range q.Filters {
		switch f.Field {
		case FieldID, FieldSlug, FieldTags, FieldAuthorID:
			if _, ok := f.Value.(string); !ok {
				return ErrInvalidInput.WithMessage(fmt.Sprintf("filter %s expects a string", f.Field))
			}
		case FieldIsPublished:
			if _, ok := f.Value.(bool); !ok {
				return ErrInvalidInput.WithMessage(fmt.Sprintf("filter %s expects a bool", f.Field))
			}
		default:
			return ErrInvalidInput.WithMessage(fmt.Sprintf("cannot filter on %q", f.Field))
		}
	}
	switch q.Order.Field {
	case "", FieldPublishDate, FieldLastModified, FieldCreatedAt:
	default:
		return ErrInvalidInput.WithMessage(fmt.Sprintf("cannot order by %q", q.Order.Field))
	}
	return nil
}
