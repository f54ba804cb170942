package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery_Normalize(t *testing.T) {
	q := Query{Limit: 5000, Offset: -3}
	q.Normalize()

	assert.Equal(t, MaxLimit, q.Limit)
	assert.Equal(t, 0, q.Offset)
	assert.Equal(t, OrderDesc(FieldLastModified), q.Order)

	q = Query{}
	q.Normalize()
	assert.Equal(t, DefaultLimit, q.Limit)
}

func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr bool
	}{
		{"published filter", Query{Filters: []Filter{Equal(FieldIsPublished, true)}}, false},
		{"tag filter", Query{Filters: []Filter{Equal(FieldTags, "ducks")}}, false},
		{"order by publish date", Query{Order: OrderDesc(FieldPublishDate)}, false},
		{"wrong value type", Query{Filters: []Filter{Equal(FieldIsPublished, "yes")}}, true},
		{"unknown filter", Query{Filters: []Filter{Equal("views", 3)}}, true},
		{"unknown order", Query{Order: OrderDesc(FieldTags)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestError_IsByCode(t *testing.T) {
	err := ErrNotFound.WithMessage("post not found")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAlreadyExists))
	assert.Equal(t, 404, err.HTTPCode())
}
