package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name      string
		filter    VideoFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "empty filter",
			filter:    VideoFilter{},
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "status only",
			filter:    VideoFilter{Status: "completed"},
			wantWhere: " WHERE status = $1",
			wantArgs:  []any{"completed"},
		},
		{
			name:      "editor scope combines org and owner",
			filter:    VideoFilter{Organization: "acme", OwnerID: "u1"},
			wantWhere: " WHERE organization = $1 AND owner_id = $2",
			wantArgs:  []any{"acme", "u1"},
		},
		{
			name:      "viewer scope matches ownership or allow-list",
			filter:    VideoFilter{Organization: "acme", ViewableBy: "u2"},
			wantWhere: " WHERE organization = $1 AND (owner_id = $2 OR $2 = ANY(allowed_users))",
			wantArgs:  []any{"acme", "u2"},
		},
		{
			name:      "all content filters",
			filter:    VideoFilter{Status: "completed", SensitivityStatus: "flagged", Category: "News"},
			wantWhere: " WHERE status = $1 AND sensitivity_status = $2 AND category = $3",
			wantArgs:  []any{"completed", "flagged", "News"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildFilter(tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestVideoFilterPaging(t *testing.T) {
	assert.Equal(t, 10, VideoFilter{}.limit(), "default page size")
	assert.Equal(t, 10, VideoFilter{Limit: 500}.limit(), "oversized limit clamped to default")
	assert.Equal(t, 25, VideoFilter{Limit: 25}.limit())

	assert.Equal(t, 0, VideoFilter{Page: 1, Limit: 20}.offset())
	assert.Equal(t, 40, VideoFilter{Page: 3, Limit: 20}.offset())
	assert.Equal(t, 0, VideoFilter{Page: -1}.offset())
}
