package httprange_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidscreen/internal/httprange"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		size    int64
		want    httprange.Range
		ok      bool
		wantErr bool
	}{
		{name: "no header serves full body", header: "", size: 100, ok: false},
		{name: "closed range", header: "bytes=0-499", size: 1000, want: httprange.Range{Start: 0, End: 499}, ok: true},
		{name: "open end defaults to last byte", header: "bytes=500-", size: 1000, want: httprange.Range{Start: 500, End: 999}, ok: true},
		{name: "whole file as range", header: "bytes=0-", size: 1000, want: httprange.Range{Start: 0, End: 999}, ok: true},
		{name: "single byte", header: "bytes=999-999", size: 1000, want: httprange.Range{Start: 999, End: 999}, ok: true},
		{name: "first of multiple ranges honored", header: "bytes=0-1,50-60", size: 100, want: httprange.Range{Start: 0, End: 1}, ok: true},
		{name: "start past end of file", header: "bytes=1000-", size: 1000, wantErr: true},
		{name: "end past end of file", header: "bytes=0-1000", size: 1000, wantErr: true},
		{name: "inverted range", header: "bytes=9-3", size: 1000, wantErr: true},
		{name: "suffix range unsupported", header: "bytes=-500", size: 1000, wantErr: true},
		{name: "missing unit", header: "0-499", size: 1000, wantErr: true},
		{name: "garbage", header: "bytes=abc-def", size: 1000, wantErr: true},
		{name: "bare start without dash", header: "bytes=42", size: 1000, wantErr: true},
		{name: "empty file any range", header: "bytes=0-", size: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := httprange.Parse(tt.header, tt.size)
			if tt.wantErr {
				assert.ErrorIs(t, err, httprange.ErrUnsatisfiable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRangeLength(t *testing.T) {
	r := httprange.Range{Start: 1000, End: 1999}
	assert.Equal(t, int64(1000), r.Length())
}
