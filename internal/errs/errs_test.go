package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(nil))
	assert.Equal(t, KindNotFound, KindOf(E(KindNotFound, "missing")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	// The kind survives wrapping in either direction.
	wrapped := fmt.Errorf("outer: %w", E(KindConflict, "dup"))
	assert.Equal(t, KindConflict, KindOf(wrapped))

	inner := errors.New("driver: bad conn")
	tagged := Wrap(KindInternal, "save failed", inner)
	assert.Equal(t, KindInternal, KindOf(tagged))
	assert.True(t, errors.Is(tagged, inner))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindLockContention, http.StatusTooManyRequests},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, HTTPStatus(E(tc.kind, "boom")), tc.kind.String())
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("untagged")))
}
