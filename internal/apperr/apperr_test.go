package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, New(InvalidArgument, "x").StatusCode())
	assert.Equal(t, http.StatusBadGateway, New(Upstream, "x").StatusCode())
	assert.Equal(t, http.StatusServiceUnavailable, New(Unavailable, "x").StatusCode())
	assert.Equal(t, http.StatusGatewayTimeout, New(Timeout, "x").StatusCode())
	assert.Equal(t, http.StatusInternalServerError, New(Code("other"), "x").StatusCode())
}

func TestFrom(t *testing.T) {
	inner := New(InvalidArgument, "No image provided")
	got := From(fmt.Errorf("handler: %w", inner))
	assert.Same(t, inner, got)
	assert.Equal(t, "No image provided", got.Error())

	assert.Equal(t, Timeout, From(fmt.Errorf("call: %w", context.DeadlineExceeded)).Code)
	assert.Equal(t, Internal, From(errors.New("boom")).Code)
	assert.Nil(t, From(nil))
}

func TestWrapAndIsCode(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(cause, Upstream, "download image")
	assert.Equal(t, "download image: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsCode(err, Upstream))
	assert.False(t, IsCode(err, Internal))
}
