package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrAccountNotFound_CarriesStoreKind(t *testing.T) {
	assert.Equal(t, "store", string(ErrAccountNotFound.Kind))
	assert.Equal(t, "STORE_NOT_FOUND", string(ErrAccountNotFound.Code))
}

func TestUnavailable_WrapsCause(t *testing.T) {
	cause := assert.AnError
	err := Unavailable("find_by_id", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "STORE_UNAVAILABLE", string(err.Code))
}
