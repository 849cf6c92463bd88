package panicerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeContext(t *testing.T) {
	ctx := context.Background()

	err := SafeContext(func(context.Context) error { return nil })(ctx)
	assert.NoError(t, err)

	sentinel := errors.New("boom")
	err = SafeContext(func(context.Context) error { return sentinel })(ctx)
	assert.ErrorIs(t, err, sentinel)

	err = SafeContext(func(context.Context) error { panic("mailer exploded") })(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailer exploded")
}
