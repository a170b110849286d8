package curated_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atarist-core/emucore/curated"
)

const testError = "test error: %s"
const testErrorB = "test error B: %s"

func TestDuplicateErrors(t *testing.T) {
	e := curated.Errorf(testError, "foo")
	assert.Equal(t, "test error: foo", e.Error())

	// packing errors of the same type next to each other causes one of
	// them to be dropped
	f := curated.Errorf(testError, e)
	assert.Equal(t, "test error: foo", f.Error())
}

func TestIs(t *testing.T) {
	e := curated.Errorf(testError, "foo")
	assert.True(t, curated.Is(e, testError))
	assert.False(t, curated.Has(e, testErrorB))

	f := curated.Errorf(testErrorB, e)
	assert.False(t, curated.Is(f, testError))
	assert.True(t, curated.Is(f, testErrorB))
	assert.True(t, curated.Has(f, testError))
	assert.True(t, curated.Has(f, testErrorB))

	assert.True(t, curated.IsAny(e))
	assert.True(t, curated.IsAny(f))
}

func TestPlainErrors(t *testing.T) {
	e := fmt.Errorf("plain test error")
	assert.False(t, curated.IsAny(e))
	assert.False(t, curated.Has(e, testError))
}

func TestCategorisedError(t *testing.T) {
	e := curated.New(curated.CategoryEngine, curated.CodeInvalidSessionState, false,
		"cannot %s from state %s", "reset", "faulted")
	e.WithDetail("guard_id", curated.GuardReset01)

	assert.Equal(t, curated.CategoryEngine, curated.CategoryOf(e))
	assert.Equal(t, curated.CodeInvalidSessionState, curated.CodeOf(e))
	assert.False(t, curated.RetryableOf(e))
	assert.Equal(t, curated.GuardReset01, curated.DetailsOf(e)["guard_id"])
}
