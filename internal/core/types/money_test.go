package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineTotal(t *testing.T) {
	assert.True(t, MustMoney("10.00").Equal(LineTotal(5, MustMoney("2.00"))))
	assert.True(t, MustMoney("0").Equal(LineTotal(0, MustMoney("9.99"))))
	assert.True(t, MustMoney("3.75").Equal(LineTotal(3, MustMoney("1.25"))))
}

func TestIsNegative(t *testing.T) {
	assert.True(t, IsNegative(MustMoney("-0.01")))
	assert.False(t, IsNegative(Zero()))
}
