package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAdapterNames(t *testing.T) {
	assert.Equal(t, []string{"iccat", "iotc"}, splitAdapterNames("iccat,iotc"))
	assert.Nil(t, splitAdapterNames(""))
}
