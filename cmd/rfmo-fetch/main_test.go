package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAdapterNames(t *testing.T) {
	assert.Equal(t, []string{"iccat", "wcpfc", "iotc"}, splitAdapterNames("iccat,wcpfc,iotc"))
	assert.Equal(t, []string{"iccat"}, splitAdapterNames(" iccat "))
	assert.Nil(t, splitAdapterNames(""))
	assert.Nil(t, splitAdapterNames(" , , "))
}
