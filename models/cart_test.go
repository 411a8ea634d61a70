package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartTotals(t *testing.T) {
	cart := &Cart{Items: []CartItem{
		{ProductID: "vase", UnitPrice: 1000, Quantity: 2},
		{ProductID: "lamp", UnitPrice: 2500, Quantity: 1},
	}}

	assert.Equal(t, int64(4500), cart.TotalAmount())
	assert.Equal(t, 3, cart.TotalItems())
}

func TestCartTotals_Empty(t *testing.T) {
	cart := &Cart{}

	view := cart.View()
	assert.Equal(t, int64(0), view.TotalAmount)
	assert.Equal(t, 0, view.TotalItems)
	assert.NotNil(t, view.Items)
}

func TestCustomerHasShipping(t *testing.T) {
	full := Customer{Address: "Main St 1", City: "Berlin", PostalCode: "10115"}
	assert.True(t, full.HasShipping())

	for name, c := range map[string]Customer{
		"no address":     {City: "Berlin", PostalCode: "10115"},
		"no city":        {Address: "Main St 1", PostalCode: "10115"},
		"no postal code": {Address: "Main St 1", City: "Berlin"},
		"blank address":  {Address: "   ", City: "Berlin", PostalCode: "10115"},
		"blank city":     {Address: "Main St 1", City: "\t", PostalCode: "10115"},
	} {
		assert.False(t, c.HasShipping(), name)
	}
}

func TestCustomerInfoTrims(t *testing.T) {
	c := CustomerInfo{Name: " Ada ", Email: "ada@example.com ", Address: "  ", City: "Berlin", PostalCode: "10115"}.Customer()

	assert.Equal(t, "Ada", c.Name)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.Empty(t, c.Address)
	assert.False(t, c.HasShipping())
}
