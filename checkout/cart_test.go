package checkout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCartMergesLinesByName(t *testing.T) {
	cart := NewCart()
	cart.Add("Casual Hoodie", 25, 1)
	cart.Add("Designer Jeans", 40, 2)
	cart.Add("Casual Hoodie", 25, 3)

	require.Equal(t, 2, cart.Len())
	require.Equal(t, int64(25*4+40*2), cart.Total())

	lines := cart.Lines()
	require.Equal(t, "Casual Hoodie", lines[0].Name)
	require.Equal(t, 4, lines[0].Qty)
	require.Equal(t, "Designer Jeans", lines[1].Name)
}

func TestCartUpdateQuantity(t *testing.T) {
	cart := NewCart()
	cart.Add("Summer Dress", 30, 2)

	cart.UpdateQuantity("Summer Dress", 5)
	require.Equal(t, int64(150), cart.Total())

	cart.UpdateQuantity("Summer Dress", 0)
	require.True(t, cart.Empty())
}

func TestCartRemoveAndClear(t *testing.T) {
	cart := NewCart()
	cart.Add("Formal Shirt", 20, 1)
	cart.Add("Vintage Sweater", 35, 1)

	cart.Remove("Formal Shirt")
	require.Equal(t, 1, cart.Len())
	require.Equal(t, int64(35), cart.Total())

	cart.Clear()
	require.True(t, cart.Empty())
	require.Zero(t, cart.Total())
}

func TestCartItemsSnapshot(t *testing.T) {
	cart := NewCart()
	cart.Add("Sports Jacket", 45, 2)

	items := cart.Items()
	require.Equal(t, map[string]int{"Sports Jacket": 2}, items)

	// Mutating the snapshot must not touch the cart.
	items["Sports Jacket"] = 99
	require.Equal(t, map[string]int{"Sports Jacket": 2}, cart.Items())
}
