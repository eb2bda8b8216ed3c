package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBank struct {
	balances map[string]int64
}

func newFakeBank() *fakeBank { return &fakeBank{balances: make(map[string]int64)} }

func (b *fakeBank) Balance(player string) (int64, error) { return b.balances[player], nil }

func (b *fakeBank) Debit(player string, amount int64, reason Reason) error {
	if amount > b.balances[player] {
		return ErrInsufficientFunds
	}
	b.balances[player] -= amount
	return nil
}

func (b *fakeBank) Credit(player string, amount int64, reason Reason) error {
	b.balances[player] += amount
	return nil
}

type fakeItemBackend struct {
	stores map[ItemId]ItemStore
}

func newFakeItemBackend() *fakeItemBackend { return &fakeItemBackend{stores: make(map[ItemId]ItemStore)} }

func (f *fakeItemBackend) LoadItemStore(item ItemId) (ItemStore, error) {
	if s, ok := f.stores[item]; ok {
		return s, nil
	}
	return NewItemStore(item), nil
}

func (f *fakeItemBackend) SaveItemStore(item ItemId, s ItemStore) error {
	f.stores[item] = s
	return nil
}

// fakeMarketInvBackend is a minimal InventoryBackend keyed by
// (player, inv) exactly like StoreInventoryBackend, used here to let
// FulfillBuyOrder deposit into a buyer's station bin without a real
// Store.
type fakeMarketInvBackend struct {
	bins map[string]Inventory
}

func newFakeMarketInvBackend() *fakeMarketInvBackend {
	return &fakeMarketInvBackend{bins: make(map[string]Inventory)}
}

func (f *fakeMarketInvBackend) key(player string, inv InvId) string {
	return player + ":" + string(inv)
}

func (f *fakeMarketInvBackend) LoadInventory(player string, inv InvId) (Inventory, error) {
	if i, ok := f.bins[f.key(player, inv)]; ok {
		return i, nil
	}
	return NewInventory(nil, nil), nil
}

func (f *fakeMarketInvBackend) SaveInventory(player string, inv InvId, i Inventory) error {
	f.bins[f.key(player, inv)] = i
	return nil
}

type fakePlayerOrderBackend struct {
	indexes map[string]PlayerOrderIndex
}

func newFakePlayerOrderBackend() *fakePlayerOrderBackend {
	return &fakePlayerOrderBackend{indexes: make(map[string]PlayerOrderIndex)}
}

func (f *fakePlayerOrderBackend) LoadPlayerOrders(player string) (PlayerOrderIndex, error) {
	if idx, ok := f.indexes[player]; ok {
		return idx, nil
	}
	return NewPlayerOrderIndex(), nil
}

func (f *fakePlayerOrderBackend) SavePlayerOrders(player string, idx PlayerOrderIndex) error {
	f.indexes[player] = idx
	return nil
}

func newTestMarket(t *testing.T, bank Bank) (*Market, *fakeMarketInvBackend) {
	t.Helper()
	cat := fakeCatalog{"ore": 1}
	invBackend := newFakeMarketInvBackend()
	m, err := NewMarket(newFakeItemBackend(), invBackend, newFakePlayerOrderBackend(), bank, cat, 16)
	require.NoError(t, err)
	return m, invBackend
}

func TestPlaceBuyOrderEscrowsFunds(t *testing.T) {
	bank := newFakeBank()
	bank.balances["alice"] = 1000
	m, _ := newTestMarket(t, bank)

	_, err := m.PlaceBuyOrder("ore", "alice", 10, 5, "alice-bin")
	require.NoError(t, err)
	require.Equal(t, int64(950), bank.balances["alice"])
}

func TestPlaceBuyOrderInsufficientFunds(t *testing.T) {
	bank := newFakeBank()
	bank.balances["alice"] = 10
	m, _ := newTestMarket(t, bank)

	_, err := m.PlaceBuyOrder("ore", "alice", 10, 5, "alice-bin")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, int64(10), bank.balances["alice"])
}

func TestPlaceBuyOrderRejectsOnceOrderCapReached(t *testing.T) {
	bank := newFakeBank()
	bank.balances["alice"] = 1_000_000
	m, _ := newTestMarket(t, bank)

	for i := 0; i < defaultMaxOrdersPerPlayer; i++ {
		_, err := m.PlaceBuyOrder("ore", "alice", 1, 1, "alice-bin")
		require.NoError(t, err)
	}
	_, err := m.PlaceBuyOrder("ore", "alice", 1, 1, "alice-bin")
	require.ErrorIs(t, err, ErrOrderSlotsFull)
}

func TestFulfillBuyOrderMovesGoodsAndMoney(t *testing.T) {
	bank := newFakeBank()
	bank.balances["alice"] = 1000
	m, invBackend := newTestMarket(t, bank)

	orderID, err := m.PlaceBuyOrder("ore", "alice", 10, 5, "alice-bin")
	require.NoError(t, err)

	sellerInv := NewInventory(nil, nil)
	sellerInv.Slots[0] = Stack{ItemID: "ore", Count: 5}

	err = m.FulfillBuyOrder("ore", orderID, "bob", &sellerInv, 0, 5)
	require.NoError(t, err)
	require.Equal(t, int64(50), bank.balances["bob"])
	_, stillHasStock := sellerInv.Slots[0]
	require.False(t, stillHasStock)

	buyerInv, err := invBackend.LoadInventory("alice", "alice-bin")
	require.NoError(t, err)
	var total uint32
	for _, stack := range buyerInv.Slots {
		require.Equal(t, ItemId("ore"), stack.ItemID)
		total += stack.Count
	}
	require.Equal(t, uint32(5), total, "buyer must receive the full fulfilled quantity")
}

func TestFulfillBuyOrderRollsBackOnInsufficientStock(t *testing.T) {
	bank := newFakeBank()
	bank.balances["alice"] = 1000
	m, invBackend := newTestMarket(t, bank)

	orderID, err := m.PlaceBuyOrder("ore", "alice", 10, 5, "alice-bin")
	require.NoError(t, err)

	sellerInv := NewInventory(nil, nil)
	sellerInv.Slots[0] = Stack{ItemID: "ore", Count: 2}

	err = m.FulfillBuyOrder("ore", orderID, "bob", &sellerInv, 0, 5)
	require.Error(t, err)
	require.Equal(t, uint32(2), sellerInv.Slots[0].Count, "stock must be returned on failed fulfillment")
	require.Equal(t, int64(0), bank.balances["bob"])

	buyerInv, err := invBackend.LoadInventory("alice", "alice-bin")
	require.NoError(t, err)
	require.Empty(t, buyerInv.Slots, "buyer must receive nothing when fulfillment fails")
}

func TestCancelBuyOrderRefundsEscrow(t *testing.T) {
	bank := newFakeBank()
	bank.balances["alice"] = 1000
	m, _ := newTestMarket(t, bank)

	orderID, err := m.PlaceBuyOrder("ore", "alice", 10, 5, "alice-bin")
	require.NoError(t, err)
	require.Equal(t, int64(950), bank.balances["alice"])

	require.NoError(t, m.CancelBuyOrder("ore", orderID))
	require.Equal(t, int64(1000), bank.balances["alice"])
}
