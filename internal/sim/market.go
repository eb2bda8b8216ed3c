/*
Package sim
File: market.go
Description:
    Order-book market: a bounded per-tick LRU cache of ItemStore
    records, since the persistence tier can hold far more items than a
    tick ever touches, flushed back to the backing store at stage end.
    Every fulfillment follows a remove-then-credit-then-deposit
    sequence, rolling the stack back to its source on any downstream
    failure so no transaction can duplicate or destroy items.
*/

package sim

import (
	"errors"
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// defaultMaxOrdersPerPlayer is the global per-player open-order cap
// (buy + sell, across every item) used when a player has no
// PlayerOrderIndex on file yet.
const defaultMaxOrdersPerPlayer = 20

var (
	ErrOrderNotFound   = errors.New("sim: order not found")
	ErrOrderSlotsFull  = errors.New("sim: player has too many open orders")
	ErrQtyExceedsOrder = errors.New("sim: fulfillment quantity exceeds order remaining quantity")
)

// Order is one resting buy or sell order against an item. PricePerUnit
// is a signed 64-bit currency count: escrow and payouts are
// always integer truncations of count*price, never fractional.
// Location addresses the buyer's delivery inventory for a buy order
// (the station bin FulfillBuyOrder deposits the purchased stack into);
// sell orders leave it unset since fulfillment deposits directly into
// whatever inventory the fulfiller supplies.
type Order struct {
	ID           OrderId
	Player       string
	PricePerUnit int64
	Qty          uint32
	Location     InvId
}

// ItemStore is the persisted order book for a single item.
type ItemStore struct {
	ItemID     ItemId
	BuyOrders  map[OrderId]Order
	SellOrders map[OrderId]Order
}

func NewItemStore(item ItemId) ItemStore {
	return ItemStore{ItemID: item, BuyOrders: make(map[OrderId]Order), SellOrders: make(map[OrderId]Order)}
}

// itemStoreBSON is ItemStore's wire shape: order ids round-trip as
// decimal strings since BSON maps require string keys.
type itemStoreBSON struct {
	ItemID     ItemId
	BuyOrders  map[string]Order
	SellOrders map[string]Order
}

func ordersToBSON(m map[OrderId]Order) map[string]Order {
	out := make(map[string]Order, len(m))
	for id, o := range m {
		out[strconv.FormatUint(uint64(id), 10)] = o
	}
	return out
}

func ordersFromBSON(m map[string]Order) (map[OrderId]Order, error) {
	out := make(map[OrderId]Order, len(m))
	for k, o := range m {
		n, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, err
		}
		out[OrderId(n)] = o
	}
	return out, nil
}

// MarshalBSON implements bson.Marshaler.
func (s ItemStore) MarshalBSON() ([]byte, error) {
	return bson.Marshal(itemStoreBSON{
		ItemID:     s.ItemID,
		BuyOrders:  ordersToBSON(s.BuyOrders),
		SellOrders: ordersToBSON(s.SellOrders),
	})
}

// UnmarshalBSON implements bson.Unmarshaler.
func (s *ItemStore) UnmarshalBSON(data []byte) error {
	var aux itemStoreBSON
	if err := bson.Unmarshal(data, &aux); err != nil {
		return err
	}
	buy, err := ordersFromBSON(aux.BuyOrders)
	if err != nil {
		return err
	}
	sell, err := ordersFromBSON(aux.SellOrders)
	if err != nil {
		return err
	}
	s.ItemID = aux.ItemID
	s.BuyOrders = buy
	s.SellOrders = sell
	return nil
}

// ItemStoreBackend is the persistence-side counterpart an ItemStore is
// loaded from and flushed to.
type ItemStoreBackend interface {
	LoadItemStore(item ItemId) (ItemStore, error)
	SaveItemStore(item ItemId, s ItemStore) error
}

// PlayerOrderIndex is the persisted market(player) tree entry: every
// open order a player has resting anywhere, by item, plus the cap
// placing a new order is checked against. Maintained alongside (never
// instead of) the per-item ItemStore so CancelBuyOrder/CancelSellOrder
// and a fulfillment that empties an order can find and drop the
// player-side reference without scanning every item.
type PlayerOrderIndex struct {
	BuyOrders  map[OrderId]ItemId
	SellOrders map[OrderId]ItemId
	MaxOrders  int
}

// NewPlayerOrderIndex builds an empty index with the default order cap.
func NewPlayerOrderIndex() PlayerOrderIndex {
	return PlayerOrderIndex{
		BuyOrders:  make(map[OrderId]ItemId),
		SellOrders: make(map[OrderId]ItemId),
		MaxOrders:  defaultMaxOrdersPerPlayer,
	}
}

// playerOrderIndexBSON is PlayerOrderIndex's wire shape: order ids
// round-trip as decimal strings since BSON maps require string keys.
type playerOrderIndexBSON struct {
	BuyOrders  map[string]ItemId
	SellOrders map[string]ItemId
	MaxOrders  int
}

func itemIDsToBSON(m map[OrderId]ItemId) map[string]ItemId {
	out := make(map[string]ItemId, len(m))
	for id, item := range m {
		out[strconv.FormatUint(uint64(id), 10)] = item
	}
	return out
}

func itemIDsFromBSON(m map[string]ItemId) (map[OrderId]ItemId, error) {
	out := make(map[OrderId]ItemId, len(m))
	for k, item := range m {
		n, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, err
		}
		out[OrderId(n)] = item
	}
	return out, nil
}

// MarshalBSON implements bson.Marshaler.
func (idx PlayerOrderIndex) MarshalBSON() ([]byte, error) {
	return bson.Marshal(playerOrderIndexBSON{
		BuyOrders:  itemIDsToBSON(idx.BuyOrders),
		SellOrders: itemIDsToBSON(idx.SellOrders),
		MaxOrders:  idx.MaxOrders,
	})
}

// UnmarshalBSON implements bson.Unmarshaler.
func (idx *PlayerOrderIndex) UnmarshalBSON(data []byte) error {
	var aux playerOrderIndexBSON
	if err := bson.Unmarshal(data, &aux); err != nil {
		return err
	}
	buy, err := itemIDsFromBSON(aux.BuyOrders)
	if err != nil {
		return err
	}
	sell, err := itemIDsFromBSON(aux.SellOrders)
	if err != nil {
		return err
	}
	idx.BuyOrders = buy
	idx.SellOrders = sell
	idx.MaxOrders = aux.MaxOrders
	return nil
}

// MarketPlayerBackend is the persistence-side counterpart a
// PlayerOrderIndex is loaded from and flushed to.
type MarketPlayerBackend interface {
	LoadPlayerOrders(player string) (PlayerOrderIndex, error)
	SavePlayerOrders(player string, idx PlayerOrderIndex) error
}

// Market is the per-tick order-processing front end: a bounded cache
// over ItemStoreBackend plus the Bank and Catalog order fulfillment
// needs to move money and goods. invBackend resolves a buy order's
// delivery location (a station bin keyed by the buyer's own player
// name) when a fulfillment deposits purchased goods there.
type Market struct {
	cache         *lru.Cache[ItemId, *ItemStore]
	backend       ItemStoreBackend
	invBackend    InventoryBackend
	playerBackend MarketPlayerBackend
	bank          Bank
	cat           Catalog
	seq           uint64
}

// NewMarket builds a Market with a cache sized for cacheSize distinct
// items per tick.
func NewMarket(backend ItemStoreBackend, invBackend InventoryBackend, playerBackend MarketPlayerBackend, bank Bank, cat Catalog, cacheSize int) (*Market, error) {
	c, err := lru.New[ItemId, *ItemStore](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Market{cache: c, backend: backend, invBackend: invBackend, playerBackend: playerBackend, bank: bank, cat: cat}, nil
}

// loadPlayerIndex loads player's order index, filling in defaults for
// a first-time player with no index on file yet.
func (m *Market) loadPlayerIndex(player string) (PlayerOrderIndex, error) {
	idx, err := m.playerBackend.LoadPlayerOrders(player)
	if err != nil {
		return PlayerOrderIndex{}, err
	}
	if idx.BuyOrders == nil {
		idx.BuyOrders = make(map[OrderId]ItemId)
	}
	if idx.SellOrders == nil {
		idx.SellOrders = make(map[OrderId]ItemId)
	}
	if idx.MaxOrders == 0 {
		idx.MaxOrders = defaultMaxOrdersPerPlayer
	}
	return idx, nil
}

// Catalog exposes the item catalog backing this market's capacity and
// stacking rules, for callers outside market.go that also need to size
// stacks (the inventory-transfer command handlers).
func (m *Market) Catalog() Catalog { return m.cat }

// PeekItemStore returns a snapshot of an item's order book without any
// side effect beyond the usual cache-fill, for GetStore queries.
func (m *Market) PeekItemStore(item ItemId) (ItemStore, error) {
	s, err := m.ensureLoaded(item)
	if err != nil {
		return ItemStore{}, err
	}
	return *s, nil
}

func (m *Market) ensureLoaded(item ItemId) (*ItemStore, error) {
	if s, ok := m.cache.Get(item); ok {
		return s, nil
	}
	s, err := m.backend.LoadItemStore(item)
	if err != nil {
		return nil, err
	}
	m.cache.Add(item, &s)
	got, _ := m.cache.Get(item)
	return got, nil
}

// FlushCache writes every cached ItemStore back to the backend. Called
// once per tick by the scheduler, after Emit.
func (m *Market) FlushCache() error {
	for _, item := range m.cache.Keys() {
		s, ok := m.cache.Get(item)
		if !ok {
			continue
		}
		if err := m.backend.SaveItemStore(item, *s); err != nil {
			return err
		}
	}
	return nil
}

// nextOrderID derives a deterministic 64-bit order id from the item,
// player and a monotonic per-market sequence number, so replaying the
// same command stream reproduces the same ids.
func (m *Market) nextOrderID(item ItemId, player string) OrderId {
	m.seq++
	h := xxhash.New()
	_, _ = h.WriteString(string(item))
	_, _ = h.WriteString(player)
	var seqBytes [8]byte
	for i := 0; i < 8; i++ {
		seqBytes[i] = byte(m.seq >> (8 * i))
	}
	_, _ = h.Write(seqBytes[:])
	return OrderId(h.Sum64())
}

// addBuyOrderToPlayer/removeBuyOrderFromPlayer and their sell-order
// counterparts keep a player's PlayerOrderIndex in sync with the
// per-item ItemStore on every place/cancel/fulfill-to-empty, mirroring
// the original's market_add_buy_order_to_player/
// market_remove_*_from_player pair.
func (m *Market) addBuyOrderToPlayer(player string, id OrderId, item ItemId) error {
	idx, err := m.loadPlayerIndex(player)
	if err != nil {
		return err
	}
	idx.BuyOrders[id] = item
	return m.playerBackend.SavePlayerOrders(player, idx)
}

func (m *Market) removeBuyOrderFromPlayer(player string, id OrderId) error {
	idx, err := m.loadPlayerIndex(player)
	if err != nil {
		return err
	}
	delete(idx.BuyOrders, id)
	return m.playerBackend.SavePlayerOrders(player, idx)
}

func (m *Market) addSellOrderToPlayer(player string, id OrderId, item ItemId) error {
	idx, err := m.loadPlayerIndex(player)
	if err != nil {
		return err
	}
	idx.SellOrders[id] = item
	return m.playerBackend.SavePlayerOrders(player, idx)
}

func (m *Market) removeSellOrderFromPlayer(player string, id OrderId) error {
	idx, err := m.loadPlayerIndex(player)
	if err != nil {
		return err
	}
	delete(idx.SellOrders, id)
	return m.playerBackend.SavePlayerOrders(player, idx)
}

// PlaceBuyOrder escrows pricePerUnit*qty from player's balance and
// opens a resting buy order, to be delivered into location (a station
// bin scoped to player) on fulfillment. Rejected once player's total
// open order count (buy and sell, across every item) reaches their
// PlayerOrderIndex.MaxOrders.
func (m *Market) PlaceBuyOrder(item ItemId, player string, pricePerUnit int64, qty uint32, location InvId) (OrderId, error) {
	store, err := m.ensureLoaded(item)
	if err != nil {
		return 0, err
	}
	idx, err := m.loadPlayerIndex(player)
	if err != nil {
		return 0, err
	}
	if len(idx.BuyOrders)+len(idx.SellOrders) >= idx.MaxOrders {
		return 0, ErrOrderSlotsFull
	}
	total := pricePerUnit * int64(qty)
	if err := m.bank.Debit(player, total, ReasonOrderEscrow); err != nil {
		return 0, err
	}
	id := m.nextOrderID(item, player)
	if _, dup := store.BuyOrders[id]; dup {
		_ = m.bank.Credit(player, total, ReasonAdjustment)
		return 0, errors.New("sim: order id collision")
	}
	store.BuyOrders[id] = Order{ID: id, Player: player, PricePerUnit: pricePerUnit, Qty: qty, Location: location}
	if err := m.addBuyOrderToPlayer(player, id, item); err != nil {
		delete(store.BuyOrders, id)
		_ = m.bank.Credit(player, total, ReasonAdjustment)
		return 0, err
	}
	return id, nil
}

// PlaceSellOrder removes qty from srcInv at srcSlot and opens a resting
// sell order for the item found there. The removed stack's item id
// must match item.
func (m *Market) PlaceSellOrder(item ItemId, player string, pricePerUnit int64, qty uint32, srcInv *Inventory, srcSlot uint32) (OrderId, error) {
	store, err := m.ensureLoaded(item)
	if err != nil {
		return 0, err
	}
	idx, err := m.loadPlayerIndex(player)
	if err != nil {
		return 0, err
	}
	if len(idx.BuyOrders)+len(idx.SellOrders) >= idx.MaxOrders {
		return 0, ErrOrderSlotsFull
	}

	removed, ok := srcInv.RemoveN(srcSlot, qty)
	if !ok || removed.ItemID != item || removed.Count < qty {
		// partial removal must be returned before reporting failure
		if removed.Count > 0 {
			srcInv.InsertStackAtSlot(removed, srcSlot)
		}
		return 0, errors.New("sim: insufficient stock at source slot")
	}

	id := m.nextOrderID(item, player)
	if _, dup := store.SellOrders[id]; dup {
		srcInv.InsertStackAtSlot(removed, srcSlot)
		return 0, errors.New("sim: order id collision")
	}
	store.SellOrders[id] = Order{ID: id, Player: player, PricePerUnit: pricePerUnit, Qty: qty}
	if err := m.addSellOrderToPlayer(player, id, item); err != nil {
		delete(store.SellOrders, id)
		srcInv.InsertStackAtSlot(removed, srcSlot)
		return 0, err
	}
	return id, nil
}

// CancelBuyOrder refunds the remaining escrow to the order's owner.
func (m *Market) CancelBuyOrder(item ItemId, orderID OrderId) error {
	store, err := m.ensureLoaded(item)
	if err != nil {
		return err
	}
	order, ok := store.BuyOrders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	delete(store.BuyOrders, orderID)
	if err := m.bank.Credit(order.Player, order.PricePerUnit*int64(order.Qty), ReasonOrderRefund); err != nil {
		store.BuyOrders[orderID] = order
		return err
	}
	return m.removeBuyOrderFromPlayer(order.Player, orderID)
}

// CancelSellOrder returns the unsold remainder of the stack to dstInv.
func (m *Market) CancelSellOrder(item ItemId, orderID OrderId, dstInv *Inventory, dstSlot *uint32) error {
	store, err := m.ensureLoaded(item)
	if err != nil {
		return err
	}
	order, ok := store.SellOrders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	delete(store.SellOrders, orderID)
	overflow, hadOverflow := dstInv.AddStack(m.cat, Stack{ItemID: item, Count: order.Qty}, dstSlot)
	if hadOverflow && !overflow.IsEmpty() {
		store.SellOrders[orderID] = order
		return errors.New("sim: destination inventory has no room for cancelled sell order")
	}
	return m.removeSellOrderFromPlayer(order.Player, orderID)
}

// FulfillBuyOrder lets fulfiller sell qty units into an existing buy
// order: the stack leaves fulfillerInv, fulfiller is paid from escrow
// already held, and the stack is deposited — via the free-slot path,
// bypassing capacity, since the order is a pre-authorized shipment —
// into the buy order owner's own location inventory. Any failure
// after removal rolls the stack back to fulfillerInv; a failed deposit
// additionally reverses the payout so goods never vanish and money is
// never duplicated.
func (m *Market) FulfillBuyOrder(item ItemId, orderID OrderId, fulfiller string, fulfillerInv *Inventory, fulfillerSlot uint32, qty uint32) error {
	store, err := m.ensureLoaded(item)
	if err != nil {
		return err
	}
	order, ok := store.BuyOrders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if qty > order.Qty {
		return ErrQtyExceedsOrder
	}

	removed, ok := fulfillerInv.RemoveN(fulfillerSlot, qty)
	if !ok || removed.ItemID != item || removed.Count < qty {
		if removed.Count > 0 {
			fulfillerInv.InsertStackAtSlot(removed, fulfillerSlot)
		}
		return errors.New("sim: insufficient stock at fulfiller slot")
	}

	payout := order.PricePerUnit * int64(qty)
	if err := m.bank.Credit(fulfiller, payout, ReasonMarketSell); err != nil {
		fulfillerInv.InsertStackAtSlot(removed, fulfillerSlot)
		return err
	}

	buyerInv, err := m.invBackend.LoadInventory(order.Player, order.Location)
	if err != nil {
		fulfillerInv.InsertStackAtSlot(removed, fulfillerSlot)
		_ = m.bank.Debit(fulfiller, payout, ReasonAdjustment)
		return err
	}
	buyerInv.InsertStack(Stack{ItemID: item, Count: qty})
	if err := m.invBackend.SaveInventory(order.Player, order.Location, buyerInv); err != nil {
		fulfillerInv.InsertStackAtSlot(removed, fulfillerSlot)
		_ = m.bank.Debit(fulfiller, payout, ReasonAdjustment)
		return err
	}

	order.Qty -= qty
	if order.Qty == 0 {
		delete(store.BuyOrders, orderID)
		if err := m.removeBuyOrderFromPlayer(order.Player, orderID); err != nil {
			return err
		}
	} else {
		store.BuyOrders[orderID] = order
	}
	return nil
}

// FulfillSellOrder lets fulfiller buy qty units from an existing sell
// order: fulfiller is debited, the seller is credited, and the stack
// is deposited into fulfillerInv. A failed deposit refunds fulfiller
// before returning.
func (m *Market) FulfillSellOrder(item ItemId, orderID OrderId, fulfiller string, fulfillerInv *Inventory, fulfillerSlot *uint32, qty uint32) error {
	store, err := m.ensureLoaded(item)
	if err != nil {
		return err
	}
	order, ok := store.SellOrders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if qty > order.Qty {
		return ErrQtyExceedsOrder
	}

	cost := order.PricePerUnit * int64(qty)
	if err := m.bank.Debit(fulfiller, cost, ReasonMarketBuy); err != nil {
		return err
	}

	overflow, hadOverflow := fulfillerInv.AddStack(m.cat, Stack{ItemID: item, Count: qty}, fulfillerSlot)
	if hadOverflow && !overflow.IsEmpty() {
		_ = m.bank.Credit(fulfiller, cost, ReasonAdjustment)
		return errors.New("sim: insufficient inventory space for purchase")
	}

	if err := m.bank.Credit(order.Player, cost, ReasonMarketSell); err != nil {
		return err
	}

	order.Qty -= qty
	if order.Qty == 0 {
		delete(store.SellOrders, orderID)
		if err := m.removeSellOrderFromPlayer(order.Player, orderID); err != nil {
			return err
		}
	} else {
		store.SellOrders[orderID] = order
	}
	return nil
}
