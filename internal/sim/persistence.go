/*
Package sim
File: persistence.go
Description:
    The persistence bridge: a tree-structured key/value store
    that the command handlers, the market cache flush and the
    Lifecycle stage's logout hand-off read and write, using a
    self-describing binary codec so values
    can carry heterogeneous shapes (a ShipComp today, a richer record
    tomorrow) without a schema migration. The Store interface is
    consumed, not implemented, by internal/sim — internal/store holds
    concrete backends.
*/

package sim

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewAccessToken mints a fresh per-account access token the first time
// a player's account record is created. A random v4 UUID has no
// structure worth guarding against collisions across a small player
// population, unlike the hanger/order ids elsewhere in this package
// which must stay deterministic for idempotent replays.
func NewAccessToken() string {
	return uuid.NewString()
}

// Key is a tree path into the store, e.g. []string{"hangers", hangerUID,
// playerName}. Segments are caller-defined; internal/sim only ever
// builds keys from stable identifiers (hanger uids, player names,
// object paths, item ids).
type Key []string

// Store is the minimal tree-shaped KV contract every persistence
// backend must satisfy. Values round-trip through Encode/Decode below,
// so a Store implementation only ever sees opaque []byte.
type Store interface {
	Get(key Key) ([]byte, bool, error)
	Put(key Key, value []byte) error
	Delete(key Key) error
	// List returns the immediate child segments under key, for
	// directory-style iteration (e.g. every hanger uid under
	// ["hangers"]).
	List(key Key) ([]string, error)
}

// Encode serializes v into the store's self-describing binary codec.
// BSON carries its own field names and types, so a Decode call doesn't
// need to know the exact shape in advance — only the target type.
func Encode(v any) ([]byte, error) {
	return bson.Marshal(v)
}

// Decode deserializes a value previously produced by Encode into dst
// (a pointer).
func Decode(data []byte, dst any) error {
	return bson.Unmarshal(data, dst)
}

// hangerKey/itemStoreKey/bankKey are the fixed key shapes the core's
// HangerStore/ItemStoreBackend/Bank adapters build on top of Store.
func hangerKey(hangerUID, player string) Key {
	return Key{"hangers", hangerUID, player}
}

func itemStoreKey(item ItemId) Key {
	return Key{"market", string(item)}
}

func marketPlayerKey(player string) Key {
	return Key{"market_players", player}
}

func inventoryKey(player string, inv InvId) Key {
	return Key{"inventory", string(inv), player}
}

func accountKey(player string) Key {
	return Key{"account", player}
}

func shipInSpaceKey(player string) Key {
	return Key{"ships-in-space", player}
}

// InventoryBackend is the persistence-side counterpart that station
// inventories are loaded from and flushed to — a player's own storage
// bin at a given station InvId.
type InventoryBackend interface {
	LoadInventory(player string, inv InvId) (Inventory, error)
	SaveInventory(player string, inv InvId, i Inventory) error
}

// StoreInventoryBackend adapts a Store into InventoryBackend.
type StoreInventoryBackend struct {
	S   Store
	Cap uint32 // default capacity (vunits) for a newly created bin; 0 = unbounded
}

func (b StoreInventoryBackend) LoadInventory(player string, inv InvId) (Inventory, error) {
	data, found, err := b.S.Get(inventoryKey(player, inv))
	if err != nil {
		return Inventory{}, err
	}
	if !found {
		var capP *uint32
		if b.Cap > 0 {
			c := b.Cap
			capP = &c
		}
		id := inv
		return NewInventory(&id, capP), nil
	}
	var i Inventory
	if err := Decode(data, &i); err != nil {
		return Inventory{}, err
	}
	return i, nil
}

func (b StoreInventoryBackend) SaveInventory(player string, inv InvId, i Inventory) error {
	data, err := Encode(i)
	if err != nil {
		return err
	}
	return b.S.Put(inventoryKey(player, inv), data)
}

// AccountRecord is the account tree's value shape: the player's auth
// token plus the path that tells a reconnecting client whether its
// ship is sitting in a hanger or adrift in space. Dock/Undock/Jump
// rewrite CurrentLocation as a side effect of the transition they
// perform.
type AccountRecord struct {
	AccessToken     string
	CurrentLocation ObjPath
	HomeStationPath ObjPath
}

// AccountStore is the persistence-side counterpart to the account
// tree.
type AccountStore interface {
	LoadAccount(player string) (AccountRecord, bool, error)
	SaveAccount(player string, rec AccountRecord) error
}

// StoreAccount adapts a Store into AccountStore.
type StoreAccount struct {
	S Store
}

func (a StoreAccount) LoadAccount(player string) (AccountRecord, bool, error) {
	data, found, err := a.S.Get(accountKey(player))
	if err != nil || !found {
		return AccountRecord{}, found, err
	}
	var rec AccountRecord
	if err := Decode(data, &rec); err != nil {
		return AccountRecord{}, false, err
	}
	return rec, true, nil
}

func (a StoreAccount) SaveAccount(player string, rec AccountRecord) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	return a.S.Put(accountKey(player), data)
}

// ShipInSpaceRecord is the ships-in-space tree's value shape: a parked
// ship's full state, restored in one piece the next time a login finds
// account.current_location pointing at it instead of a station.
type ShipInSpaceRecord struct {
	Ship      ShipComp
	Nav       Navigation
	Transform Transform
	Path      ObjPath
}

// ShipsInSpaceStore is the persistence-side counterpart to the
// ships-in-space tree: where TickLogins hands off a safe-logged-out
// ship, and LoginReloadShip reads it back from.
type ShipsInSpaceStore interface {
	SaveShipInSpace(player string, rec ShipInSpaceRecord) error
	LoadShipInSpace(player string) (ShipInSpaceRecord, bool, error)
	DeleteShipInSpace(player string) error
}

// StoreShipsInSpace adapts a Store into ShipsInSpaceStore.
type StoreShipsInSpace struct {
	S Store
}

func (s StoreShipsInSpace) SaveShipInSpace(player string, rec ShipInSpaceRecord) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	return s.S.Put(shipInSpaceKey(player), data)
}

func (s StoreShipsInSpace) LoadShipInSpace(player string) (ShipInSpaceRecord, bool, error) {
	data, found, err := s.S.Get(shipInSpaceKey(player))
	if err != nil || !found {
		return ShipInSpaceRecord{}, found, err
	}
	var rec ShipInSpaceRecord
	if err := Decode(data, &rec); err != nil {
		return ShipInSpaceRecord{}, false, err
	}
	return rec, true, nil
}

func (s StoreShipsInSpace) DeleteShipInSpace(player string) error {
	return s.S.Delete(shipInSpaceKey(player))
}

func bankKey(player string) Key {
	return Key{"bank", player}
}

// StoreHangerStore adapts a Store into the HangerStore contract dock.go
// needs: the per-(hanger uid, player) tree entry holding every ship the
// player has stored at that station plus which slot is active.
type StoreHangerStore struct {
	S Store
}

func (h StoreHangerStore) Load(hangerUID, player string) (HangerRecord, error) {
	data, found, err := h.S.Get(hangerKey(hangerUID, player))
	if err != nil {
		return HangerRecord{}, err
	}
	if !found {
		return NewHangerRecord(), nil
	}
	var rec HangerRecord
	if err := Decode(data, &rec); err != nil {
		return HangerRecord{}, err
	}
	if rec.Slots == nil {
		rec.Slots = make(map[uint32]ShipComp)
	}
	return rec, nil
}

func (h StoreHangerStore) Save(hangerUID, player string, rec HangerRecord) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	return h.S.Put(hangerKey(hangerUID, player), data)
}

// StoreItemBackend adapts a Store into the ItemStoreBackend contract
// market.go needs.
type StoreItemBackend struct {
	S Store
}

func (b StoreItemBackend) LoadItemStore(item ItemId) (ItemStore, error) {
	data, found, err := b.S.Get(itemStoreKey(item))
	if err != nil {
		return ItemStore{}, err
	}
	if !found {
		return NewItemStore(item), nil
	}
	var s ItemStore
	if err := Decode(data, &s); err != nil {
		return ItemStore{}, err
	}
	return s, nil
}

func (b StoreItemBackend) SaveItemStore(item ItemId, s ItemStore) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	return b.S.Put(itemStoreKey(item), data)
}

// StoreMarketPlayer adapts a Store into the MarketPlayerBackend
// contract market.go needs: the market(player) tree holding every
// order a player has resting anywhere, plus their order cap.
type StoreMarketPlayer struct {
	S Store
}

func (b StoreMarketPlayer) LoadPlayerOrders(player string) (PlayerOrderIndex, error) {
	data, found, err := b.S.Get(marketPlayerKey(player))
	if err != nil {
		return PlayerOrderIndex{}, err
	}
	if !found {
		return NewPlayerOrderIndex(), nil
	}
	var idx PlayerOrderIndex
	if err := Decode(data, &idx); err != nil {
		return PlayerOrderIndex{}, err
	}
	return idx, nil
}

func (b StoreMarketPlayer) SavePlayerOrders(player string, idx PlayerOrderIndex) error {
	data, err := Encode(idx)
	if err != nil {
		return err
	}
	return b.S.Put(marketPlayerKey(player), data)
}

// maxBankHistory bounds the transaction deque; the oldest entry is
// dropped once the deque would exceed this length.
const maxBankHistory = 500

// BankTxn is one entry in a player's bounded transaction history.
type BankTxn struct {
	Amount int64
	Reason Reason
	At     string // RFC-3339
}

// StoreBank adapts a Store into the Bank contract bank.go/market.go
// need: a signed 64-bit balance (bank(val)) plus a bounded transaction
// history (bank(acct)), both keyed per player under the same tree key.
type StoreBank struct {
	S   Store
	Now func() time.Time
}

type bankRecord struct {
	Balance int64
	History []BankTxn
}

func (b StoreBank) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b StoreBank) load(player string) (bankRecord, error) {
	data, found, err := b.S.Get(bankKey(player))
	if err != nil || !found {
		return bankRecord{}, err
	}
	var rec bankRecord
	if err := Decode(data, &rec); err != nil {
		return bankRecord{}, err
	}
	return rec, nil
}

func (b StoreBank) Balance(player string) (int64, error) {
	rec, err := b.load(player)
	if err != nil {
		return 0, err
	}
	return rec.Balance, nil
}

// Debit rejects (without mutating state) any amount that would leave
// the balance below zero — this is authoritative, not advisory, for
// every caller.
func (b StoreBank) Debit(player string, amount int64, reason Reason) error {
	rec, err := b.load(player)
	if err != nil {
		return err
	}
	if amount > rec.Balance {
		return ErrInsufficientFunds
	}
	return b.apply(player, rec, -amount, reason)
}

// Credit rejects (without mutating state) any amount that would
// overflow a signed 64-bit balance.
func (b StoreBank) Credit(player string, amount int64, reason Reason) error {
	rec, err := b.load(player)
	if err != nil {
		return err
	}
	if amount > math.MaxInt64-rec.Balance {
		return ErrBalanceOverflow
	}
	return b.apply(player, rec, amount, reason)
}

func (b StoreBank) apply(player string, rec bankRecord, delta int64, reason Reason) error {
	rec.Balance += delta
	rec.History = append(rec.History, BankTxn{Amount: delta, Reason: reason, At: b.now().Format(time.RFC3339)})
	if len(rec.History) > maxBankHistory {
		rec.History = rec.History[len(rec.History)-maxBankHistory:]
	}
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	return b.S.Put(bankKey(player), data)
}
