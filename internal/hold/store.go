// Package hold implements the ephemeral seat availability store: a
// namespaced, TTL-based map of in-progress seat holds kept in Redis, scoped
// per showtime. The store is advisory only; the persisted ticket set remains
// the authority and is re-checked when a hold is converted into a booking.
package hold

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// One key per hold so Redis expires each hold independently, plus a
// per-showtime membership set so a whole showtime can be scanned without
// KEYS. The set may lag behind key expiry; readers filter through the
// cleanup script below.
var selectSeatScript = redis.NewScript(`
	-- KEYS = [holdKey, setKey, indexKey]
	-- ARGV = [holder, ttlSeconds, layoutId, showtimeId]

	local current = redis.call("GET", KEYS[1])
	if current and current ~= ARGV[1] then
		return {err = "seat already held"}
	end

	redis.call("SET", KEYS[1], ARGV[1], "EX", tonumber(ARGV[2]))
	redis.call("SADD", KEYS[2], ARGV[3])
	redis.call("SADD", KEYS[3], ARGV[4])

	return "OK"
`)

var deselectSeatScript = redis.NewScript(`
	-- KEYS = [holdKey, setKey]
	-- ARGV = [holder, layoutId]

	local current = redis.call("GET", KEYS[1])
	if current == ARGV[1] then
		redis.call("DEL", KEYS[1])
		redis.call("SREM", KEYS[2], ARGV[2])
		return 1
	end

	return 0
`)

// Removes set members whose hold key has already expired and returns the
// layout IDs that still carry a live hold.
var liveHoldsScript = redis.NewScript(`
	local setKey = KEYS[1]
	local showtimeId = ARGV[1]
	local cursor = "0"
	local batchSize = 100
	local expiredSeats = {}
	local validSeats = {}

	repeat
		local result = redis.call("SSCAN", setKey, cursor, "COUNT", batchSize)
		cursor = result[1]
		local seatIds = result[2]

		for _, seatId in ipairs(seatIds) do
			local holdKey = "seat_hold:" .. showtimeId .. ":" .. seatId
			if redis.call("EXISTS", holdKey) == 0 then
				table.insert(expiredSeats, seatId)
			else
				table.insert(validSeats, seatId)
			end
		end
	until cursor == "0"

	if #expiredSeats > 0 then
		redis.call("SREM", setKey, unpack(expiredSeats))
	end

	return validSeats
`)

var sweepHoldsScript = redis.NewScript(`
	-- KEYS = [setKey, indexKey]
	local setKey = KEYS[1]
	local showtimeId = ARGV[1]
	local cursor = "0"
	local batchSize = 100
	local expiredSeats = {}

	repeat
		local result = redis.call("SSCAN", setKey, cursor, "COUNT", batchSize)
		cursor = result[1]
		local seatIds = result[2]

		for _, seatId in ipairs(seatIds) do
			local holdKey = "seat_hold:" .. showtimeId .. ":" .. seatId
			if redis.call("EXISTS", holdKey) == 0 then
				table.insert(expiredSeats, seatId)
			end
		end
	until cursor == "0"

	if #expiredSeats > 0 then
		redis.call("SREM", setKey, unpack(expiredSeats))
	end

	-- a showtime with no live holds left drops out of the sweep index
	if redis.call("SCARD", setKey) == 0 then
		redis.call("SREM", KEYS[2], showtimeId)
	end

	return #expiredSeats
`)

type Store struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

func NewStore(client redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{
		redis: client,
		ttl:   ttl,
	}
}

// TTL is the fixed time-to-live installed on every new hold.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Select installs a hold on a seat layout cell for the given holder. A
// re-select by the same holder refreshes the TTL; a live hold by anyone else
// fails with domain.ErrSeatAlreadyHeld. Callers must have checked the
// persisted ticket set first.
func (s *Store) Select(ctx context.Context, showtimeID, layoutID int, holder string) error {
	keys := []string{holdKey(showtimeID, layoutID), setKey(showtimeID), indexKey}

	err := selectSeatScript.Run(ctx, s.redis, keys, holder, int(s.ttl.Seconds()), layoutID, showtimeID).Err()
	if err != nil {
		if redis.HasErrorPrefix(err, "seat already held") {
			return domain.ErrSeatAlreadyHeld
		}

		return err
	}

	return nil
}

// Deselect removes a hold only when it belongs to holder. Releasing an
// already-released or foreign hold is a no-op, never an error.
func (s *Store) Deselect(ctx context.Context, showtimeID, layoutID int, holder string) error {
	keys := []string{holdKey(showtimeID, layoutID), setKey(showtimeID)}

	return deselectSeatScript.Run(ctx, s.redis, keys, holder, layoutID).Err()
}

// HeldSeats returns the layout IDs with a live hold for the showtime,
// evicting stale membership entries along the way.
func (s *Store) HeldSeats(ctx context.Context, showtimeID int) ([]int, error) {
	cmd := liveHoldsScript.Run(ctx, s.redis, []string{setKey(showtimeID)}, showtimeID)

	layoutIDs, err := cmd.Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run liveHoldsScript: %w", err)
	}

	held := make([]int, len(layoutIDs))
	for i, id := range layoutIDs {
		held[i] = int(id)
	}

	return held, nil
}

// Holder returns the identity owning the hold on a seat, or "" when the seat
// carries no live hold.
func (s *Store) Holder(ctx context.Context, showtimeID, layoutID int) (string, error) {
	holder, err := s.redis.Get(ctx, holdKey(showtimeID, layoutID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}

		return "", err
	}

	return holder, nil
}

// ReleaseAll drops the holds on the given seats regardless of owner. Used
// after the holds have been converted into a durable booking.
func (s *Store) ReleaseAll(ctx context.Context, showtimeID int, layoutIDs []int) error {
	if len(layoutIDs) == 0 {
		return nil
	}

	keys := make([]string, len(layoutIDs))
	members := make([]interface{}, len(layoutIDs))

	for i, layoutID := range layoutIDs {
		keys[i] = holdKey(showtimeID, layoutID)
		members[i] = layoutID
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, setKey(showtimeID), members...)

	_, err := pipe.Exec(ctx)

	return err
}

// Sweep evicts membership entries whose hold TTL has elapsed and reports how
// many were removed, so callers know whether the snapshot changed.
func (s *Store) Sweep(ctx context.Context, showtimeID int) (int, error) {
	cmd := sweepHoldsScript.Run(ctx, s.redis, []string{setKey(showtimeID), indexKey}, showtimeID)

	expired, err := cmd.Int()
	if err != nil {
		return 0, fmt.Errorf("failed to run sweepHoldsScript: %w", err)
	}

	return expired, nil
}

// TrackedShowtimes lists every showtime currently carrying holds. Sweeping an
// emptied showtime removes it from the index again.
func (s *Store) TrackedShowtimes(ctx context.Context) ([]int, error) {
	members, err := s.redis.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}

	showtimes := make([]int, 0, len(members))

	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		showtimes = append(showtimes, id)
	}

	return showtimes, nil
}

const indexKey = "seat_holds:index"

func holdKey(showtimeID, layoutID int) string {
	return fmt.Sprintf("seat_hold:%d:%d", showtimeID, layoutID)
}

func setKey(showtimeID int) string {
	return fmt.Sprintf("seat_holds:%d", showtimeID)
}
