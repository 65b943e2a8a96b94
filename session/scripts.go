package session

import "github.com/redis/go-redis/v9"

const (
	consumeStatusNotFound int64 = 0
	consumeStatusMismatch int64 = 1
	consumeStatusReplay   int64 = 2
	consumeStatusConsumed int64 = 3
	consumeStatusCorrupt  int64 = 4
)

// KEYS[1] record, KEYS[2] ledger
// ARGV[1] presented token, ARGV[2] presented hash, ARGV[3] used_at, ARGV[4] ttl ms
const consumeScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  if redis.call("SISMEMBER", KEYS[2], ARGV[2]) == 1 then
    return {2}
  end
  return {0}
end

local ok, rec = pcall(cjson.decode, data)
if not ok or type(rec) ~= "table" or type(rec.token) ~= "string" then
  return {4}
end

if rec.token ~= ARGV[1] then
  if redis.call("SISMEMBER", KEYS[2], ARGV[2]) == 1 then
    return {2}
  end
  return {1}
end

if rec.used == true then
  return {2}
end

local ttl = tonumber(ARGV[4])
rec.used = true
rec.used_at = ARGV[3]
local updated = cjson.encode(rec)

redis.call("SET", KEYS[1], updated, "PX", ttl)
redis.call("SADD", KEYS[2], ARGV[2])
redis.call("PEXPIRE", KEYS[2], ttl)

return {3, updated}
`

var consumeLua = redis.NewScript(consumeScript)

// KEYS[1] record
// ARGV[1] consumed token, ARGV[2] successor record, ARGV[3] ttl ms
const advanceScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end

local ok, rec = pcall(cjson.decode, data)
if not ok or type(rec) ~= "table" then
  return 0
end

if rec.token ~= ARGV[1] or rec.used ~= true then
  return 0
end

redis.call("SET", KEYS[1], ARGV[2], "PX", tonumber(ARGV[3]))
return 1
`

var advanceLua = redis.NewScript(advanceScript)
