package coordination

// admitScript implements spec.md §4.1 steps 1-6 as one atomic Lua batch.
// Each WindowCounter is backed by a pair of Redis structures: a sorted
// set scoring event_id members by timestamp (for range eviction, adapted
// from the ZADD/ZREMRANGEBYSCORE sliding-window pattern used across the
// rate-limiter examples in the retrieval pack) and a hash mapping
// event_id to its cost (so sums are cost-weighted, not just counts —
// this system's WindowCounter events carry variable cost, unlike a plain
// request-per-second limiter).
//
// KEYS: 1=in zset, 2=in hash, 3=out zset, 4=out hash, 5=req zset, 6=req hash
// ARGV: 1=now_ms, 2=window_ms, 3=cost_in, 4=cost_out, 5=limit_in,
//       6=limit_out, 7=limit_req, 8=event_id, 9=ttl_ms
//
// Returns {admitted(0|1), dimension(string), retry_at_ms(number)}.
const admitScript = `
local in_z, in_h  = KEYS[1], KEYS[2]
local out_z, out_h = KEYS[3], KEYS[4]
local req_z, req_h = KEYS[5], KEYS[6]

local now       = tonumber(ARGV[1])
local window    = tonumber(ARGV[2])
local cost_in   = tonumber(ARGV[3])
local cost_out  = tonumber(ARGV[4])
local limit_in  = tonumber(ARGV[5])
local limit_out = tonumber(ARGV[6])
local limit_req = tonumber(ARGV[7])
local event_id  = ARGV[8]
local ttl_ms    = tonumber(ARGV[9])

local window_start = now - window

local function evict(zkey, hkey)
  local expired = redis.call('ZRANGEBYSCORE', zkey, '-inf', '(' .. window_start)
  if #expired > 0 then
    redis.call('ZREM', zkey, unpack(expired))
    redis.call('HDEL', hkey, unpack(expired))
  end
end

evict(in_z, in_h)
evict(out_z, out_h)
evict(req_z, req_h)

local function sumcost(hkey)
  local vals = redis.call('HVALS', hkey)
  local s = 0
  for _, v in ipairs(vals) do
    s = s + tonumber(v)
  end
  return s
end

local function oldest_expiry(zkey)
  local oldest = redis.call('ZRANGE', zkey, 0, 0, 'WITHSCORES')
  if oldest[2] then
    return tonumber(oldest[2]) + window
  end
  return now + window
end

local sum_in  = sumcost(in_h)
local sum_out = sumcost(out_h)
local sum_req = sumcost(req_h)

if sum_in + cost_in > limit_in then
  return {0, 'INPUT_TPM', oldest_expiry(in_z)}
end

if sum_out + cost_out > limit_out then
  return {0, 'OUTPUT_TPM', oldest_expiry(out_z)}
end

if sum_req + 1 > limit_req then
  return {0, 'RPM', oldest_expiry(req_z)}
end

redis.call('ZADD', in_z, now, event_id)
redis.call('HSET', in_h, event_id, cost_in)
redis.call('PEXPIRE', in_z, ttl_ms)
redis.call('PEXPIRE', in_h, ttl_ms)

redis.call('ZADD', out_z, now, event_id)
redis.call('HSET', out_h, event_id, cost_out)
redis.call('PEXPIRE', out_z, ttl_ms)
redis.call('PEXPIRE', out_h, ttl_ms)

redis.call('ZADD', req_z, now, event_id)
redis.call('HSET', req_h, event_id, 1)
redis.call('PEXPIRE', req_z, ttl_ms)
redis.call('PEXPIRE', req_h, ttl_ms)

return {1, '', 0}
`

// reconcileScript implements spec.md §4.1's reconcile operation: replace
// an event's output cost if still present, never re-checking the limit.
// KEYS: 1=out hash
// ARGV: 1=event_id, 2=new_cost
const reconcileScript = `
local exists = redis.call('HEXISTS', KEYS[1], ARGV[1])
if exists == 1 then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
end
return 1
`

// usageScript computes current non-expired sums without mutating any
// counter, for GET /v1/usage/{api_key}.
// KEYS: 1=in zset, 2=in hash, 3=out zset, 4=out hash, 5=req zset, 6=req hash
// ARGV: 1=now_ms, 2=window_ms
const usageScript = `
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local window_start = now - window

local function sum_live(zkey, hkey)
  local ids = redis.call('ZRANGEBYSCORE', zkey, window_start, '+inf')
  if #ids == 0 then
    return 0
  end
  local vals = redis.call('HMGET', hkey, unpack(ids))
  local s = 0
  for _, v in ipairs(vals) do
    if v then
      s = s + tonumber(v)
    end
  end
  return s
end

return {
  sum_live(KEYS[1], KEYS[2]),
  sum_live(KEYS[3], KEYS[4]),
  sum_live(KEYS[5], KEYS[6]),
}
`
