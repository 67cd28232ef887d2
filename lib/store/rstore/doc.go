// Package rstore implements store.IStore on Redis using go-redis.
//
// Operations map onto Redis as follows:
//
//	SetE           SET key value [PX ttl]
//	SetEIfUnset    SET key value PX ttl NX
//	ExtendIfEqual  Lua: if GET key == expected then PEXPIRE key ttl
//	DeleteIfEqual  Lua: if GET key == expected then DEL key
//	Get            GET key
//	Ping           PING
//
// Each compare-and-act is a single script evaluation, which Redis runs
// atomically, so no other client can change the key between the GET and the
// effect. Scripts are sent with EVALSHA and fall back to EVAL once per
// connection if the server does not know them yet.
//
// Error classification:
//
//	Error replies from the server (wrong type, script errors, ...) become
//	RetCInternalError. Everything else (dial failures, timeouts, a closed client,
//	an exhausted pool, a canceled context) becomes RetCUnavailable.
//
// An optional circuit breaker (github.com/sony/gobreaker) can wrap every call.
// Only RetCUnavailable outcomes count as failures; while the breaker is open,
// calls fail fast with RetCUnavailable without touching the network.
//
// Usage Example:
//
//	st, err := rstore.NewRedisStore(ctx, rstore.Config{Addrs: []string{"localhost:6379"}})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	mgr := lockmgr.NewLockManager(st)
package rstore
