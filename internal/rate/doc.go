// Package rate throttles failed logins with Redis fixed-window counters.
//
// Each failure does INCR and, on the first hit of a window, EXPIRE. Keys:
//   - rl:login:u:<email>  per account
//   - rl:login:ip:<addr>  per client address
package rate
