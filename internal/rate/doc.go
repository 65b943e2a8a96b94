// Package rate provides Redis-backed fixed-window throttles for login and
// refresh attempts.
//
// Each counter is one key: INCR plus PEXPIRE on the first hit of a window,
// run as a single script. Key prefixes are al: for login per email (hashed),
// ali: for login per IP and ar: for refresh per token family.
package rate
