// Package jwt encodes and verifies the signed credentials used by sessioncore.
//
// A [Codec] is a pure function of its configured key material and clock: it
// signs [Claims] and verifies presented tokens against a fixed claim schema
// (sub, iat, nbf, exp, jti and type are mandatory). An [Issuer] sits on top of
// the codec and mints access and refresh credentials with fresh token ids.
//
// Verification failures of every kind collapse into [ErrInvalidToken]. The
// underlying reason stays wrapped so it can be logged, but callers must not
// branch on it.
package jwt
