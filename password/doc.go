// Package password implements password hashing and verification.
//
// # Output format
//
// New hashes are Argon2id PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Legacy bcrypt hashes ($2a$, $2b$, $2y$) verify through the same [Verifier]
// and always report [Verifier.NeedsUpgrade] so the caller re-hashes them on
// the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other sessioncore package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
