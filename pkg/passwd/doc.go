// Package passwd provides password digest creation and verification.
//
// Two digest schemes are accepted for the configured relay password:
//
//   - Argon2id, encoded in PHC string format:
//     $argon2id$v=19$m=16384,t=2,p=2$<salt>$<hash>
//   - Legacy hex SHA-1 (40 lowercase hex characters), which is what
//     existing relay configuration files carry.
//
// Verification always recomputes the digest of the supplied secret and
// compares digests in constant time; the plaintext is never stored.
package passwd
