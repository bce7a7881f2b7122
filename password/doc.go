// Package password hashes and verifies practitioner passwords with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The package never stores passwords and never logs them. The development
// auth server keeps the resulting hashes in its account table.
package password
