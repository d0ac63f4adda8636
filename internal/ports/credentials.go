package ports

// Credential is a decrypted username/password pair.
type Credential struct {
	Username string
	Password string
}

// Decryptor turns the opaque encrypted credential from the configuration file
// into a usable credential. Encryption itself lives outside this core; the
// default implementation handles the plaintext "user:password" form used in
// test rigs.
type Decryptor func(encrypted string) (Credential, error)
