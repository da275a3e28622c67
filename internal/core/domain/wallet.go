package domain

// WalletRecord is the secret material kept per user. The JSON shape is the
// persisted plaintext layout (pre-encryption) and must stay stable across
// releases, old records are decrypted with these exact field names.
type WalletRecord struct {
	Address             string   `json:"address"`
	PrivateKey          string   `json:"privateKey"`
	PublicKey           string   `json:"publicKey,omitempty"`
	ConstructorCallData []string `json:"constructorCallData,omitempty"`
	Mnemonic            string   `json:"mnemonic,omitempty"`
	Path                string   `json:"path,omitempty"`
}

// EncryptedBlob is the at-rest representation of a WalletRecord.
// All fields are hex strings.
type EncryptedBlob struct {
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
	Ciphertext string `json:"encryptedData"`
}
