package identity

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// documentNamespace scopes document ids.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/custodia-labs/weft/documents"))

// ContentHash returns the hex SHA-256 of raw.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// DocumentID derives the stable document id for a source path and
// content hash.
func DocumentID(sourcePath, contentHash string) string {
	return uuid.NewSHA1(documentNamespace, []byte(sourcePath+"\x00"+contentHash)).String()
}
