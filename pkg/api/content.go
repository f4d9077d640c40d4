package api

import "github.com/google/uuid"

// ContentNamespace seeds content id derivation. It must match the namespace
// the upstream chunk producer uses, or no citation will ever resolve
var ContentNamespace = uuid.MustParse("b6f1e3a0-5c44-5c2e-9d3a-7f8d21c0e4b9")

// ContentID derives the deterministic citation key for a chunk of a
// document: a version-5 UUID over "<document key>:<chunk id>". Identical
// pairs always produce the same id
func ContentID(documentKey, chunkID string) string {
	name := documentKey + ":" + chunkID
	return uuid.NewSHA1(ContentNamespace, []byte(name)).String()
}

// Keys returns every known historical encoding of the document identifier,
// most recent first. Upstream producers have derived content ids against
// more than one of these, so citation matching must try them all. The set
// is a bounded compatibility shim, not general string manipulation; extend
// it here if a new upstream encoding appears
func (d *SourceDocument) Keys() []string {
	keys := []string{d.ID, "file:" + d.ID}
	if d.ProviderID != "" && d.ProviderID != d.ID {
		keys = append(keys, d.ProviderID)
	}
	return keys
}
