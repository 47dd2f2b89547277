package sexp

import (
	"strings"

	"github.com/google/uuid"
)

// UUID is a KiCad entity identifier in canonical text form.
type UUID string

// namespace scopes generated identifiers to this tool.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/OpenTraceLab/kicadgen"))

// UUIDSource derives stable name-based UUIDs for the entities of one
// document, so repeated serialization of the same document is byte-identical.
type UUIDSource struct {
	space uuid.UUID
}

// NewUUIDSource scopes identifiers to a document seed (normally its title).
func NewUUIDSource(seed string) UUIDSource {
	return UUIDSource{space: uuid.NewSHA1(namespace, []byte(seed))}
}

// For returns the identifier of the entity at path, e.g. For("footprint", "R1").
func (s UUIDSource) For(path ...string) UUID {
	return UUID(uuid.NewSHA1(s.space, []byte(strings.Join(path, "/"))).String())
}
