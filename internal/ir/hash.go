package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainRevision = "blocksync/revision/v1"
	DomainContent  = "blocksync/content/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash hashes a block list by content, client IDs included.
// Structurally equal lists hash equal regardless of object identity.
func ContentHash(blocks []*Block) (string, error) {
	canonical, err := MarshalCanonical(blocks)
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainContent, canonical), nil
}

// RevisionID computes the identity of an entity revision: the entity name,
// the parent revision, and the block content. Two entities holding the same
// content get distinct revision IDs.
func RevisionID(entity, parentID string, blocks []*Block) (string, error) {
	obj := Object{
		"entity":  String(entity),
		"parent":  String(parentID),
		"content": BlocksArray(blocks),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RevisionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRevision, canonical), nil
}

// MustContentHash is ContentHash for inputs known to be valid.
// Panics on error.
func MustContentHash(blocks []*Block) string {
	h, err := ContentHash(blocks)
	if err != nil {
		panic(err)
	}
	return h
}
