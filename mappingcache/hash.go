package mappingcache

import (
	"crypto/sha256"
	"encoding/hex"
)

// TrackHash computes the stable persistent-store key,
// stable_hash(clean_song ∥ clean_album ∥ clean_artist), spec.md §4.E.
func TrackHash(cleanSong, cleanAlbum, cleanArtist string) string {
	h := sha256.New()
	h.Write([]byte(cleanSong))
	h.Write([]byte{0})
	h.Write([]byte(cleanAlbum))
	h.Write([]byte{0})
	h.Write([]byte(cleanArtist))
	return hex.EncodeToString(h.Sum(nil))
}
