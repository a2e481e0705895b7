package sigverify

import "github.com/go-i2p/ethernity-recover/internal/frame"

// VerifyShards checks every shard currently in store against its own
// signature and removes the ones that fail, returning the count removed
// (spec §4.7: "on verified-false, the shard is removed from the store and
// counted as invalid").
func VerifyShards(store *frame.Store) (invalid int) {
	for idx, p := range store.Shards() {
		if !VerifyShard(p) {
			store.RemoveShard(idx)
			invalid++
		}
	}
	return invalid
}
