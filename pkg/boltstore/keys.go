package boltstore

import (
	"encoding/binary"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

var (
	bucketMeta     = []byte("meta")
	bucketObjects  = []byte("objects")
	bucketAttrDefs = []byte("attrdefs")
)

var (
	keyVersion  = []byte("version")
	keyNextAttr = []byte("nextattr")
)

// refToKey encodes a DBRef as an 8-byte big-endian key, offset so that
// negative refs sort before #0.
func refToKey(ref gamedb.DBRef) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(int64(ref)+1<<32))
	return buf
}

func keyToRef(b []byte) gamedb.DBRef {
	v := binary.BigEndian.Uint64(b)
	return gamedb.DBRef(int64(v) - 1<<32)
}

func intToKey(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

func keyToInt(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}
