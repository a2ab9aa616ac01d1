package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"solusd/core/types"
	"solusd/crypto"
)

var (
	systemLedgerKey  = []byte("trove/system")
	sortedTrovesKey  = []byte("trove/sorted")
	stabilityPoolKey = []byte("stability/pool")
	issuanceKey      = []byte("issuance/state")
	stakingPoolKey   = []byte("staking/pool")

	trovePrefix        = []byte("trove/owner/")
	poolPrefix         = []byte("pool/")
	surplusPrefix      = []byte("surplus/")
	epochScalePrefix   = []byte("stability/sums/")
	depositPrefix      = []byte("stability/deposit/")
	frontEndPrefix     = []byte("stability/frontend/")
	stakerPrefix       = []byte("staking/position/")
	physicalKeyVersion = []byte("solusd/v1/")
)

// physicalKey hashes the logical key so every entity has a fixed-width slot.
func physicalKey(logical []byte) []byte {
	return append(append([]byte(nil), physicalKeyVersion...), ethcrypto.Keccak256(logical)...)
}

func ownerKey(prefix []byte, owner crypto.Address) []byte {
	return append(append([]byte(nil), prefix...), owner[:]...)
}

func troveKey(owner crypto.Address) []byte    { return ownerKey(trovePrefix, owner) }
func surplusKey(owner crypto.Address) []byte  { return ownerKey(surplusPrefix, owner) }
func depositKey(owner crypto.Address) []byte  { return ownerKey(depositPrefix, owner) }
func frontEndKey(owner crypto.Address) []byte { return ownerKey(frontEndPrefix, owner) }
func stakerKey(owner crypto.Address) []byte   { return ownerKey(stakerPrefix, owner) }

func poolKey(id types.PoolID) []byte {
	return append(append([]byte(nil), poolPrefix...), id...)
}

func epochScaleKey(epoch, scale uint64) []byte {
	key := append([]byte(nil), epochScalePrefix...)
	key = binary.BigEndian.AppendUint64(key, epoch)
	return binary.BigEndian.AppendUint64(key, scale)
}
