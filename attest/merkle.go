package attest

import (
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"git.gammaspectra.live/P2Pool/aes-attest/utils"
)

// MerkleTree Keccak-256 tree over seals of attestations that carry no order among themselves,
// so a batch is published as one root and each member is checked with a branch
type MerkleTree []types.Hash

func leafHash(data []types.Hash, hasher hashReader) (rootHash types.Hash) {
	if len(data) == 1 {
		return data[0]
	}
	//only hash the next two items
	hasher.Reset()
	_, _ = hasher.Write(data[0][:])
	_, _ = hasher.Write(data[1][:])
	_, _ = hasher.Read(rootHash[:])
	return rootHash
}

func pairHash(index int, h, p types.Hash, hasher hashReader) (out types.Hash) {
	hasher.Reset()

	if index&1 > 0 {
		_, _ = hasher.Write(p[:])
		_, _ = hasher.Write(h[:])
	} else {
		_, _ = hasher.Write(h[:])
		_, _ = hasher.Write(p[:])
	}

	_, _ = hasher.Read(out[:])
	return out
}

func (t MerkleTree) Depth() int {
	return utils.PreviousPowerOfTwo(uint64(len(t)))
}

// firstLevel Leaves below offset are kept, the rest are paired into the first full level
func (t MerkleTree) firstLevel(hasher hashReader) (level MerkleTree, offset int) {
	depth := t.Depth()
	offset = depth*2 - len(t)

	level = make(MerkleTree, depth)
	copy(level, t[:offset])

	offsetTree := level[offset:]
	for i := range offsetTree {
		offsetTree[i] = leafHash(t[offset+i*2:], hasher)
	}
	return level, offset
}

// RootHash Root of the tree, types.ZeroHash when empty
func (t MerkleTree) RootHash() (rootHash types.Hash) {
	hasher := newKeccak256()

	count := len(t)
	switch {
	case count == 0:
		return types.ZeroHash
	case count <= 2:
		return leafHash(t, hasher)
	}

	temporaryTree, _ := t.firstLevel(hasher)

	for depth := len(temporaryTree) >> 1; depth > 1; depth >>= 1 {
		for i := range temporaryTree[:depth] {
			temporaryTree[i] = leafHash(temporaryTree[i*2:], hasher)
		}
	}

	return leafHash(temporaryTree, hasher)
}

// Branch Sibling hashes from leaf index up to the root, checked with MerkleProof.Verify
func (t MerkleTree) Branch(index int) (branch MerkleProof) {
	count := len(t)
	if index < 0 || index >= count || count == 1 {
		return nil
	}
	if count == 2 {
		return MerkleProof{t[index^1]}
	}

	hasher := newKeccak256()
	level, offset := t.firstLevel(hasher)

	if index >= offset {
		branch = append(branch, t[offset+((index-offset)^1)])
		index = offset + (index-offset)>>1
	}

	for size := len(level); size >= 2; size >>= 1 {
		branch = append(branch, level[index^1])
		for i := range level[:size/2] {
			level[i] = leafHash(level[i*2:], hasher)
		}
		index >>= 1
	}
	return branch
}

type MerkleProof []types.Hash

// Verify Checks h is leaf index of a tree of count leaves with the given root
func (proof MerkleProof) Verify(h types.Hash, index, count int, rootHash types.Hash) bool {
	return proof.GetRoot(h, index, count) == rootHash
}

func (proof MerkleProof) GetRoot(h types.Hash, index, count int) types.Hash {
	if count == 1 {
		return h
	}

	if index < 0 || index >= count {
		return types.ZeroHash
	}

	hasher := newKeccak256()

	if count == 2 {
		if len(proof) == 0 {
			return types.ZeroHash
		}

		return pairHash(index, h, proof[0], hasher)
	}

	pow2cnt := utils.PreviousPowerOfTwo(uint64(count))
	k := pow2cnt*2 - count

	var proofIndex int

	if index >= k {
		index -= k

		if len(proof) == 0 {
			return types.ZeroHash
		}

		h = pairHash(index, h, proof[0], hasher)

		index = (index >> 1) + k
		proofIndex = 1
	}

	for ; pow2cnt >= 2; proofIndex, index, pow2cnt = proofIndex+1, index>>1, pow2cnt>>1 {
		if proofIndex >= len(proof) {
			return types.ZeroHash
		}

		h = pairHash(index, h, proof[proofIndex], hasher)
	}

	if proofIndex != len(proof) {
		return types.ZeroHash
	}

	return h
}
