package training

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// Split partitions samples into a training and a held-out set. A sample's
// side depends only on its message id and the seed, so successive
// retraining runs hold out the same bootstrap and confirmed messages.
// Corrected samples always train. The training set is shuffled
// deterministically.
func Split(samples []Sample, fraction float64, seed uint64) (train, validation []Sample) {
	for _, s := range samples {
		if !s.Corrected && fraction > 0 && heldOut(s.MessageID, fraction, seed) {
			validation = append(validation, s)
			continue
		}
		train = append(train, s)
	}

	// An empty training set is useless; give back the held-out samples
	if len(train) == 0 {
		train, validation = validation, nil
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	return train, validation
}

func heldOut(id string, fraction float64, seed uint64) bool {
	h := fnv.New64a()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	h.Write(b[:])
	h.Write([]byte(id))
	return float64(h.Sum64())/float64(math.MaxUint64) < fraction
}
