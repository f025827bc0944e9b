package command

import (
	"math/rand"

	"github.com/deutsche-nationalbibliothek/marc21/marc"
)

// Sample implements the sample subcommand: reservoir sampling
// (algorithm R) of size k over the matching stream. Output order is
// non-deterministic unless seed is non-nil, in which case it is a
// deterministic function of *seed and the input stream.
func Sample(opts Options, k int, seed *int64) error {
	rc, err := newRunContext(opts)
	if err != nil {
		return err
	}
	defer rc.close()
	defer rc.finish()

	var rng *rand.Rand
	if seed != nil {
		rng = rand.New(rand.NewSource(*seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	reservoir := make([]*marc.Record, 0, k)
	seen := 0
	for {
		rec, ok, err := rc.next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		seen++
		if len(reservoir) < k {
			reservoir = append(reservoir, rec)
			continue
		}
		j := rng.Intn(seen)
		if j < k {
			reservoir[j] = rec
		}
	}

	for _, rec := range reservoir {
		if _, err := marc.Encode(rc.sink, rec); err != nil {
			return err
		}
	}
	return nil
}
