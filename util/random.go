/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 16 13:56:39 2018 mstenber
 * Last modified: Mon Apr 16 14:10:22 2018 mstenber
 * Edit time:     9 min
 *
 */

package util

import (
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/fingon/go-vfscore/mlog"
)

// SeedEnv is the environment variable that fixes the seed of
// randomized tests, so that a failing run can be repeated.
const SeedEnv = "SEED"

// GetSeededRng returns a generator seeded from SeedEnv, or from the
// clock if it is not set. The seed is always logged.
func GetSeededRng() *rand.Rand {
	seed := time.Now().UnixNano()
	if s := os.Getenv(SeedEnv); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			log.Panicf("invalid %s %q: %v", SeedEnv, s, err)
		}
		seed = v
	}
	log.Printf("Seed: %v (use %s= to repeat)", seed, SeedEnv)
	mlog.Printf2("util/random", "GetSeededRng %v", seed)
	return rand.New(rand.NewSource(seed))
}
