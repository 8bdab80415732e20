/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 09:03:12 2017 mstenber
 * Last modified: Tue Mar 27 14:11:40 2018 mstenber
 * Edit time:     9 min
 *
 */

package util

func IMin(i int, ints ...int) int {
	for _, v := range ints {
		if v < i {
			i = v
		}
	}
	return i
}

func IMax(i int, ints ...int) int {
	for _, v := range ints {
		if v > i {
			i = v
		}
	}
	return i
}

func U64Min(i uint64, ints ...uint64) uint64 {
	for _, v := range ints {
		if v < i {
			i = v
		}
	}
	return i
}

func U64Max(i uint64, ints ...uint64) uint64 {
	for _, v := range ints {
		if v > i {
			i = v
		}
	}
	return i
}

// AlignUp rounds n up to the next multiple of align (a power of two).
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
