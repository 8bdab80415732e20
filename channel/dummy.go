/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 26 12:48:09 2018 mstenber
 * Last modified: Mon Mar 26 12:55:37 2018 mstenber
 * Edit time:     4 min
 *
 */

package channel

// Dummy is the channel of mounts that have no backing device (tmpfs,
// procfs). It has no content.
type Dummy struct{}

var _ IO = Dummy{}

func (self Dummy) GetSize() uint64 {
	return 0
}

func (self Dummy) Read(off uint64, buf []byte) (uint64, bool, error) {
	return 0, true, nil
}

func (self Dummy) Write(off uint64, buf []byte) (uint64, error) {
	return 0, nil
}

func (self Dummy) Poll(mask uint32) (uint32, error) {
	return 0, nil
}
