/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 29 10:40:51 2018 mstenber
 * Last modified: Fri Apr  6 10:20:02 2018 mstenber
 * Edit time:     19 min
 *
 */

package file

import "fmt"

// NodeId identifies a node within one backend. The core never looks
// inside it.
type NodeId uint64

// Location is where the state of a file lives: either a node on a
// mounted backend, or a virtual id (anonymous pipes and such). It is
// comparable, so it works as a map key.
type Location struct {
	virtual bool
	mountId uint32
	node    NodeId
}

func OnBackend(mountId uint32, node NodeId) Location {
	return Location{mountId: mountId, node: node}
}

func Virtual(id uint32) Location {
	return Location{virtual: true, node: NodeId(id)}
}

func (self Location) IsVirtual() bool {
	return self.virtual
}

// GetMountId returns the mount id; false for virtual locations.
func (self Location) GetMountId() (uint32, bool) {
	if self.virtual {
		return 0, false
	}
	return self.mountId, true
}

// GetNode returns the node (or the virtual id).
func (self Location) GetNode() NodeId {
	return self.node
}

// MountPoint returns the mount the location lives on, or nil.
func (self Location) MountPoint() *MountPoint {
	id, ok := self.GetMountId()
	if !ok {
		return nil
	}
	return GetMountPoint(id)
}

func (self Location) String() string {
	if self.virtual {
		return fmt.Sprintf("virtual:%d", self.node)
	}
	return fmt.Sprintf("%d:%d", self.mountId, self.node)
}
