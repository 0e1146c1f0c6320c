// Package storage defines the object-storage contract used by the ledger,
// the permission auditor and the scheduler. Containers are hierarchical
// and addressed by opaque references; objects are addressed by id.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/memvault/internal/common"
)

// GranteeType is the kind of principal an access grant refers to.
type GranteeType string

const (
	GranteeUser   GranteeType = "user"
	GranteeGroup  GranteeType = "group"
	GranteeDomain GranteeType = "domain"
)

// Role is the permission level of a grant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleWriter Role = "writer"
	RoleReader Role = "reader"
)

// Grant is one access-control entry on a container.
type Grant struct {
	Identity string
	Type     GranteeType
	Role     Role
}

// ContainerInfo describes a container. Parent is empty for a top-level one.
type ContainerInfo struct {
	Ref    string
	Name   string
	Parent string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	ID      string
	Name    string
	Size    int64
	Trashed bool
}

// ObjectStorage is the external object store.
type ObjectStorage interface {
	// EnsureContainer creates ref with the given parent and name unless it exists.
	EnsureContainer(ctx context.Context, ref, parent, name string) error
	// CreateContainer creates a new child of parent and returns its reference.
	CreateContainer(ctx context.Context, parent, name string) (string, error)
	Container(ctx context.Context, ref string) (*ContainerInfo, error)
	// Object returns metadata of an inbound object not yet filed anywhere.
	Object(ctx context.Context, id string) (*ObjectInfo, error)
	// MoveObject files an inbound object into a container under name.
	MoveObject(ctx context.Context, id, containerRef, name string) error
	ListObjects(ctx context.Context, containerRef string) ([]ObjectInfo, error)
	Grants(ctx context.Context, containerRef string) ([]Grant, error)
	// AddReadGrant gives identity read access. It returns an error wrapping
	// common.ErrIncompatibleDomain when the provider rejects the identity.
	AddReadGrant(ctx context.Context, containerRef, identity string) error
}

// maxPathDepth bounds the parent walk so a cyclic hierarchy cannot hang a pass.
const maxPathDepth = 64

// FullPath walks from ref up through its parents and joins their names
// with "/". The walk stops after the root container has been prepended,
// or when a container has no parent.
func FullPath(ctx context.Context, s ObjectStorage, ref, rootRef string) (string, error) {
	c, err := s.Container(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("resolve container %s: %w", ref, err)
	}

	parts := []string{c.Name}
	if ref == rootRef {
		return c.Name, nil
	}

	parent := c.Parent
	for depth := 0; parent != ""; depth++ {
		if depth >= maxPathDepth {
			return "", fmt.Errorf("container %s: hierarchy deeper than %d", ref, maxPathDepth)
		}
		p, err := s.Container(ctx, parent)
		if err != nil {
			return "", fmt.Errorf("resolve parent %s: %w", parent, err)
		}
		parts = append(parts, p.Name)
		if p.Ref == rootRef {
			break
		}
		parent = p.Parent
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/"), nil
}

// IsNotFound reports whether err means the container or object is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}
