// Package memstore is an in-process storage.ObjectStorage. It backs the
// "memory" storage backend for local runs and lets tests inject faults.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/server/storage"
)

// ServiceIdentity owns every container created by the store.
const ServiceIdentity = "service@memvault.local"

type container struct {
	info    storage.ContainerInfo
	grants  []storage.Grant
	objects []storage.ObjectInfo
}

type Store struct {
	mu         sync.Mutex
	containers map[string]*container
	inbox      map[string]storage.ObjectInfo

	grantErrs  map[string]error
	objectErrs map[string]error
	rejected   map[string]struct{}
	moves      int
}

func New() *Store {
	return &Store{
		containers: make(map[string]*container),
		inbox:      make(map[string]storage.ObjectInfo),
		grantErrs:  make(map[string]error),
		objectErrs: make(map[string]error),
		rejected:   make(map[string]struct{}),
	}
}

var _ storage.ObjectStorage = (*Store)(nil)

func (s *Store) EnsureContainer(ctx context.Context, ref, parent, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[ref]; !ok {
		s.containers[ref] = newContainer(ref, parent, name)
	}
	return nil
}

func (s *Store) CreateContainer(ctx context.Context, parent, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[parent]; !ok {
		return "", fmt.Errorf("parent %s: %w", parent, common.ErrorNotFound)
	}
	ref := "containers/" + uuid.NewString()
	s.containers[ref] = newContainer(ref, parent, name)
	return ref, nil
}

func newContainer(ref, parent, name string) *container {
	return &container{
		info:   storage.ContainerInfo{Ref: ref, Parent: parent, Name: name},
		grants: []storage.Grant{{Identity: ServiceIdentity, Type: storage.GranteeUser, Role: storage.RoleOwner}},
	}
}

func (s *Store) Container(ctx context.Context, ref string) (*storage.ContainerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[ref]
	if !ok {
		return nil, fmt.Errorf("container %s: %w", ref, common.ErrorNotFound)
	}
	info := c.info
	return &info, nil
}

func (s *Store) Object(ctx context.Context, id string) (*storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.objectErrs[id]; err != nil {
		return nil, err
	}
	o, ok := s.inbox[id]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", id, common.ErrorNotFound)
	}
	return &o, nil
}

func (s *Store) MoveObject(ctx context.Context, id, containerRef, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.inbox[id]
	if !ok {
		return fmt.Errorf("object %s: %w", id, common.ErrorNotFound)
	}
	c, ok := s.containers[containerRef]
	if !ok {
		return fmt.Errorf("container %s: %w", containerRef, common.ErrorNotFound)
	}
	delete(s.inbox, id)
	o.Name = name
	c.objects = append(c.objects, o)
	s.moves++
	return nil
}

func (s *Store) ListObjects(ctx context.Context, containerRef string) ([]storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[containerRef]
	if !ok {
		return nil, fmt.Errorf("container %s: %w", containerRef, common.ErrorNotFound)
	}
	return append([]storage.ObjectInfo(nil), c.objects...), nil
}

func (s *Store) Grants(ctx context.Context, containerRef string) ([]storage.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.grantErrs[containerRef]; err != nil {
		return nil, err
	}
	c, ok := s.containers[containerRef]
	if !ok {
		return nil, fmt.Errorf("container %s: %w", containerRef, common.ErrorNotFound)
	}
	return append([]storage.Grant(nil), c.grants...), nil
}

func (s *Store) AddReadGrant(ctx context.Context, containerRef, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rejected[identity]; ok {
		return fmt.Errorf("grant %s: %w", identity, common.ErrIncompatibleDomain)
	}
	c, ok := s.containers[containerRef]
	if !ok {
		return fmt.Errorf("container %s: %w", containerRef, common.ErrorNotFound)
	}
	c.grants = append(c.grants, storage.Grant{Identity: identity, Type: storage.GranteeUser, Role: storage.RoleReader})
	return nil
}

// PutInbound places an object in the inbox, ready to be moved.
func (s *Store) PutInbound(o storage.ObjectInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox[o.ID] = o
}

// PutObject places an object directly into a container, bypassing the
// ledger, the way a manual upload would.
func (s *Store) PutObject(containerRef string, o storage.ObjectInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[containerRef]
	if !ok {
		return fmt.Errorf("container %s: %w", containerRef, common.ErrorNotFound)
	}
	c.objects = append(c.objects, o)
	return nil
}

// RemoveObject deletes an object from a container.
func (s *Store) RemoveObject(containerRef, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[containerRef]
	if !ok {
		return
	}
	kept := c.objects[:0]
	for _, o := range c.objects {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	c.objects = kept
}

// SetGrants appends grants to a container.
func (s *Store) SetGrants(containerRef string, grants ...storage.Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.containers[containerRef]; ok {
		c.grants = append(c.grants, grants...)
	}
}

// FailGrants makes Grants return err for the container.
func (s *Store) FailGrants(containerRef string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grantErrs[containerRef] = err
}

// FailObject makes Object return err for the id.
func (s *Store) FailObject(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objectErrs[id] = err
}

// RejectIdentity makes AddReadGrant fail with ErrIncompatibleDomain.
func (s *Store) RejectIdentity(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[identity] = struct{}{}
}

// Moves returns how many objects MoveObject has filed.
func (s *Store) Moves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moves
}
